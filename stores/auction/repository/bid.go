package repository

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/bidhaus/goapi/base/ctx"
	"github.com/bidhaus/goapi/base/log"
	"github.com/bidhaus/goapi/domain"
	"github.com/bidhaus/goapi/domain/auction"
	"github.com/bidhaus/goapi/service/query"
)

type bidRepoImpl struct {
	q query.Mongo
}

func NewBidRepo(q query.Mongo) auction.BidRepo {
	return &bidRepoImpl{q}
}

func (im *bidRepoImpl) makeQuery(opts ...auction.BidFindAllOptionsFunc) (bson.M, auction.BidFindAllOptions, error) {
	options, err := auction.GetBidFindAllOptions(opts...)
	if err != nil {
		return nil, options, err
	}
	qry := bson.M{}

	if options.AuctionId != nil {
		qry["auctionId"] = *options.AuctionId
	}

	if options.Bidder != nil {
		qry["bidder"] = *options.Bidder
	}

	if options.IsActive != nil {
		qry["isActive"] = *options.IsActive
	}

	if options.IsWinning != nil {
		qry["isWinning"] = *options.IsWinning
	}

	return qry, options, nil
}

func (im *bidRepoImpl) Insert(ctx ctx.Ctx, bid *auction.Bid) error {
	if err := im.q.Insert(ctx, domain.TableBids, bid); err != nil {
		ctx.WithFields(log.Fields{
			"err": err,
			"bid": bid.Id,
		}).Error("failed to q.Insert")
		return err
	}
	return nil
}

func (im *bidRepoImpl) FindAll(ctx ctx.Ctx, opts ...auction.BidFindAllOptionsFunc) ([]*auction.Bid, error) {
	qry, options, err := im.makeQuery(opts...)
	if err != nil {
		ctx.WithFields(log.Fields{"err": err}).Error("im.makeQuery")
		return nil, err
	}

	offset, limit := 0, 0
	if options.Offset != nil {
		offset = int(*options.Offset)
	}
	if options.Limit != nil {
		limit = int(*options.Limit)
	}

	res := []*auction.Bid{}
	if err := im.q.Search(ctx, domain.TableBids, offset, limit, "bidTime", qry, &res); err != nil {
		ctx.WithFields(log.Fields{
			"err":   err,
			"query": qry,
		}).Error("failed to q.Search")
		return nil, err
	}
	return res, nil
}

func (im *bidRepoImpl) FindHighestActive(ctx ctx.Ctx, auctionId string) (*auction.Bid, error) {
	qry := bson.M{"auctionId": auctionId, "isActive": true}

	// highest amount first; earliest bid wins ties
	res := []*auction.Bid{}
	if err := im.q.SearchNSorts(ctx, domain.TableBids, 0, 1, []string{"-amount", "bidTime"}, qry, &res); err != nil {
		ctx.WithFields(log.Fields{
			"err":       err,
			"auctionId": auctionId,
		}).Error("failed to q.SearchNSorts")
		return nil, err
	}
	if len(res) == 0 {
		return nil, domain.ErrNotFound
	}
	return res[0], nil
}

func (im *bidRepoImpl) CountActive(ctx ctx.Ctx, auctionId string) (int, error) {
	cnt, err := im.q.Count(ctx, domain.TableBids, bson.M{"auctionId": auctionId, "isActive": true})
	if err != nil {
		ctx.WithFields(log.Fields{
			"err":       err,
			"auctionId": auctionId,
		}).Error("failed to q.Count")
		return 0, err
	}
	return cnt, nil
}

func (im *bidRepoImpl) DemoteWinning(ctx ctx.Ctx, auctionId string) error {
	selector := bson.M{"auctionId": auctionId, "isActive": true, "isWinning": true}
	err := im.q.Patch(ctx, domain.TableBids, selector, bson.M{"isWinning": false}, query.WithPatchMany(true))
	if err == query.ErrNotFound {
		// first bid of the auction, nothing to demote
		return nil
	} else if err != nil {
		ctx.WithFields(log.Fields{
			"err":       err,
			"auctionId": auctionId,
		}).Error("failed to q.Patch")
		return err
	}
	return nil
}

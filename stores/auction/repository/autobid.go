package repository

import (
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/bidhaus/goapi/base/ctx"
	"github.com/bidhaus/goapi/base/log"
	"github.com/bidhaus/goapi/domain"
	"github.com/bidhaus/goapi/domain/auction"
	"github.com/bidhaus/goapi/service/query"
)

type autoBidRepoImpl struct {
	q query.Mongo
}

func NewAutoBidRepo(q query.Mongo) auction.AutoBidRepo {
	return &autoBidRepoImpl{q}
}

func (im *autoBidRepoImpl) Upsert(ctx ctx.Ctx, order *auction.AutoBidOrder) error {
	if err := im.Deactivate(ctx, order.AuctionId, order.Bidder); err != nil {
		return err
	}

	if err := im.q.Insert(ctx, domain.TableAutoBidOrders, order); err != nil {
		ctx.WithFields(log.Fields{
			"err":   err,
			"order": order.Id,
		}).Error("failed to q.Insert")
		return err
	}
	return nil
}

func (im *autoBidRepoImpl) FindActive(ctx ctx.Ctx, auctionId string, excludeBidder domain.AccountId, minCeiling decimal.Decimal) ([]*auction.AutoBidOrder, error) {
	qry := bson.M{
		"auctionId": auctionId,
		"isActive":  true,
		"maxAmount": bson.M{"$gt": minCeiling},
	}
	if !excludeBidder.IsEmpty() {
		qry["bidder"] = bson.M{"$ne": excludeBidder}
	}

	// highest ceiling first; older order wins ties
	res := []*auction.AutoBidOrder{}
	if err := im.q.SearchNSorts(ctx, domain.TableAutoBidOrders, 0, 0, []string{"-maxAmount", "createdAt"}, qry, &res); err != nil {
		ctx.WithFields(log.Fields{
			"err":       err,
			"auctionId": auctionId,
		}).Error("failed to q.SearchNSorts")
		return nil, err
	}
	return res, nil
}

func (im *autoBidRepoImpl) Deactivate(ctx ctx.Ctx, auctionId string, bidder domain.AccountId) error {
	selector := bson.M{"auctionId": auctionId, "bidder": bidder, "isActive": true}
	err := im.q.Patch(ctx, domain.TableAutoBidOrders, selector, bson.M{"isActive": false}, query.WithPatchMany(true))
	if err == query.ErrNotFound {
		return nil
	} else if err != nil {
		ctx.WithFields(log.Fields{
			"err":       err,
			"auctionId": auctionId,
			"bidder":    bidder,
		}).Error("failed to q.Patch")
		return err
	}
	return nil
}

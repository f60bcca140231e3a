package repository

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/bidhaus/goapi/base/ctx"
	"github.com/bidhaus/goapi/base/database/mongoclient"
	"github.com/bidhaus/goapi/base/log"
	"github.com/bidhaus/goapi/domain"
	"github.com/bidhaus/goapi/domain/auction"
	"github.com/bidhaus/goapi/service/query"
)

type auctionRepoImpl struct {
	q query.Mongo
}

func NewAuctionRepo(q query.Mongo) auction.AuctionRepo {
	return &auctionRepoImpl{q}
}

func (im *auctionRepoImpl) makeQuery(opts ...auction.FindAllOptionsFunc) (bson.M, auction.FindAllOptions, error) {
	options, err := auction.GetFindAllOptions(opts...)
	if err != nil {
		return nil, options, err
	}
	qry := bson.M{}

	if options.Seller != nil {
		qry["seller"] = *options.Seller
	}

	if len(options.Statuses) > 0 {
		qry["status"] = bson.M{"$in": options.Statuses}
	}

	if options.Category != nil {
		qry["category"] = *options.Category
	}

	if options.EndTimeLT != nil {
		qry["endTime"] = bson.M{"$lt": *options.EndTimeLT}
	}

	if options.Watcher != nil {
		qry["watchedBy"] = *options.Watcher
	}

	return qry, options, nil
}

func (im *auctionRepoImpl) FindOne(ctx ctx.Ctx, id string) (*auction.Auction, error) {
	res := auction.Auction{}
	err := im.q.FindOne(ctx, domain.TableAuctions, bson.M{"_id": id}, &res)
	if err == query.ErrNotFound {
		return nil, domain.ErrNotFound
	} else if err != nil {
		ctx.WithFields(log.Fields{
			"err": err,
			"id":  id,
		}).Error("failed to q.FindOne")
		return nil, err
	}
	return &res, nil
}

func (im *auctionRepoImpl) Insert(ctx ctx.Ctx, a *auction.Auction) error {
	if err := im.q.Insert(ctx, domain.TableAuctions, a); err != nil {
		if err == query.ErrDuplicateKey {
			return domain.ErrConflict
		}
		ctx.WithFields(log.Fields{
			"err":     err,
			"auction": a.Id,
		}).Error("failed to q.Insert")
		return err
	}
	return nil
}

func (im *auctionRepoImpl) FindAll(ctx ctx.Ctx, opts ...auction.FindAllOptionsFunc) ([]*auction.Auction, error) {
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

	sort := "-createdAt"
	if options.SortBy != nil {
		sort = *options.SortBy
		if options.SortDir != nil && *options.SortDir == domain.SortDirDesc {
			sort = "-" + sort
		}
	}

	res := []*auction.Auction{}
	if err := im.q.Search(ctx, domain.TableAuctions, offset, limit, sort, qry, &res); err != nil {
		ctx.WithFields(log.Fields{
			"err":   err,
			"query": qry,
		}).Error("failed to q.Search")
		return nil, err
	}
	return res, nil
}

func (im *auctionRepoImpl) Count(ctx ctx.Ctx, opts ...auction.FindAllOptionsFunc) (int, error) {
	qry, _, err := im.makeQuery(opts...)
	if err != nil {
		ctx.WithFields(log.Fields{"err": err}).Error("im.makeQuery")
		return 0, err
	}

	cnt, err := im.q.Count(ctx, domain.TableAuctions, qry)
	if err != nil {
		ctx.WithFields(log.Fields{
			"err":   err,
			"query": qry,
		}).Error("failed to q.Count")
		return 0, err
	}
	return cnt, nil
}

func (im *auctionRepoImpl) patchWithSelector(ctx ctx.Ctx, selector bson.M, patch auction.AuctionPatchable) error {
	set, err := mongoclient.MakeBsonM(patch)
	if err != nil {
		ctx.WithFields(log.Fields{
			"err":   err,
			"patch": patch,
		}).Error("failed to mongoclient.MakeBsonM")
		return err
	}

	update := bson.M{
		"$inc": bson.M{"version": 1},
	}
	if len(set) > 0 {
		update["$set"] = set
	}

	err = im.q.CustomPatch(ctx, domain.TableAuctions, selector, update, false)
	if err == query.ErrNotFound {
		// the auction moved on between our read and this write
		return domain.ErrStaleWrite
	} else if err != nil {
		ctx.WithFields(log.Fields{
			"err":      err,
			"selector": selector,
		}).Error("failed to q.CustomPatch")
		return err
	}
	return nil
}

func (im *auctionRepoImpl) Update(ctx ctx.Ctx, id string, expectedVersion int64, patch auction.AuctionPatchable) error {
	return im.patchWithSelector(ctx, bson.M{"_id": id, "version": expectedVersion}, patch)
}

func (im *auctionRepoImpl) UpdateStatus(ctx ctx.Ctx, id string, from auction.Status, patch auction.AuctionPatchable) error {
	return im.patchWithSelector(ctx, bson.M{"_id": id, "status": from}, patch)
}

func (im *auctionRepoImpl) IncrementViews(ctx ctx.Ctx, id string) error {
	err := im.q.CustomPatch(ctx, domain.TableAuctions, bson.M{"_id": id}, bson.M{"$inc": bson.M{"views": 1}}, false)
	if err == query.ErrNotFound {
		return domain.ErrNotFound
	}
	return err
}

func (im *auctionRepoImpl) AddWatcher(ctx ctx.Ctx, id string, account domain.AccountId) error {
	err := im.q.CustomPatch(ctx, domain.TableAuctions, bson.M{"_id": id}, bson.M{"$addToSet": bson.M{"watchedBy": account}}, false)
	if err == query.ErrNotFound {
		return domain.ErrNotFound
	}
	return err
}

func (im *auctionRepoImpl) RemoveWatcher(ctx ctx.Ctx, id string, account domain.AccountId) error {
	err := im.q.CustomPatch(ctx, domain.TableAuctions, bson.M{"_id": id}, bson.M{"$pull": bson.M{"watchedBy": account}}, false)
	if err == query.ErrNotFound {
		return domain.ErrNotFound
	}
	return err
}

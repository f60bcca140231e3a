package repository

import (
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/bidhaus/goapi/base/ctx"
	"github.com/bidhaus/goapi/base/log"
	"github.com/bidhaus/goapi/domain"
	"github.com/bidhaus/goapi/domain/account"
	"github.com/bidhaus/goapi/service/query"
)

type accountRepoImpl struct {
	q query.Mongo
}

func NewAccountRepo(q query.Mongo) account.Repo {
	return &accountRepoImpl{q}
}

func (im *accountRepoImpl) FindOne(ctx ctx.Ctx, id domain.AccountId) (*account.Account, error) {
	res := account.Account{}
	err := im.q.FindOne(ctx, domain.TableAccounts, bson.M{"_id": id}, &res)
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

func (im *accountRepoImpl) Insert(ctx ctx.Ctx, a *account.Account) error {
	if err := im.q.Insert(ctx, domain.TableAccounts, a); err != nil {
		if err == query.ErrDuplicateKey {
			return domain.ErrConflict
		}
		ctx.WithFields(log.Fields{
			"err":     err,
			"account": a.Id,
		}).Error("failed to q.Insert")
		return err
	}
	return nil
}

func (im *accountRepoImpl) UpdateBalance(ctx ctx.Ctx, id domain.AccountId, balance decimal.Decimal) error {
	err := im.q.Patch(ctx, domain.TableAccounts, bson.M{"_id": id}, bson.M{"balance": balance})
	if err == query.ErrNotFound {
		return domain.ErrNotFound
	} else if err != nil {
		ctx.WithFields(log.Fields{
			"err": err,
			"id":  id,
		}).Error("failed to q.Patch")
		return err
	}
	return nil
}

package repository

import (
	"github.com/shopspring/decimal"

	"github.com/bidhaus/goapi/base/ctx"
	"github.com/bidhaus/goapi/domain"
	"github.com/bidhaus/goapi/domain/account"
	"github.com/bidhaus/goapi/service/cache"
)

// cachedAccountRepo caches profile reads in front of another account.Repo.
// It serves display paths (bidder info on events, mail recipients); balance
// checks must keep using the uncached repo since deposits bypass this layer's
// invalidation window.
type cachedAccountRepo struct {
	repo  account.Repo
	cache cache.Service
}

func NewCachedAccountRepo(repo account.Repo, cache cache.Service) account.Repo {
	return &cachedAccountRepo{repo: repo, cache: cache}
}

func (im *cachedAccountRepo) FindOne(ctx ctx.Ctx, id domain.AccountId) (*account.Account, error) {
	res := &account.Account{}
	err := im.cache.GetByFunc(ctx, id.String(), res, func() (interface{}, error) {
		return im.repo.FindOne(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (im *cachedAccountRepo) Insert(ctx ctx.Ctx, a *account.Account) error {
	return im.repo.Insert(ctx, a)
}

func (im *cachedAccountRepo) UpdateBalance(ctx ctx.Ctx, id domain.AccountId, balance decimal.Decimal) error {
	if err := im.repo.UpdateBalance(ctx, id, balance); err != nil {
		return err
	}
	if err := im.cache.Del(ctx, id.String()); err != nil {
		ctx.WithField("err", err).Warn("failed to invalidate account cache")
	}
	return nil
}

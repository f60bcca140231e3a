package repository

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/bidhaus/goapi/base/ctx"
	"github.com/bidhaus/goapi/domain"
	"github.com/bidhaus/goapi/domain/account"
)

type memoryAccountRepo struct {
	mu       sync.RWMutex
	accounts map[domain.AccountId]*account.Account
}

func NewMemoryAccountRepo() account.Repo {
	return &memoryAccountRepo{accounts: map[domain.AccountId]*account.Account{}}
}

func (im *memoryAccountRepo) FindOne(ctx ctx.Ctx, id domain.AccountId) (*account.Account, error) {
	im.mu.RLock()
	defer im.mu.RUnlock()

	a, ok := im.accounts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *a
	return &c, nil
}

func (im *memoryAccountRepo) Insert(ctx ctx.Ctx, a *account.Account) error {
	im.mu.Lock()
	defer im.mu.Unlock()

	if _, ok := im.accounts[a.Id]; ok {
		return domain.ErrConflict
	}
	c := *a
	im.accounts[a.Id] = &c
	return nil
}

func (im *memoryAccountRepo) UpdateBalance(ctx ctx.Ctx, id domain.AccountId, balance decimal.Decimal) error {
	im.mu.Lock()
	defer im.mu.Unlock()

	a, ok := im.accounts[id]
	if !ok {
		return domain.ErrNotFound
	}
	a.Balance = balance
	return nil
}

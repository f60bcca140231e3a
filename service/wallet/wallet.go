// Package wallet answers balance checks for bid admission. This service keeps
// balances on the account record; a deployment with a real payment provider
// swaps this implementation behind domain.Wallet.
package wallet

import (
	"github.com/shopspring/decimal"

	"github.com/bidhaus/goapi/base/ctx"
	"github.com/bidhaus/goapi/base/log"
	"github.com/bidhaus/goapi/domain"
	"github.com/bidhaus/goapi/domain/account"
)

type impl struct {
	accountRepo account.Repo
}

func New(accountRepo account.Repo) domain.Wallet {
	return &impl{accountRepo: accountRepo}
}

func (im *impl) HasSufficientBalance(ctx ctx.Ctx, id domain.AccountId, amount decimal.Decimal) (bool, error) {
	acc, err := im.accountRepo.FindOne(ctx, id)
	if err != nil {
		ctx.WithFields(log.Fields{
			"err":     err,
			"account": id,
		}).Error("failed to load account for balance check")
		return false, err
	}
	return acc.Balance.GreaterThanOrEqual(amount), nil
}

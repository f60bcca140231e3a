package domain

import (
	"github.com/shopspring/decimal"

	"github.com/bidhaus/goapi/base/ctx"
)

// Wallet is the balance collaborator consulted before a bid is admitted.
// The engine only ever asks a yes/no question; holds and captures belong to
// the payment system.
type Wallet interface {
	HasSufficientBalance(ctx ctx.Ctx, account AccountId, amount decimal.Decimal) (bool, error)
}

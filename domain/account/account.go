package account

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/bidhaus/goapi/base/ctx"
	"github.com/bidhaus/goapi/domain"
)

type Account struct {
	Id        domain.AccountId `json:"id" bson:"_id"`
	Username  string           `json:"username" bson:"username"`
	FirstName string           `json:"firstName" bson:"firstName"`
	LastName  string           `json:"lastName" bson:"lastName"`
	Email     string           `json:"email" bson:"email"`
	// Balance is what the wallet collaborator answers from. Settlement and
	// escrow live outside this service.
	Balance   decimal.Decimal `json:"balance" bson:"balance"`
	CreatedAt time.Time       `json:"createdAt" bson:"createdAt"`
}

func (a *Account) ToBidderInfo() domain.BidderInfo {
	return domain.BidderInfo{
		Username:  a.Username,
		FirstName: a.FirstName,
		LastName:  a.LastName,
	}
}

type Repo interface {
	FindOne(ctx ctx.Ctx, id domain.AccountId) (*Account, error)
	Insert(ctx ctx.Ctx, a *Account) error
	UpdateBalance(ctx ctx.Ctx, id domain.AccountId, balance decimal.Decimal) error
}

type RegisterParams struct {
	Username  string `json:"username" validate:"required"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email" validate:"required,email"`
}

type UseCase interface {
	Register(ctx ctx.Ctx, params *RegisterParams) (*Account, error)
	Get(ctx ctx.Ctx, id domain.AccountId) (*Account, error)
	Deposit(ctx ctx.Ctx, id domain.AccountId, amount decimal.Decimal) (*Account, error)
}

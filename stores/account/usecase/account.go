package usecase

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bidhaus/goapi/base/ctx"
	"github.com/bidhaus/goapi/base/log"
	"github.com/bidhaus/goapi/domain"
	"github.com/bidhaus/goapi/domain/account"
)

var timeNow = time.Now

type AccountUseCaseCfg struct {
	AccountRepo account.Repo
}

type accountUseCaseImpl struct {
	accountRepo account.Repo
}

func NewAccountUseCase(cfg *AccountUseCaseCfg) account.UseCase {
	return &accountUseCaseImpl{accountRepo: cfg.AccountRepo}
}

func (im *accountUseCaseImpl) Register(ctx ctx.Ctx, params *account.RegisterParams) (*account.Account, error) {
	a := &account.Account{
		Id:        domain.AccountId(uuid.NewString()),
		Username:  params.Username,
		FirstName: params.FirstName,
		LastName:  params.LastName,
		Email:     params.Email,
		Balance:   decimal.Zero,
		CreatedAt: timeNow(),
	}
	if err := im.accountRepo.Insert(ctx, a); err != nil {
		ctx.WithFields(log.Fields{
			"err":      err,
			"username": params.Username,
		}).Error("failed to accountRepo.Insert")
		return nil, err
	}
	return a, nil
}

func (im *accountUseCaseImpl) Get(ctx ctx.Ctx, id domain.AccountId) (*account.Account, error) {
	return im.accountRepo.FindOne(ctx, id)
}

func (im *accountUseCaseImpl) Deposit(ctx ctx.Ctx, id domain.AccountId, amount decimal.Decimal) (*account.Account, error) {
	if !amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	a, err := im.accountRepo.FindOne(ctx, id)
	if err != nil {
		return nil, err
	}

	balance := a.Balance.Add(amount)
	if err := im.accountRepo.UpdateBalance(ctx, id, balance); err != nil {
		return nil, err
	}
	a.Balance = balance
	return a, nil
}

package usecase

import (
	"time"

	"github.com/google/uuid"

	"github.com/bidhaus/goapi/base/ctx"
	"github.com/bidhaus/goapi/base/log"
	"github.com/bidhaus/goapi/base/ptr"
	"github.com/bidhaus/goapi/domain"
	"github.com/bidhaus/goapi/domain/account"
	"github.com/bidhaus/goapi/domain/auction"
)

// swapped in tests
var timeNow = time.Now

type AuctionUseCaseCfg struct {
	AuctionRepo auction.AuctionRepo
	BidRepo     auction.BidRepo
	AccountRepo account.Repo
	Mailer      domain.Mailer
	Publisher   domain.Publisher
}

type auctionUseCaseImpl struct {
	auctionRepo auction.AuctionRepo
	bidRepo     auction.BidRepo
	accountRepo account.Repo
	mailer      domain.Mailer
	publisher   domain.Publisher
}

func NewAuctionUseCase(cfg *AuctionUseCaseCfg) auction.UseCase {
	return &auctionUseCaseImpl{
		auctionRepo: cfg.AuctionRepo,
		bidRepo:     cfg.BidRepo,
		accountRepo: cfg.AccountRepo,
		mailer:      cfg.Mailer,
		publisher:   cfg.Publisher,
	}
}

func (im *auctionUseCaseImpl) Create(ctx ctx.Ctx, params *auction.CreateAuctionParams) (*auction.Auction, error) {
	if params.StartingPrice.IsNegative() {
		return nil, domain.ErrInvalidAmount
	}
	if params.BidIncrement != nil && !params.BidIncrement.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	if !params.EndTime.After(params.StartTime) {
		return nil, domain.ErrBadParamInput
	}
	if params.ReservePrice != nil && params.ReservePrice.LessThan(params.StartingPrice) {
		return nil, domain.ErrReserveBelowStarting
	}

	now := timeNow()
	a := &auction.Auction{
		Id:            uuid.NewString(),
		Seller:        params.Seller,
		Title:         params.Title,
		Description:   params.Description,
		Category:      params.Category,
		Condition:     params.Condition,
		StartingPrice: params.StartingPrice,
		ReservePrice:  params.ReservePrice,
		CurrentBid:    params.StartingPrice,
		BidIncrement:  params.BidIncrement,
		StartTime:     params.StartTime,
		EndTime:       params.EndTime,
		Status:        auction.StatusDraft,
		WatchedBy:     []domain.AccountId{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := im.auctionRepo.Insert(ctx, a); err != nil {
		ctx.WithFields(log.Fields{
			"err":     err,
			"auction": a.Id,
		}).Error("failed to auctionRepo.Insert")
		return nil, err
	}
	return a, nil
}

func (im *auctionUseCaseImpl) Publish(ctx ctx.Ctx, id string, actor domain.AccountId) (*auction.Auction, error) {
	a, err := im.auctionRepo.FindOne(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.Seller.Equals(actor) {
		return nil, domain.ErrForbidden
	}
	if a.Status != auction.StatusDraft {
		return nil, domain.ErrInvalidStatusTransition
	}

	now := timeNow()
	next := auction.StatusActive
	if now.Before(a.StartTime) {
		next = auction.StatusUpcoming
	}
	patch := auction.AuctionPatchable{Status: &next, UpdatedAt: &now}
	if err := im.auctionRepo.UpdateStatus(ctx, id, auction.StatusDraft, patch); err != nil {
		return nil, err
	}
	a.Status = next
	a.UpdatedAt = now
	a.Version++
	return a, nil
}

func (im *auctionUseCaseImpl) Get(ctx ctx.Ctx, id string) (*auction.Auction, error) {
	a, err := im.auctionRepo.FindOne(ctx, id)
	if err != nil {
		return nil, err
	}
	return im.advanceState(ctx, a)
}

func (im *auctionUseCaseImpl) FindAll(ctx ctx.Ctx, opts ...auction.FindAllOptionsFunc) ([]*auction.Auction, error) {
	return im.auctionRepo.FindAll(ctx, opts...)
}

// advanceState applies time-driven transitions lazily. It runs on every
// aggregate load so an expired auction finalizes on its next read, never in
// the background.
func (im *auctionUseCaseImpl) advanceState(ctx ctx.Ctx, a *auction.Auction) (*auction.Auction, error) {
	now := timeNow()

	if a.Status == auction.StatusUpcoming && !now.Before(a.StartTime) {
		next := auction.StatusActive
		patch := auction.AuctionPatchable{Status: &next, UpdatedAt: &now}
		err := im.auctionRepo.UpdateStatus(ctx, a.Id, auction.StatusUpcoming, patch)
		if err == domain.ErrStaleWrite {
			// another reader already moved it
			if a, err = im.auctionRepo.FindOne(ctx, a.Id); err != nil {
				return nil, err
			}
		} else if err != nil {
			return nil, err
		} else {
			a.Status = auction.StatusActive
			a.UpdatedAt = now
			a.Version++
		}
	}

	if a.Status == auction.StatusActive && !now.Before(a.EndTime) {
		return im.finalize(ctx, a, auction.StatusActive)
	}

	if a.Status == auction.StatusEnded {
		a = im.notifyFinalized(ctx, a)
	}
	return a, nil
}

// finalize moves the auction to ended and settles the winner. The status CAS
// guarantees that of any number of concurrent finalizers exactly one performs
// the side effects; the rest reload the settled aggregate.
func (im *auctionUseCaseImpl) finalize(ctx ctx.Ctx, a *auction.Auction, from auction.Status) (*auction.Auction, error) {
	highest, err := im.bidRepo.FindHighestActive(ctx, a.Id)
	if err == domain.ErrNotFound {
		highest = nil
	} else if err != nil {
		return nil, err
	}

	now := timeNow()
	ended := auction.StatusEnded
	patch := auction.AuctionPatchable{Status: &ended, UpdatedAt: &now}
	if highest != nil && (a.ReservePrice == nil || highest.Amount.GreaterThanOrEqual(*a.ReservePrice)) {
		patch.Winner = &highest.Bidder
		patch.WinningBid = &highest.Amount
	}

	err = im.auctionRepo.UpdateStatus(ctx, a.Id, from, patch)
	if err == domain.ErrStaleWrite {
		return im.auctionRepo.FindOne(ctx, a.Id)
	} else if err != nil {
		ctx.WithFields(log.Fields{
			"err":     err,
			"auction": a.Id,
		}).Error("failed to auctionRepo.UpdateStatus")
		return nil, err
	}

	a.Status = ended
	a.Winner = patch.Winner
	a.WinningBid = patch.WinningBid
	a.UpdatedAt = now
	a.Version++
	return im.notifyFinalized(ctx, a), nil
}

// notifyFinalized sends the one-shot winner/seller mails. Sends are
// best-effort: a failure leaves the notified flag unset so the next access
// retries, and never surfaces to the caller.
func (im *auctionUseCaseImpl) notifyFinalized(ctx ctx.Ctx, a *auction.Auction) *auction.Auction {
	if a.Status != auction.StatusEnded {
		return a
	}

	wantWinnerMail := a.Winner != nil && !a.WinnerNotified
	wantSellerMail := !a.SellerNotified
	if !wantWinnerMail && !wantSellerMail {
		return a
	}

	amount := a.CurrentBid
	if a.WinningBid != nil {
		amount = *a.WinningBid
	}
	mail := domain.AuctionEndedMail{
		AuctionId:    a.Id,
		AuctionTitle: a.Title,
		Amount:       amount,
		ReserveMet:   a.Winner != nil,
	}

	patch := auction.AuctionPatchable{}
	changed := false

	if wantWinnerMail {
		if acct, err := im.accountRepo.FindOne(ctx, *a.Winner); err != nil {
			ctx.WithFields(log.Fields{
				"err":     err,
				"account": *a.Winner,
			}).Warn("failed to accountRepo.FindOne")
		} else if err := im.mailer.SendAuctionWonEmail(ctx, acct.Email, mail); err != nil {
			ctx.WithFields(log.Fields{
				"err":     err,
				"auction": a.Id,
			}).Warn("failed to mailer.SendAuctionWonEmail")
		} else {
			patch.WinnerNotified = ptr.Bool(true)
			changed = true
		}
	}

	if wantSellerMail {
		if acct, err := im.accountRepo.FindOne(ctx, a.Seller); err != nil {
			ctx.WithFields(log.Fields{
				"err":     err,
				"account": a.Seller,
			}).Warn("failed to accountRepo.FindOne")
		} else if err := im.mailer.SendAuctionEndedEmail(ctx, acct.Email, mail); err != nil {
			ctx.WithFields(log.Fields{
				"err":     err,
				"auction": a.Id,
			}).Warn("failed to mailer.SendAuctionEndedEmail")
		} else {
			patch.SellerNotified = ptr.Bool(true)
			changed = true
		}
	}

	if !changed {
		return a
	}

	now := timeNow()
	patch.UpdatedAt = &now
	if err := im.auctionRepo.Update(ctx, a.Id, a.Version, patch); err != nil {
		// flag write lost a race; mails may repeat on the next retry
		ctx.WithFields(log.Fields{
			"err":     err,
			"auction": a.Id,
		}).Warn("failed to auctionRepo.Update")
		return a
	}
	if patch.WinnerNotified != nil {
		a.WinnerNotified = true
	}
	if patch.SellerNotified != nil {
		a.SellerNotified = true
	}
	a.UpdatedAt = now
	a.Version++
	return a
}

func (im *auctionUseCaseImpl) Pause(ctx ctx.Ctx, id string, actor domain.AccountId) (*auction.Auction, error) {
	a, err := im.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.Seller.Equals(actor) {
		return nil, domain.ErrForbidden
	}
	if a.Status != auction.StatusActive {
		return nil, domain.ErrInvalidStatusTransition
	}

	now := timeNow()
	paused := auction.StatusPaused
	patch := auction.AuctionPatchable{Status: &paused, UpdatedAt: &now}
	if err := im.auctionRepo.UpdateStatus(ctx, id, auction.StatusActive, patch); err != nil {
		return nil, err
	}
	a.Status = paused
	a.UpdatedAt = now
	a.Version++
	return a, nil
}

func (im *auctionUseCaseImpl) Resume(ctx ctx.Ctx, id string, actor domain.AccountId) (*auction.Auction, error) {
	a, err := im.auctionRepo.FindOne(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.Seller.Equals(actor) {
		return nil, domain.ErrForbidden
	}
	if a.Status != auction.StatusPaused {
		return nil, domain.ErrInvalidStatusTransition
	}

	now := timeNow()
	if !now.Before(a.EndTime) {
		// the clock ran out while paused
		return im.finalize(ctx, a, auction.StatusPaused)
	}

	active := auction.StatusActive
	patch := auction.AuctionPatchable{Status: &active, UpdatedAt: &now}
	if err := im.auctionRepo.UpdateStatus(ctx, id, auction.StatusPaused, patch); err != nil {
		return nil, err
	}
	a.Status = active
	a.UpdatedAt = now
	a.Version++
	return a, nil
}

func (im *auctionUseCaseImpl) Extend(ctx ctx.Ctx, id string, actor domain.AccountId, newEndTime time.Time) (*auction.Auction, error) {
	a, err := im.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.Seller.Equals(actor) {
		return nil, domain.ErrForbidden
	}
	switch a.Status {
	case auction.StatusUpcoming, auction.StatusActive, auction.StatusPaused:
	default:
		return nil, domain.ErrInvalidStatusTransition
	}
	if !newEndTime.After(a.EndTime) {
		return nil, domain.ErrEndTimeNotExtended
	}

	now := timeNow()
	patch := auction.AuctionPatchable{EndTime: &newEndTime, UpdatedAt: &now}
	if err := im.auctionRepo.Update(ctx, id, a.Version, patch); err != nil {
		return nil, err
	}
	a.EndTime = newEndTime
	a.UpdatedAt = now
	a.Version++
	return a, nil
}

func (im *auctionUseCaseImpl) Cancel(ctx ctx.Ctx, id string, actor domain.AccountId, reason *string) (*auction.Auction, error) {
	a, err := im.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.Seller.Equals(actor) {
		return nil, domain.ErrForbidden
	}
	if !a.Status.CanCancel() {
		return nil, domain.ErrInvalidStatusTransition
	}

	now := timeNow()
	cancelled := auction.StatusCancelled
	patch := auction.AuctionPatchable{Status: &cancelled, CancelReason: reason, UpdatedAt: &now}
	if err := im.auctionRepo.UpdateStatus(ctx, id, a.Status, patch); err != nil {
		return nil, err
	}
	a.Status = cancelled
	a.CancelReason = reason
	a.UpdatedAt = now
	a.Version++
	return a, nil
}

func (im *auctionUseCaseImpl) Watch(ctx ctx.Ctx, id string, account domain.AccountId) error {
	return im.auctionRepo.AddWatcher(ctx, id, account)
}

func (im *auctionUseCaseImpl) Unwatch(ctx ctx.Ctx, id string, account domain.AccountId) error {
	return im.auctionRepo.RemoveWatcher(ctx, id, account)
}

func (im *auctionUseCaseImpl) AddView(ctx ctx.Ctx, id string) error {
	return im.auctionRepo.IncrementViews(ctx, id)
}

func (im *auctionUseCaseImpl) FinalizeDue(ctx ctx.Ctx) (int, error) {
	due, err := im.auctionRepo.FindAll(ctx,
		auction.WithStatuses(auction.StatusActive),
		auction.WithEndTimeLT(timeNow()),
	)
	if err != nil {
		return 0, err
	}

	finalized := 0
	for _, a := range due {
		res, err := im.finalize(ctx, a, auction.StatusActive)
		if err != nil {
			ctx.WithFields(log.Fields{
				"err":     err,
				"auction": a.Id,
			}).Error("failed to finalize")
			continue
		}
		if res.Status == auction.StatusEnded {
			finalized++
		}
	}
	return finalized, nil
}

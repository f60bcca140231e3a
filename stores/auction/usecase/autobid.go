package usecase

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bidhaus/goapi/base/ctx"
	"github.com/bidhaus/goapi/base/log"
	"github.com/bidhaus/goapi/domain"
	"github.com/bidhaus/goapi/domain/auction"
)

func (im *bidUseCaseImpl) SetAutoBid(ctx ctx.Ctx, auctionId string, bidder domain.AccountId, maxAmount decimal.Decimal) (*auction.AutoBidOrder, error) {
	a, err := im.auctionUC.Get(ctx, auctionId)
	if err != nil {
		return nil, err
	}

	switch a.Status {
	case auction.StatusActive:
	case auction.StatusEnded:
		return nil, domain.ErrAuctionEnded
	default:
		return nil, domain.ErrAuctionNotActive
	}
	if a.Seller.Equals(bidder) {
		return nil, domain.ErrSelfBid
	}
	if !maxAmount.GreaterThan(a.CurrentBid) {
		return nil, domain.ErrInvalidAmount
	}

	ok, err := im.wallet.HasSufficientBalance(ctx, bidder, maxAmount)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrInsufficientFunds
	}

	order := &auction.AutoBidOrder{
		Id:        uuid.NewString(),
		AuctionId: auctionId,
		Bidder:    bidder,
		MaxAmount: maxAmount,
		IsActive:  true,
		CreatedAt: timeNow(),
	}
	if err := im.autoBidRepo.Upsert(ctx, order); err != nil {
		ctx.WithFields(log.Fields{
			"err":     err,
			"auction": auctionId,
			"bidder":  bidder,
		}).Error("failed to autoBidRepo.Upsert")
		return nil, err
	}
	return order, nil
}

// triggerAutoBids runs once per accepted manual bid, while the auction lock is
// still held. At most one counter-bid is placed per trigger: the highest
// funded ceiling able to cover the next increment. Every failure is non-fatal.
func (im *bidUseCaseImpl) triggerAutoBids(ctx ctx.Ctx, auctionId string, amount decimal.Decimal, triggeringBidder domain.AccountId) {
	orders, err := im.autoBidRepo.FindActive(ctx, auctionId, triggeringBidder, amount)
	if err != nil {
		ctx.WithFields(log.Fields{
			"err":     err,
			"auction": auctionId,
		}).Warn("failed to autoBidRepo.FindActive")
		return
	}
	if len(orders) == 0 {
		return
	}

	a, err := im.auctionRepo.FindOne(ctx, auctionId)
	if err != nil {
		ctx.WithFields(log.Fields{
			"err":     err,
			"auction": auctionId,
		}).Warn("failed to auctionRepo.FindOne")
		return
	}
	next := amount.Add(a.MinimumIncrement(amount))

	for _, order := range orders {
		if next.GreaterThan(order.MaxAmount) {
			continue
		}

		funded, err := im.wallet.HasSufficientBalance(ctx, order.Bidder, next)
		if err != nil || !funded {
			ctx.WithFields(log.Fields{
				"err":     err,
				"auction": auctionId,
				"bidder":  order.Bidder,
			}).Info("skipping unfunded auto-bid candidate")
			continue
		}

		maxAmount := order.MaxAmount
		if _, err := im.placeBidLocked(ctx, &auction.PlaceBidParams{
			AuctionId:  auctionId,
			Bidder:     order.Bidder,
			Amount:     next,
			BidType:    auction.BidTypeAuto,
			MaxAutoBid: &maxAmount,
		}); err != nil {
			ctx.WithFields(log.Fields{
				"err":     err,
				"auction": auctionId,
				"bidder":  order.Bidder,
			}).Warn("failed to place auto bid")
			continue
		}

		// single hop per triggering bid
		return
	}
}

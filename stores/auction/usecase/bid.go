package usecase

import (
	"time"

	"github.com/google/uuid"

	"github.com/bidhaus/goapi/base/ctx"
	"github.com/bidhaus/goapi/base/keylock"
	"github.com/bidhaus/goapi/base/log"
	"github.com/bidhaus/goapi/domain"
	"github.com/bidhaus/goapi/domain/account"
	"github.com/bidhaus/goapi/domain/auction"
)

const (
	DefaultSoftCloseThreshold = 120 * time.Second
	DefaultSoftCloseExtension = 120 * time.Second
)

type BidUseCaseCfg struct {
	AuctionRepo    auction.AuctionRepo
	BidRepo        auction.BidRepo
	AutoBidRepo    auction.AutoBidRepo
	AccountRepo    account.Repo
	AuctionUseCase auction.UseCase
	Wallet         domain.Wallet
	Publisher      domain.Publisher

	SoftCloseThreshold time.Duration
	SoftCloseExtension time.Duration
	// MaxExtensions caps soft-close extensions per auction. 0 means unlimited.
	MaxExtensions int
}

type bidUseCaseImpl struct {
	auctionRepo auction.AuctionRepo
	bidRepo     auction.BidRepo
	autoBidRepo auction.AutoBidRepo
	accountRepo account.Repo
	auctionUC   auction.UseCase
	wallet      domain.Wallet
	publisher   domain.Publisher

	softCloseThreshold time.Duration
	softCloseExtension time.Duration
	maxExtensions      int

	// serializes admission per auction so concurrent bids never validate
	// against the same stale current price
	locks *keylock.KeyLock
}

func NewBidUseCase(cfg *BidUseCaseCfg) auction.BidUseCase {
	threshold := cfg.SoftCloseThreshold
	if threshold <= 0 {
		threshold = DefaultSoftCloseThreshold
	}
	extension := cfg.SoftCloseExtension
	if extension <= 0 {
		extension = DefaultSoftCloseExtension
	}
	return &bidUseCaseImpl{
		auctionRepo:        cfg.AuctionRepo,
		bidRepo:            cfg.BidRepo,
		autoBidRepo:        cfg.AutoBidRepo,
		accountRepo:        cfg.AccountRepo,
		auctionUC:          cfg.AuctionUseCase,
		wallet:             cfg.Wallet,
		publisher:          cfg.Publisher,
		softCloseThreshold: threshold,
		softCloseExtension: extension,
		maxExtensions:      cfg.MaxExtensions,
		locks:              keylock.New(),
	}
}

func (im *bidUseCaseImpl) PlaceBid(ctx ctx.Ctx, params *auction.PlaceBidParams) (*auction.PlaceBidResult, error) {
	if !params.BidType.IsValid() {
		return nil, domain.ErrBadParamInput
	}
	if !params.Amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	im.locks.Lock(params.AuctionId)
	defer im.locks.Unlock(params.AuctionId)

	res, err := im.placeBidLocked(ctx, params)
	if err != nil {
		return nil, err
	}

	// proxy engine runs synchronously inside the triggering operation; its
	// failure never fails the manual bid
	if params.BidType == auction.BidTypeManual {
		im.triggerAutoBids(ctx, params.AuctionId, res.Bid.Amount, params.Bidder)
	}
	return res, nil
}

// placeBidLocked is the admission path proper. Caller holds the auction lock.
func (im *bidUseCaseImpl) placeBidLocked(ctx ctx.Ctx, params *auction.PlaceBidParams) (*auction.PlaceBidResult, error) {
	a, err := im.auctionUC.Get(ctx, params.AuctionId)
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

	now := timeNow()
	if !now.Before(a.EndTime) {
		return nil, domain.ErrAuctionEnded
	}
	if a.Seller.Equals(params.Bidder) {
		return nil, domain.ErrSelfBid
	}

	prev, err := im.bidRepo.FindHighestActive(ctx, a.Id)
	if err == domain.ErrNotFound {
		prev = nil
	} else if err != nil {
		return nil, err
	}
	if params.BidType == auction.BidTypeManual && prev != nil && prev.Bidder.Equals(params.Bidder) {
		return nil, domain.ErrAlreadyHighestBidder
	}

	ok, err := im.wallet.HasSufficientBalance(ctx, params.Bidder, params.Amount)
	if err != nil {
		ctx.WithFields(log.Fields{
			"err":    err,
			"bidder": params.Bidder,
		}).Error("failed to wallet.HasSufficientBalance")
		return nil, err
	}
	if !ok {
		return nil, domain.ErrInsufficientFunds
	}

	minimum := a.MinimumBid()
	if params.Amount.LessThan(minimum) {
		return nil, &domain.BidTooLowError{MinimumBid: minimum}
	}

	endTime := a.EndTime
	extended := false
	if a.EndTime.Sub(now) <= im.softCloseThreshold {
		if im.maxExtensions == 0 || a.ExtensionCount < im.maxExtensions {
			endTime = a.EndTime.Add(im.softCloseExtension)
			extended = true
		}
	}

	patch := auction.AuctionPatchable{
		CurrentBid: &params.Amount,
		UpdatedAt:  &now,
	}
	if extended {
		extensions := a.ExtensionCount + 1
		patch.EndTime = &endTime
		patch.ExtensionCount = &extensions
	}
	if err := im.auctionRepo.Update(ctx, a.Id, a.Version, patch); err != nil {
		return nil, err
	}

	bid := &auction.Bid{
		Id:         uuid.NewString(),
		AuctionId:  a.Id,
		Bidder:     params.Bidder,
		Amount:     params.Amount,
		BidType:    params.BidType,
		MaxAutoBid: params.MaxAutoBid,
		IsWinning:  true,
		IsActive:   true,
		BidTime:    now,
		IP:         params.IP,
		UserAgent:  params.UserAgent,
	}
	if err := im.bidRepo.DemoteWinning(ctx, a.Id); err != nil {
		return nil, err
	}
	if err := im.bidRepo.Insert(ctx, bid); err != nil {
		return nil, err
	}

	im.publishBidEvents(ctx, a, bid, prev, endTime, extended)

	return &auction.PlaceBidResult{
		Bid:            bid,
		MinimumNextBid: params.Amount.Add(a.MinimumIncrement(params.Amount)),
	}, nil
}

func (im *bidUseCaseImpl) publishBidEvents(ctx ctx.Ctx, a *auction.Auction, bid *auction.Bid, prev *auction.Bid, endTime time.Time, extended bool) {
	channel := domain.AuctionChannel(a.Id)

	bidCount, err := im.bidRepo.CountActive(ctx, a.Id)
	if err != nil {
		ctx.WithFields(log.Fields{
			"err":     err,
			"auction": a.Id,
		}).Warn("failed to bidRepo.CountActive")
	}

	bidder := domain.BidderInfo{}
	if acct, err := im.accountRepo.FindOne(ctx, bid.Bidder); err != nil {
		ctx.WithFields(log.Fields{
			"err":     err,
			"account": bid.Bidder,
		}).Warn("failed to accountRepo.FindOne")
	} else {
		bidder = acct.ToBidderInfo()
	}

	newBid := domain.NewBidPayload{}
	newBid.Bid.Amount = bid.Amount
	newBid.Bid.Bidder = bidder
	newBid.Bid.BidTime = bid.BidTime
	newBid.Bid.BidType = string(bid.BidType)
	newBid.Auction.CurrentBid = bid.Amount
	newBid.Auction.BidCount = bidCount
	newBid.Auction.EndTime = endTime
	im.publisher.Publish(ctx, channel, domain.EventNewBid, newBid)

	if prev != nil && !prev.Bidder.Equals(bid.Bidder) {
		im.publisher.Publish(ctx, channel, domain.EventOutbid, domain.OutbidPayload{
			AuctionId:               a.Id,
			PreviousHighestBidderId: prev.Bidder,
			CurrentBid:              bid.Amount,
			Timestamp:               bid.BidTime,
		})
	}

	if extended {
		im.publisher.Publish(ctx, channel, domain.EventAuctionUpdate, domain.AuctionUpdatePayload{
			EndTime:    endTime,
			CurrentBid: bid.Amount,
			BidCount:   bidCount,
		})
	}
}

func (im *bidUseCaseImpl) GetCurrentBid(ctx ctx.Ctx, auctionId string) (*auction.CurrentBidInfo, error) {
	a, err := im.auctionUC.Get(ctx, auctionId)
	if err != nil {
		return nil, err
	}

	highest, err := im.bidRepo.FindHighestActive(ctx, auctionId)
	if err == domain.ErrNotFound {
		highest = nil
	} else if err != nil {
		return nil, err
	}

	total, err := im.bidRepo.CountActive(ctx, auctionId)
	if err != nil {
		return nil, err
	}

	return &auction.CurrentBidInfo{
		CurrentBid:       highest,
		CurrentPrice:     a.CurrentBid,
		MinimumNextBid:   a.MinimumBid(),
		TotalBids:        total,
		MinimumIncrement: a.MinimumIncrement(a.CurrentBid),
	}, nil
}

func (im *bidUseCaseImpl) ListBids(ctx ctx.Ctx, auctionId string, opts ...auction.BidFindAllOptionsFunc) ([]*auction.Bid, error) {
	opts = append(opts, auction.WithAuctionId(auctionId))
	return im.bidRepo.FindAll(ctx, opts...)
}

package auction

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/bidhaus/goapi/base/ctx"
	"github.com/bidhaus/goapi/domain"
)

type BidType string

const (
	BidTypeManual BidType = "manual"
	BidTypeAuto   BidType = "auto"
)

func (t BidType) IsValid() bool {
	return t == BidTypeManual || t == BidTypeAuto
}

type Bid struct {
	Id        string           `json:"id" bson:"_id"`
	AuctionId string           `json:"auctionId" bson:"auctionId"`
	Bidder    domain.AccountId `json:"bidder" bson:"bidder"`
	Amount    decimal.Decimal  `json:"amount" bson:"amount"`
	BidType   BidType          `json:"bidType" bson:"bidType"`
	// MaxAutoBid is the standing ceiling behind an auto bid, never the amount
	// actually placed. It is recorded for audit only; the live ceiling is the
	// AutoBidOrder.
	MaxAutoBid *decimal.Decimal `json:"maxAutoBid" bson:"maxAutoBid,omitempty"`
	IsWinning  bool             `json:"isWinning" bson:"isWinning"`
	IsActive   bool             `json:"isActive" bson:"isActive"`
	BidTime    time.Time        `json:"bidTime" bson:"bidTime"`

	// request metadata, incidental
	IP        string `json:"-" bson:"ip,omitempty"`
	UserAgent string `json:"-" bson:"userAgent,omitempty"`
}

type BidFindAllOptions struct {
	AuctionId *string
	Bidder    *domain.AccountId
	IsActive  *bool
	IsWinning *bool
	Offset    *int32
	Limit     *int32
}

type BidFindAllOptionsFunc func(*BidFindAllOptions) error

func GetBidFindAllOptions(opts ...BidFindAllOptionsFunc) (BidFindAllOptions, error) {
	res := BidFindAllOptions{}
	for _, opt := range opts {
		if err := opt(&res); err != nil {
			return res, err
		}
	}
	return res, nil
}

func WithAuctionId(auctionId string) BidFindAllOptionsFunc {
	return func(options *BidFindAllOptions) error {
		options.AuctionId = &auctionId
		return nil
	}
}

func WithBidder(bidder domain.AccountId) BidFindAllOptionsFunc {
	return func(options *BidFindAllOptions) error {
		options.Bidder = &bidder
		return nil
	}
}

func WithIsActive(isActive bool) BidFindAllOptionsFunc {
	return func(options *BidFindAllOptions) error {
		options.IsActive = &isActive
		return nil
	}
}

func WithIsWinning(isWinning bool) BidFindAllOptionsFunc {
	return func(options *BidFindAllOptions) error {
		options.IsWinning = &isWinning
		return nil
	}
}

func WithBidPagination(offset, limit int32) BidFindAllOptionsFunc {
	return func(options *BidFindAllOptions) error {
		options.Offset = &offset
		options.Limit = &limit
		return nil
	}
}

// BidRepo is the append-only ledger of bids. Demotion of the previous winner
// and insertion of the new one happen under the caller's per-auction lock.
type BidRepo interface {
	Insert(ctx ctx.Ctx, bid *Bid) error
	FindAll(ctx ctx.Ctx, opts ...BidFindAllOptionsFunc) ([]*Bid, error)

	// FindHighestActive returns the active bid with the highest amount,
	// earliest bid time winning ties. domain.ErrNotFound when the ledger has
	// no active bids.
	FindHighestActive(ctx ctx.Ctx, auctionId string) (*Bid, error)

	CountActive(ctx ctx.Ctx, auctionId string) (int, error)

	// DemoteWinning clears isWinning on every active bid of the auction.
	DemoteWinning(ctx ctx.Ctx, auctionId string) error
}

type PlaceBidParams struct {
	AuctionId  string
	Bidder     domain.AccountId
	Amount     decimal.Decimal
	BidType    BidType
	MaxAutoBid *decimal.Decimal
	IP         string
	UserAgent  string
}

type PlaceBidResult struct {
	Bid            *Bid            `json:"bid"`
	MinimumNextBid decimal.Decimal `json:"minimumNextBid"`
}

type CurrentBidInfo struct {
	CurrentBid       *Bid            `json:"currentBid"`
	CurrentPrice     decimal.Decimal `json:"currentPrice"`
	MinimumNextBid   decimal.Decimal `json:"minimumNextBid"`
	TotalBids        int             `json:"totalBids"`
	MinimumIncrement decimal.Decimal `json:"minimumIncrement"`
}

// BidUseCase is the bid admission controller plus the proxy-bid engine.
type BidUseCase interface {
	PlaceBid(ctx ctx.Ctx, params *PlaceBidParams) (*PlaceBidResult, error)
	SetAutoBid(ctx ctx.Ctx, auctionId string, bidder domain.AccountId, maxAmount decimal.Decimal) (*AutoBidOrder, error)
	GetCurrentBid(ctx ctx.Ctx, auctionId string) (*CurrentBidInfo, error)
	ListBids(ctx ctx.Ctx, auctionId string, opts ...BidFindAllOptionsFunc) ([]*Bid, error)
}

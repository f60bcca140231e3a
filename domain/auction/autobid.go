package auction

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/bidhaus/goapi/base/ctx"
	"github.com/bidhaus/goapi/domain"
)

// AutoBidOrder is a standing maximum a bidder authorizes the engine to bid up
// to on their behalf. The ceiling is never visible to competitors and is not a
// placed bid. At most one active order exists per (auction, bidder) pair.
type AutoBidOrder struct {
	Id        string           `json:"id" bson:"_id"`
	AuctionId string           `json:"auctionId" bson:"auctionId"`
	Bidder    domain.AccountId `json:"bidder" bson:"bidder"`
	MaxAmount decimal.Decimal  `json:"maxAmount" bson:"maxAmount"`
	IsActive  bool             `json:"isActive" bson:"isActive"`
	CreatedAt time.Time        `json:"createdAt" bson:"createdAt"`
}

type AutoBidRepo interface {
	// Upsert deactivates any previously standing order for the order's
	// (auction, bidder) pair, then records the new one.
	Upsert(ctx ctx.Ctx, order *AutoBidOrder) error

	// FindActive returns active orders for the auction with
	// maxAmount > minCeiling, excluding excludeBidder, sorted by maxAmount
	// descending.
	FindActive(ctx ctx.Ctx, auctionId string, excludeBidder domain.AccountId, minCeiling decimal.Decimal) ([]*AutoBidOrder, error)

	Deactivate(ctx ctx.Ctx, auctionId string, bidder domain.AccountId) error
}

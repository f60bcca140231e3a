package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/bidhaus/goapi/base/ctx"
)

// Event names published on an auction's channel.
const (
	EventNewBid        = "new-bid"
	EventOutbid        = "outbid"
	EventAuctionUpdate = "auction-update"
)

// AuctionChannel is the pubsub channel carrying one auction's events.
func AuctionChannel(auctionId string) string {
	return "auction:" + auctionId
}

type BidderInfo struct {
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type NewBidPayload struct {
	Bid struct {
		Amount  decimal.Decimal `json:"amount"`
		Bidder  BidderInfo      `json:"bidder"`
		BidTime time.Time       `json:"bidTime"`
		BidType string          `json:"bidType"`
	} `json:"bid"`
	Auction struct {
		CurrentBid decimal.Decimal `json:"currentBid"`
		BidCount   int             `json:"bidCount"`
		EndTime    time.Time       `json:"endTime"`
	} `json:"auction"`
}

type OutbidPayload struct {
	AuctionId               string          `json:"auctionId"`
	PreviousHighestBidderId AccountId       `json:"previousHighestBidderId"`
	CurrentBid              decimal.Decimal `json:"currentBid"`
	Timestamp               time.Time       `json:"timestamp"`
}

type AuctionUpdatePayload struct {
	EndTime    time.Time       `json:"endTime"`
	CurrentBid decimal.Decimal `json:"currentBid"`
	BidCount   int             `json:"bidCount"`
}

// Publisher is the broadcast collaborator. Publishing is fire-and-forget:
// no acknowledgment and no replay; consumers that miss an event reconcile by
// re-reading auction state.
type Publisher interface {
	Publish(ctx ctx.Ctx, channel, event string, payload interface{})
}

package domain

import (
	"github.com/shopspring/decimal"

	"github.com/bidhaus/goapi/base/ctx"
)

type AuctionEndedMail struct {
	AuctionId    string          `json:"auctionId"`
	AuctionTitle string          `json:"auctionTitle"`
	Amount       decimal.Decimal `json:"amount"`
	ReserveMet   bool            `json:"reserveMet"`
}

// Mailer sends the one-shot winner/seller mails at finalization. Sends are
// best-effort; callers gate retries on the notified flags, not on the error.
type Mailer interface {
	SendAuctionWonEmail(ctx ctx.Ctx, email string, mail AuctionEndedMail) error
	SendAuctionEndedEmail(ctx ctx.Ctx, email string, mail AuctionEndedMail) error
}

package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrInternalServerError will throw if any the Internal Server Error happen
	ErrInternalServerError = errors.New("Internal Server Error")
	// ErrNotFound will throw if the requested item is not exists
	ErrNotFound = errors.New("Your requested Item is not found")
	// ErrConflict will throw if the current action already exists
	ErrConflict = errors.New("Your Item already exist")
	// ErrBadParamInput will throw if the given request-body or params is not valid
	ErrBadParamInput = errors.New("Given Param is not valid")

	// bid admission errors
	ErrAuctionNotActive     = errors.New("auction is not active")
	ErrAuctionEnded         = errors.New("auction has already ended")
	ErrSelfBid              = errors.New("seller cannot bid on own auction")
	ErrAlreadyHighestBidder = errors.New("bidder already holds the highest bid")
	ErrInsufficientFunds    = errors.New("insufficient balance")
	ErrInvalidAmount        = errors.New("invalid amount")

	// ErrForbidden will throw if the actor is not allowed to act on the item
	ErrForbidden = errors.New("operation not allowed for this account")

	// lifecycle errors
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrEndTimeNotExtended      = errors.New("new end time must be after current end time")
	ErrReserveBelowStarting    = errors.New("reserve price must not be below starting price")

	// ErrStaleWrite is returned when a compare-and-swap update lost the race
	ErrStaleWrite = errors.New("stale write detected")

	ErrInvalidToken = errors.New("invalid token")
)

// BidTooLowError rejects a bid below the minimum and carries the computed
// minimum so the caller can surface it.
type BidTooLowError struct {
	MinimumBid decimal.Decimal
}

func (e *BidTooLowError) Error() string {
	return fmt.Sprintf("bid amount is below the minimum bid of $%s", e.MinimumBid.StringFixed(2))
}

package auction

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/bidhaus/goapi/base/ctx"
	"github.com/bidhaus/goapi/domain"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusUpcoming  Status = "upcoming"
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusEnded     Status = "ended"
	StatusCancelled Status = "cancelled"
)

// cancellable statuses. Ended auctions are immutable.
func (s Status) CanCancel() bool {
	return s == StatusUpcoming || s == StatusActive || s == StatusPaused
}

func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusUpcoming, StatusActive, StatusPaused, StatusEnded, StatusCancelled:
		return true
	}
	return false
}

type Auction struct {
	Id            string           `json:"id" bson:"_id"`
	Seller        domain.AccountId `json:"seller" bson:"seller"`
	Title         string           `json:"title" bson:"title"`
	Description   string           `json:"description" bson:"description"`
	Category      string           `json:"category" bson:"category"`
	Condition     string           `json:"condition" bson:"condition"`
	StartingPrice decimal.Decimal  `json:"startingPrice" bson:"startingPrice"`
	ReservePrice  *decimal.Decimal `json:"reservePrice" bson:"reservePrice,omitempty"`
	// CurrentBid defaults to StartingPrice and is mutated only by bid admission
	CurrentBid   decimal.Decimal  `json:"currentBid" bson:"currentBid"`
	BidIncrement *decimal.Decimal `json:"bidIncrement" bson:"bidIncrement,omitempty"`
	StartTime    time.Time        `json:"startTime" bson:"startTime"`
	// EndTime only ever increases (soft close)
	EndTime time.Time `json:"endTime" bson:"endTime"`
	Status  Status    `json:"status" bson:"status"`

	// populated only at successful finalization
	Winner     *domain.AccountId `json:"winner" bson:"winner,omitempty"`
	WinningBid *decimal.Decimal  `json:"winningBid" bson:"winningBid,omitempty"`

	WatchedBy []domain.AccountId `json:"watchedBy" bson:"watchedBy"`

	// idempotency guards for the one-shot finalize mails
	WinnerNotified bool `json:"winnerNotified" bson:"winnerNotified"`
	SellerNotified bool `json:"sellerNotified" bson:"sellerNotified"`

	Views          int64   `json:"views" bson:"views"`
	CancelReason   *string `json:"cancelReason" bson:"cancelReason,omitempty"`
	ExtensionCount int     `json:"extensionCount" bson:"extensionCount"`

	// Version is the optimistic-concurrency token checked on every update
	Version   int64     `json:"version" bson:"version"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// MinimumIncrement returns the lot's increment at the given price, using the
// per-lot override when one is set and the ladder otherwise.
func (a *Auction) MinimumIncrement(current decimal.Decimal) decimal.Decimal {
	if a.BidIncrement != nil && a.BidIncrement.IsPositive() {
		return *a.BidIncrement
	}
	return Increment(current)
}

// MinimumBid is the lowest admissible next bid.
func (a *Auction) MinimumBid() decimal.Decimal {
	return a.CurrentBid.Add(a.MinimumIncrement(a.CurrentBid))
}

func (a *Auction) IsWatchedBy(account domain.AccountId) bool {
	for _, w := range a.WatchedBy {
		if w.Equals(account) {
			return true
		}
	}
	return false
}

type AuctionPatchable struct {
	Title          *string           `bson:"title,omitempty"`
	Description    *string           `bson:"description,omitempty"`
	CurrentBid     *decimal.Decimal  `bson:"currentBid,omitempty"`
	StartTime      *time.Time        `bson:"startTime,omitempty"`
	EndTime        *time.Time        `bson:"endTime,omitempty"`
	Status         *Status           `bson:"status,omitempty"`
	Winner         *domain.AccountId `bson:"winner,omitempty"`
	WinningBid     *decimal.Decimal  `bson:"winningBid,omitempty"`
	WinnerNotified *bool             `bson:"winnerNotified,omitempty"`
	SellerNotified *bool             `bson:"sellerNotified,omitempty"`
	CancelReason   *string           `bson:"cancelReason,omitempty"`
	ExtensionCount *int              `bson:"extensionCount,omitempty"`
	UpdatedAt      *time.Time        `bson:"updatedAt,omitempty"`
}

type FindAllOptions struct {
	Seller    *domain.AccountId
	Statuses  []Status
	Category  *string
	EndTimeLT *time.Time
	Watcher   *domain.AccountId
	SortBy    *string
	SortDir   *domain.SortDir
	Offset    *int32
	Limit     *int32
}

type FindAllOptionsFunc func(*FindAllOptions) error

func GetFindAllOptions(opts ...FindAllOptionsFunc) (FindAllOptions, error) {
	res := FindAllOptions{}
	for _, opt := range opts {
		if err := opt(&res); err != nil {
			return res, err
		}
	}
	return res, nil
}

func WithSeller(seller domain.AccountId) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.Seller = &seller
		return nil
	}
}

func WithStatuses(statuses ...Status) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.Statuses = statuses
		return nil
	}
}

func WithCategory(category string) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.Category = &category
		return nil
	}
}

func WithEndTimeLT(t time.Time) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.EndTimeLT = &t
		return nil
	}
}

func WithWatcher(watcher domain.AccountId) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.Watcher = &watcher
		return nil
	}
}

func WithSort(by string, dir domain.SortDir) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.SortBy = &by
		options.SortDir = &dir
		return nil
	}
}

func WithPagination(offset, limit int32) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.Offset = &offset
		options.Limit = &limit
		return nil
	}
}

// AuctionRepo is the persistence contract for the auction aggregate.
type AuctionRepo interface {
	FindOne(ctx ctx.Ctx, id string) (*Auction, error)
	Insert(ctx ctx.Ctx, a *Auction) error
	FindAll(ctx ctx.Ctx, opts ...FindAllOptionsFunc) ([]*Auction, error)
	Count(ctx ctx.Ctx, opts ...FindAllOptionsFunc) (int, error)

	// Update patches the auction iff its stored version still equals
	// expectedVersion, bumping the version. Returns domain.ErrStaleWrite when
	// the token no longer matches.
	Update(ctx ctx.Ctx, id string, expectedVersion int64, patch AuctionPatchable) error

	// UpdateStatus patches iff the stored status equals from. This is the
	// compare-and-swap that makes concurrent finalize safe: exactly one caller
	// observes the transition. Returns domain.ErrStaleWrite when the status
	// already moved on.
	UpdateStatus(ctx ctx.Ctx, id string, from Status, patch AuctionPatchable) error

	IncrementViews(ctx ctx.Ctx, id string) error
	AddWatcher(ctx ctx.Ctx, id string, account domain.AccountId) error
	RemoveWatcher(ctx ctx.Ctx, id string, account domain.AccountId) error
}

type CreateAuctionParams struct {
	Seller        domain.AccountId `json:"-"`
	Title         string           `json:"title" validate:"required"`
	Description   string           `json:"description"`
	Category      string           `json:"category"`
	Condition     string           `json:"condition"`
	StartingPrice decimal.Decimal  `json:"startingPrice"`
	ReservePrice  *decimal.Decimal `json:"reservePrice"`
	BidIncrement  *decimal.Decimal `json:"bidIncrement"`
	StartTime     time.Time        `json:"startTime" validate:"required"`
	EndTime       time.Time        `json:"endTime" validate:"required"`
}

// UseCase owns the auction state machine. Time-driven transitions are lazy:
// they happen when an auction is loaded or saved, never in the background.
type UseCase interface {
	Create(ctx ctx.Ctx, params *CreateAuctionParams) (*Auction, error)
	Publish(ctx ctx.Ctx, id string, actor domain.AccountId) (*Auction, error)
	Get(ctx ctx.Ctx, id string) (*Auction, error)
	FindAll(ctx ctx.Ctx, opts ...FindAllOptionsFunc) ([]*Auction, error)
	Pause(ctx ctx.Ctx, id string, actor domain.AccountId) (*Auction, error)
	Resume(ctx ctx.Ctx, id string, actor domain.AccountId) (*Auction, error)
	Extend(ctx ctx.Ctx, id string, actor domain.AccountId, newEndTime time.Time) (*Auction, error)
	Cancel(ctx ctx.Ctx, id string, actor domain.AccountId, reason *string) (*Auction, error)
	Watch(ctx ctx.Ctx, id string, account domain.AccountId) error
	Unwatch(ctx ctx.Ctx, id string, account domain.AccountId) error
	AddView(ctx ctx.Ctx, id string) error

	// FinalizeDue finalizes every active auction whose end time has passed.
	// The engine never depends on it; it backs the optional sweeper binary.
	FinalizeDue(ctx ctx.Ctx) (int, error)
}

package repository

import (
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/bidhaus/goapi/base/ctx"
	"github.com/bidhaus/goapi/domain"
	"github.com/bidhaus/goapi/domain/auction"
)

// In-memory implementations of the auction storage contracts. They carry the
// same compare-and-swap semantics as the mongo repositories so the bidding
// engine behaves identically in dev mode and in the test suites.

type memoryAuctionRepo struct {
	mu       sync.RWMutex
	auctions map[string]*auction.Auction
}

func NewMemoryAuctionRepo() auction.AuctionRepo {
	return &memoryAuctionRepo{auctions: map[string]*auction.Auction{}}
}

func cloneAuction(a *auction.Auction) *auction.Auction {
	c := *a
	if a.WatchedBy != nil {
		c.WatchedBy = append([]domain.AccountId(nil), a.WatchedBy...)
	}
	return &c
}

func (im *memoryAuctionRepo) FindOne(ctx ctx.Ctx, id string) (*auction.Auction, error) {
	im.mu.RLock()
	defer im.mu.RUnlock()

	a, ok := im.auctions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneAuction(a), nil
}

func (im *memoryAuctionRepo) Insert(ctx ctx.Ctx, a *auction.Auction) error {
	im.mu.Lock()
	defer im.mu.Unlock()

	if _, ok := im.auctions[a.Id]; ok {
		return domain.ErrConflict
	}
	im.auctions[a.Id] = cloneAuction(a)
	return nil
}

func (im *memoryAuctionRepo) FindAll(ctx ctx.Ctx, opts ...auction.FindAllOptionsFunc) ([]*auction.Auction, error) {
	options, err := auction.GetFindAllOptions(opts...)
	if err != nil {
		return nil, err
	}

	im.mu.RLock()
	defer im.mu.RUnlock()

	res := []*auction.Auction{}
	for _, a := range im.auctions {
		if !matchAuction(a, options) {
			continue
		}
		res = append(res, cloneAuction(a))
	}

	sort.Slice(res, func(i, j int) bool {
		// newest first, matching the mongo repo's default sort
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})

	res = paginateAuctions(res, options)
	return res, nil
}

func matchAuction(a *auction.Auction, options auction.FindAllOptions) bool {
	if options.Seller != nil && !a.Seller.Equals(*options.Seller) {
		return false
	}
	if len(options.Statuses) > 0 {
		found := false
		for _, s := range options.Statuses {
			if a.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if options.Category != nil && a.Category != *options.Category {
		return false
	}
	if options.EndTimeLT != nil && !a.EndTime.Before(*options.EndTimeLT) {
		return false
	}
	if options.Watcher != nil && !a.IsWatchedBy(*options.Watcher) {
		return false
	}
	return true
}

func paginateAuctions(res []*auction.Auction, options auction.FindAllOptions) []*auction.Auction {
	offset := 0
	if options.Offset != nil {
		offset = int(*options.Offset)
	}
	if offset >= len(res) {
		return []*auction.Auction{}
	}
	res = res[offset:]
	if options.Limit != nil && int(*options.Limit) > 0 && int(*options.Limit) < len(res) {
		res = res[:*options.Limit]
	}
	return res
}

func (im *memoryAuctionRepo) Count(ctx ctx.Ctx, opts ...auction.FindAllOptionsFunc) (int, error) {
	options, err := auction.GetFindAllOptions(opts...)
	if err != nil {
		return 0, err
	}

	im.mu.RLock()
	defer im.mu.RUnlock()

	cnt := 0
	for _, a := range im.auctions {
		if matchAuction(a, options) {
			cnt++
		}
	}
	return cnt, nil
}

func applyAuctionPatch(a *auction.Auction, patch auction.AuctionPatchable) {
	if patch.Title != nil {
		a.Title = *patch.Title
	}
	if patch.Description != nil {
		a.Description = *patch.Description
	}
	if patch.CurrentBid != nil {
		a.CurrentBid = *patch.CurrentBid
	}
	if patch.StartTime != nil {
		a.StartTime = *patch.StartTime
	}
	if patch.EndTime != nil {
		a.EndTime = *patch.EndTime
	}
	if patch.Status != nil {
		a.Status = *patch.Status
	}
	if patch.Winner != nil {
		a.Winner = patch.Winner
	}
	if patch.WinningBid != nil {
		a.WinningBid = patch.WinningBid
	}
	if patch.WinnerNotified != nil {
		a.WinnerNotified = *patch.WinnerNotified
	}
	if patch.SellerNotified != nil {
		a.SellerNotified = *patch.SellerNotified
	}
	if patch.CancelReason != nil {
		a.CancelReason = patch.CancelReason
	}
	if patch.ExtensionCount != nil {
		a.ExtensionCount = *patch.ExtensionCount
	}
	if patch.UpdatedAt != nil {
		a.UpdatedAt = *patch.UpdatedAt
	}
}

func (im *memoryAuctionRepo) Update(ctx ctx.Ctx, id string, expectedVersion int64, patch auction.AuctionPatchable) error {
	im.mu.Lock()
	defer im.mu.Unlock()

	a, ok := im.auctions[id]
	if !ok || a.Version != expectedVersion {
		return domain.ErrStaleWrite
	}
	applyAuctionPatch(a, patch)
	a.Version++
	return nil
}

func (im *memoryAuctionRepo) UpdateStatus(ctx ctx.Ctx, id string, from auction.Status, patch auction.AuctionPatchable) error {
	im.mu.Lock()
	defer im.mu.Unlock()

	a, ok := im.auctions[id]
	if !ok || a.Status != from {
		return domain.ErrStaleWrite
	}
	applyAuctionPatch(a, patch)
	a.Version++
	return nil
}

func (im *memoryAuctionRepo) IncrementViews(ctx ctx.Ctx, id string) error {
	im.mu.Lock()
	defer im.mu.Unlock()

	a, ok := im.auctions[id]
	if !ok {
		return domain.ErrNotFound
	}
	a.Views++
	return nil
}

func (im *memoryAuctionRepo) AddWatcher(ctx ctx.Ctx, id string, account domain.AccountId) error {
	im.mu.Lock()
	defer im.mu.Unlock()

	a, ok := im.auctions[id]
	if !ok {
		return domain.ErrNotFound
	}
	if !a.IsWatchedBy(account) {
		a.WatchedBy = append(a.WatchedBy, account)
	}
	return nil
}

func (im *memoryAuctionRepo) RemoveWatcher(ctx ctx.Ctx, id string, account domain.AccountId) error {
	im.mu.Lock()
	defer im.mu.Unlock()

	a, ok := im.auctions[id]
	if !ok {
		return domain.ErrNotFound
	}
	for i, w := range a.WatchedBy {
		if w.Equals(account) {
			a.WatchedBy = append(a.WatchedBy[:i], a.WatchedBy[i+1:]...)
			break
		}
	}
	return nil
}

type memoryBidRepo struct {
	mu   sync.RWMutex
	bids map[string][]*auction.Bid // auctionId -> insertion-ordered ledger
}

func NewMemoryBidRepo() auction.BidRepo {
	return &memoryBidRepo{bids: map[string][]*auction.Bid{}}
}

func cloneBid(b *auction.Bid) *auction.Bid {
	c := *b
	return &c
}

func (im *memoryBidRepo) Insert(ctx ctx.Ctx, bid *auction.Bid) error {
	im.mu.Lock()
	defer im.mu.Unlock()

	im.bids[bid.AuctionId] = append(im.bids[bid.AuctionId], cloneBid(bid))
	return nil
}

func (im *memoryBidRepo) FindAll(ctx ctx.Ctx, opts ...auction.BidFindAllOptionsFunc) ([]*auction.Bid, error) {
	options, err := auction.GetBidFindAllOptions(opts...)
	if err != nil {
		return nil, err
	}

	im.mu.RLock()
	defer im.mu.RUnlock()

	var ledgers [][]*auction.Bid
	if options.AuctionId != nil {
		ledgers = append(ledgers, im.bids[*options.AuctionId])
	} else {
		for _, l := range im.bids {
			ledgers = append(ledgers, l)
		}
	}

	res := []*auction.Bid{}
	for _, ledger := range ledgers {
		for _, b := range ledger {
			if options.Bidder != nil && !b.Bidder.Equals(*options.Bidder) {
				continue
			}
			if options.IsActive != nil && b.IsActive != *options.IsActive {
				continue
			}
			if options.IsWinning != nil && b.IsWinning != *options.IsWinning {
				continue
			}
			res = append(res, cloneBid(b))
		}
	}

	sort.SliceStable(res, func(i, j int) bool {
		return res[i].BidTime.Before(res[j].BidTime)
	})

	offset := 0
	if options.Offset != nil {
		offset = int(*options.Offset)
	}
	if offset >= len(res) {
		return []*auction.Bid{}, nil
	}
	res = res[offset:]
	if options.Limit != nil && int(*options.Limit) > 0 && int(*options.Limit) < len(res) {
		res = res[:*options.Limit]
	}
	return res, nil
}

func (im *memoryBidRepo) FindHighestActive(ctx ctx.Ctx, auctionId string) (*auction.Bid, error) {
	im.mu.RLock()
	defer im.mu.RUnlock()

	var highest *auction.Bid
	for _, b := range im.bids[auctionId] {
		if !b.IsActive {
			continue
		}
		if highest == nil ||
			b.Amount.GreaterThan(highest.Amount) ||
			(b.Amount.Equal(highest.Amount) && b.BidTime.Before(highest.BidTime)) {
			highest = b
		}
	}
	if highest == nil {
		return nil, domain.ErrNotFound
	}
	return cloneBid(highest), nil
}

func (im *memoryBidRepo) CountActive(ctx ctx.Ctx, auctionId string) (int, error) {
	im.mu.RLock()
	defer im.mu.RUnlock()

	cnt := 0
	for _, b := range im.bids[auctionId] {
		if b.IsActive {
			cnt++
		}
	}
	return cnt, nil
}

func (im *memoryBidRepo) DemoteWinning(ctx ctx.Ctx, auctionId string) error {
	im.mu.Lock()
	defer im.mu.Unlock()

	for _, b := range im.bids[auctionId] {
		if b.IsActive && b.IsWinning {
			b.IsWinning = false
		}
	}
	return nil
}

type memoryAutoBidRepo struct {
	mu     sync.RWMutex
	orders map[string][]*auction.AutoBidOrder // auctionId -> orders
}

func NewMemoryAutoBidRepo() auction.AutoBidRepo {
	return &memoryAutoBidRepo{orders: map[string][]*auction.AutoBidOrder{}}
}

func cloneOrder(o *auction.AutoBidOrder) *auction.AutoBidOrder {
	c := *o
	return &c
}

func (im *memoryAutoBidRepo) Upsert(ctx ctx.Ctx, order *auction.AutoBidOrder) error {
	im.mu.Lock()
	defer im.mu.Unlock()

	for _, o := range im.orders[order.AuctionId] {
		if o.IsActive && o.Bidder.Equals(order.Bidder) {
			o.IsActive = false
		}
	}
	im.orders[order.AuctionId] = append(im.orders[order.AuctionId], cloneOrder(order))
	return nil
}

func (im *memoryAutoBidRepo) FindActive(ctx ctx.Ctx, auctionId string, excludeBidder domain.AccountId, minCeiling decimal.Decimal) ([]*auction.AutoBidOrder, error) {
	im.mu.RLock()
	defer im.mu.RUnlock()

	res := []*auction.AutoBidOrder{}
	for _, o := range im.orders[auctionId] {
		if !o.IsActive {
			continue
		}
		if !excludeBidder.IsEmpty() && o.Bidder.Equals(excludeBidder) {
			continue
		}
		if !o.MaxAmount.GreaterThan(minCeiling) {
			continue
		}
		res = append(res, cloneOrder(o))
	}

	sort.SliceStable(res, func(i, j int) bool {
		if !res[i].MaxAmount.Equal(res[j].MaxAmount) {
			return res[i].MaxAmount.GreaterThan(res[j].MaxAmount)
		}
		return res[i].CreatedAt.Before(res[j].CreatedAt)
	})
	return res, nil
}

func (im *memoryAutoBidRepo) Deactivate(ctx ctx.Ctx, auctionId string, bidder domain.AccountId) error {
	im.mu.Lock()
	defer im.mu.Unlock()

	for _, o := range im.orders[auctionId] {
		if o.IsActive && o.Bidder.Equals(bidder) {
			o.IsActive = false
		}
	}
	return nil
}

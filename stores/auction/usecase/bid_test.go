package usecase

import (
	"fmt"
	"sync"
	"time"

	"github.com/bidhaus/goapi/domain"
	"github.com/bidhaus/goapi/domain/auction"
)

func (s *engineTestSuite) TestPlaceBidHappyPath() {
	a := s.createActiveAuction("100", nil)

	res := s.mustPlaceManualBid(a.Id, s.alice, "110")
	s.True(res.Bid.IsWinning)
	s.True(res.Bid.IsActive)
	s.Equal(auction.BidTypeManual, res.Bid.BidType)
	s.True(res.MinimumNextBid.Equal(d("120")))

	reloaded := s.reloadAuction(a.Id)
	s.True(reloaded.CurrentBid.Equal(d("110")))
	s.Len(s.activeBids(a.Id), 1)

	s.Equal(1, s.publisher.count(domain.EventNewBid))
	s.Equal(0, s.publisher.count(domain.EventOutbid))
}

func (s *engineTestSuite) TestPlaceBidMinimumLadderScenario() {
	// a current bid of $105 sits in the [100, 500) bracket, so the next
	// admissible bid is $115
	a := s.createActiveAuction("95", nil)
	s.mustPlaceManualBid(a.Id, s.alice, "105")

	_, err := s.placeManualBid(a.Id, s.bob, "114")
	tooLow := &domain.BidTooLowError{}
	s.ErrorAs(err, &tooLow)
	s.True(tooLow.MinimumBid.Equal(d("115")))

	s.mustPlaceManualBid(a.Id, s.bob, "115")
	s.True(s.reloadAuction(a.Id).CurrentBid.Equal(d("115")))
}

func (s *engineTestSuite) TestPlaceBidRejectionLeavesStateUntouched() {
	a := s.createActiveAuction("100", nil)
	s.mustPlaceManualBid(a.Id, s.alice, "110")
	before := s.reloadAuction(a.Id)

	cases := []struct {
		name   string
		bidder domain.AccountId
		amount string
		err    error
	}{
		{"below minimum", s.bob, "115", &domain.BidTooLowError{}},
		{"self bid", s.seller, "500", domain.ErrSelfBid},
		{"already highest", s.alice, "500", domain.ErrAlreadyHighestBidder},
		{"zero amount", s.bob, "0", domain.ErrInvalidAmount},
	}
	for _, c := range cases {
		_, err := s.placeManualBid(a.Id, c.bidder, c.amount)
		s.Error(err, c.name)
	}

	s.wallet.setBalance(s.bob, d("10"))
	_, err := s.placeManualBid(a.Id, s.bob, "120")
	s.ErrorIs(err, domain.ErrInsufficientFunds)

	after := s.reloadAuction(a.Id)
	s.True(after.CurrentBid.Equal(before.CurrentBid))
	s.Equal(before.Version, after.Version)
	s.Len(s.activeBids(a.Id), 1)
}

func (s *engineTestSuite) TestPlaceBidOnEndedAuction() {
	a := s.createActiveAuction("100", nil)
	s.now = a.EndTime.Add(time.Minute)

	_, err := s.placeManualBid(a.Id, s.alice, "110")
	s.ErrorIs(err, domain.ErrAuctionEnded)
}

func (s *engineTestSuite) TestPlaceBidOnDraftAndPausedAuction() {
	params := &auction.CreateAuctionParams{
		Seller:        s.seller,
		Title:         "draft lot",
		StartingPrice: d("100"),
		StartTime:     s.now.Add(-time.Hour),
		EndTime:       s.now.Add(24 * time.Hour),
	}
	draft, err := s.auctionUC.Create(s.ctx, params)
	s.Require().NoError(err)

	_, err = s.placeManualBid(draft.Id, s.alice, "110")
	s.ErrorIs(err, domain.ErrAuctionNotActive)

	a := s.createActiveAuction("100", nil)
	_, err = s.auctionUC.Pause(s.ctx, a.Id, s.seller)
	s.Require().NoError(err)

	_, err = s.placeManualBid(a.Id, s.alice, "110")
	s.ErrorIs(err, domain.ErrAuctionNotActive)
}

func (s *engineTestSuite) TestPlaceBidUnknownAuction() {
	_, err := s.placeManualBid("no-such-lot", s.alice, "110")
	s.ErrorIs(err, domain.ErrNotFound)
}

func (s *engineTestSuite) TestSingleWinningBidInvariant() {
	a := s.createActiveAuction("100", nil)

	bidders := []domain.AccountId{s.alice, s.bob, s.alice, s.bob, s.carol}
	amounts := []string{"110", "120", "130", "140", "150"}
	for i := range bidders {
		s.mustPlaceManualBid(a.Id, bidders[i], amounts[i])
		s.now = s.now.Add(time.Second)
	}

	bids := s.activeBids(a.Id)
	s.Len(bids, len(bidders))

	winning := 0
	for _, b := range bids {
		if b.IsWinning {
			winning++
			s.True(b.Amount.Equal(d("150")))
			s.Equal(s.carol, b.Bidder)
		}
	}
	s.Equal(1, winning)
	s.True(s.reloadAuction(a.Id).CurrentBid.Equal(d("150")))
}

func (s *engineTestSuite) TestOutbidEventNamesSupersededBidder() {
	a := s.createActiveAuction("100", nil)
	s.mustPlaceManualBid(a.Id, s.alice, "110")
	s.mustPlaceManualBid(a.Id, s.bob, "120")

	e := s.publisher.last(domain.EventOutbid)
	s.Require().NotNil(e)
	s.Equal(domain.AuctionChannel(a.Id), e.channel)

	payload, ok := e.payload.(domain.OutbidPayload)
	s.Require().True(ok)
	s.Equal(s.alice, payload.PreviousHighestBidderId)
	s.True(payload.CurrentBid.Equal(d("120")))
}

func (s *engineTestSuite) TestSoftCloseExtendsEndTime() {
	a := s.createActiveAuction("100", nil)
	originalEnd := a.EndTime

	// a bid 60 seconds before close lands inside the 120s threshold
	s.now = originalEnd.Add(-60 * time.Second)
	s.mustPlaceManualBid(a.Id, s.alice, "110")

	reloaded := s.reloadAuction(a.Id)
	s.True(reloaded.EndTime.Equal(originalEnd.Add(120 * time.Second)))
	s.Equal(1, reloaded.ExtensionCount)
	s.Equal(1, s.publisher.count(domain.EventAuctionUpdate))
}

func (s *engineTestSuite) TestNoSoftCloseOutsideThreshold() {
	a := s.createActiveAuction("100", nil)
	originalEnd := a.EndTime

	s.now = originalEnd.Add(-10 * time.Minute)
	s.mustPlaceManualBid(a.Id, s.alice, "110")

	reloaded := s.reloadAuction(a.Id)
	s.True(reloaded.EndTime.Equal(originalEnd))
	s.Equal(0, reloaded.ExtensionCount)
	s.Equal(0, s.publisher.count(domain.EventAuctionUpdate))
}

func (s *engineTestSuite) TestSoftCloseExtensionCap() {
	capped := NewBidUseCase(&BidUseCaseCfg{
		AuctionRepo:    s.auctionRepo,
		BidRepo:        s.bidRepo,
		AutoBidRepo:    s.autoBidRepo,
		AccountRepo:    s.accountRepo,
		AuctionUseCase: s.auctionUC,
		Wallet:         s.wallet,
		Publisher:      s.publisher,
		MaxExtensions:  2,
	})

	a := s.createActiveAuction("100", nil)
	bidders := []domain.AccountId{s.alice, s.bob, s.carol}
	amounts := []string{"110", "120", "130"}

	for i := range bidders {
		end := s.reloadAuction(a.Id).EndTime
		s.now = end.Add(-30 * time.Second)
		_, err := capped.PlaceBid(s.ctx, &auction.PlaceBidParams{
			AuctionId: a.Id,
			Bidder:    bidders[i],
			Amount:    d(amounts[i]),
			BidType:   auction.BidTypeManual,
		})
		s.Require().NoError(err)
	}

	s.Equal(2, s.reloadAuction(a.Id).ExtensionCount)
	s.Equal(2, s.publisher.count(domain.EventAuctionUpdate))
}

func (s *engineTestSuite) TestConcurrentBidsKeepInvariant() {
	a := s.createActiveAuction("100", nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			bidder := s.alice
			if i%2 == 0 {
				bidder = s.bob
			}
			// rejections are expected; only the invariant matters
			_, _ = s.placeManualBid(a.Id, bidder, fmt.Sprintf("%d", 110+i*10))
		}(i)
	}
	wg.Wait()

	bids := s.activeBids(a.Id)
	s.NotEmpty(bids)

	winning := 0
	highest := d("0")
	for _, b := range bids {
		if b.Amount.GreaterThan(highest) {
			highest = b.Amount
		}
		if b.IsWinning {
			winning++
		}
	}
	s.Equal(1, winning)
	s.True(s.reloadAuction(a.Id).CurrentBid.Equal(highest))
}

func (s *engineTestSuite) TestGetCurrentBid() {
	a := s.createActiveAuction("100", nil)

	info, err := s.bidUC.GetCurrentBid(s.ctx, a.Id)
	s.Require().NoError(err)
	s.Nil(info.CurrentBid)
	s.True(info.CurrentPrice.Equal(d("100")))
	s.True(info.MinimumNextBid.Equal(d("110")))
	s.True(info.MinimumIncrement.Equal(d("10")))
	s.Equal(0, info.TotalBids)

	s.mustPlaceManualBid(a.Id, s.alice, "110")
	s.now = s.now.Add(time.Second)
	s.mustPlaceManualBid(a.Id, s.bob, "120")

	info, err = s.bidUC.GetCurrentBid(s.ctx, a.Id)
	s.Require().NoError(err)
	s.Require().NotNil(info.CurrentBid)
	s.Equal(s.bob, info.CurrentBid.Bidder)
	s.True(info.CurrentPrice.Equal(d("120")))
	s.True(info.MinimumNextBid.Equal(d("130")))
	s.Equal(2, info.TotalBids)
}

func (s *engineTestSuite) TestListBids() {
	a := s.createActiveAuction("100", nil)
	s.mustPlaceManualBid(a.Id, s.alice, "110")
	s.now = s.now.Add(time.Second)
	s.mustPlaceManualBid(a.Id, s.bob, "120")

	bids, err := s.bidUC.ListBids(s.ctx, a.Id)
	s.Require().NoError(err)
	s.Len(bids, 2)

	bids, err = s.bidUC.ListBids(s.ctx, a.Id, auction.WithBidder(s.alice))
	s.Require().NoError(err)
	s.Len(bids, 1)
	s.Equal(s.alice, bids[0].Bidder)
}

func (s *engineTestSuite) TestPerLotIncrementOverride() {
	override := d("7")
	params := &auction.CreateAuctionParams{
		Seller:        s.seller,
		Title:         "custom increment lot",
		StartingPrice: d("100"),
		BidIncrement:  &override,
		StartTime:     s.now.Add(-time.Hour),
		EndTime:       s.now.Add(24 * time.Hour),
	}
	a, err := s.auctionUC.Create(s.ctx, params)
	s.Require().NoError(err)
	_, err = s.auctionUC.Publish(s.ctx, a.Id, s.seller)
	s.Require().NoError(err)

	_, err = s.placeManualBid(a.Id, s.alice, "106")
	tooLow := &domain.BidTooLowError{}
	s.ErrorAs(err, &tooLow)
	s.True(tooLow.MinimumBid.Equal(d("107")))

	res := s.mustPlaceManualBid(a.Id, s.alice, "107")
	s.True(res.MinimumNextBid.Equal(d("114")))
}

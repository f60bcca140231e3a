package usecase

import (
	"time"

	"github.com/bidhaus/goapi/domain"
	"github.com/bidhaus/goapi/domain/auction"
)

func (s *engineTestSuite) TestSetAutoBidValidation() {
	a := s.createActiveAuction("100", nil)

	_, err := s.bidUC.SetAutoBid(s.ctx, a.Id, s.seller, d("500"))
	s.ErrorIs(err, domain.ErrSelfBid)

	_, err = s.bidUC.SetAutoBid(s.ctx, a.Id, s.alice, d("100"))
	s.ErrorIs(err, domain.ErrInvalidAmount)

	s.wallet.setBalance(s.alice, d("100"))
	_, err = s.bidUC.SetAutoBid(s.ctx, a.Id, s.alice, d("500"))
	s.ErrorIs(err, domain.ErrInsufficientFunds)

	s.wallet.setBalance(s.alice, d("1000"))
	order, err := s.bidUC.SetAutoBid(s.ctx, a.Id, s.alice, d("500"))
	s.Require().NoError(err)
	s.True(order.IsActive)
	s.True(order.MaxAmount.Equal(d("500")))
}

func (s *engineTestSuite) TestSetAutoBidReplacesStandingOrder() {
	a := s.createActiveAuction("100", nil)

	_, err := s.bidUC.SetAutoBid(s.ctx, a.Id, s.bob, d("300"))
	s.Require().NoError(err)
	s.now = s.now.Add(time.Second)
	_, err = s.bidUC.SetAutoBid(s.ctx, a.Id, s.bob, d("400"))
	s.Require().NoError(err)

	orders, err := s.autoBidRepo.FindActive(s.ctx, a.Id, "", d("0"))
	s.Require().NoError(err)
	s.Require().Len(orders, 1)
	s.True(orders[0].MaxAmount.Equal(d("400")))
}

func (s *engineTestSuite) TestSetAutoBidPlacesNoBid() {
	a := s.createActiveAuction("100", nil)

	_, err := s.bidUC.SetAutoBid(s.ctx, a.Id, s.bob, d("500"))
	s.Require().NoError(err)

	s.Empty(s.activeBids(a.Id))
	s.True(s.reloadAuction(a.Id).CurrentBid.Equal(d("100")))
}

func (s *engineTestSuite) TestAutoBidPlacesSingleCounter() {
	a := s.createActiveAuction("100", nil)
	_, err := s.bidUC.SetAutoBid(s.ctx, a.Id, s.bob, d("200"))
	s.Require().NoError(err)

	res := s.mustPlaceManualBid(a.Id, s.alice, "110")
	s.Equal(s.alice, res.Bid.Bidder)

	bids := s.activeBids(a.Id)
	s.Require().Len(bids, 2)

	counter := bids[1]
	s.Equal(s.bob, counter.Bidder)
	s.Equal(auction.BidTypeAuto, counter.BidType)
	s.True(counter.Amount.Equal(d("120")))
	s.True(counter.IsWinning)
	s.Require().NotNil(counter.MaxAutoBid)
	s.True(counter.MaxAutoBid.Equal(d("200")))

	s.True(s.reloadAuction(a.Id).CurrentBid.Equal(d("120")))

	// the auto bid goes through the same admission path, so it emits the
	// same events
	s.Equal(2, s.publisher.count(domain.EventNewBid))
	e := s.publisher.last(domain.EventOutbid)
	s.Require().NotNil(e)
	s.Equal(s.alice, e.payload.(domain.OutbidPayload).PreviousHighestBidderId)
}

func (s *engineTestSuite) TestAutoBidNoCounterAboveCeiling() {
	a := s.createActiveAuction("100", nil)
	_, err := s.bidUC.SetAutoBid(s.ctx, a.Id, s.bob, d("115"))
	s.Require().NoError(err)

	// next counter would be 120, above bob's ceiling
	s.mustPlaceManualBid(a.Id, s.alice, "110")

	s.Len(s.activeBids(a.Id), 1)
	s.True(s.reloadAuction(a.Id).CurrentBid.Equal(d("110")))
}

func (s *engineTestSuite) TestAutoBidSkipsUnfundedCandidate() {
	a := s.createActiveAuction("100", nil)

	_, err := s.bidUC.SetAutoBid(s.ctx, a.Id, s.bob, d("500"))
	s.Require().NoError(err)
	s.now = s.now.Add(time.Second)
	_, err = s.bidUC.SetAutoBid(s.ctx, a.Id, s.carol, d("300"))
	s.Require().NoError(err)

	// bob's funds evaporate after his order was registered
	s.wallet.setBalance(s.bob, d("10"))

	s.mustPlaceManualBid(a.Id, s.alice, "110")

	bids := s.activeBids(a.Id)
	s.Require().Len(bids, 2)
	s.Equal(s.carol, bids[1].Bidder)
	s.True(bids[1].Amount.Equal(d("120")))
}

func (s *engineTestSuite) TestAutoBidSingleHopPerTrigger() {
	a := s.createActiveAuction("100", nil)

	_, err := s.bidUC.SetAutoBid(s.ctx, a.Id, s.bob, d("1000"))
	s.Require().NoError(err)
	s.now = s.now.Add(time.Second)
	_, err = s.bidUC.SetAutoBid(s.ctx, a.Id, s.carol, d("900"))
	s.Require().NoError(err)

	s.mustPlaceManualBid(a.Id, s.alice, "110")

	// bob counters once; carol's standing order does not cascade within the
	// same trigger
	bids := s.activeBids(a.Id)
	s.Require().Len(bids, 2)
	s.Equal(s.bob, bids[1].Bidder)
	s.True(s.reloadAuction(a.Id).CurrentBid.Equal(d("120")))
}

func (s *engineTestSuite) TestAutoBidIgnoresTriggeringBidder() {
	a := s.createActiveAuction("100", nil)

	_, err := s.bidUC.SetAutoBid(s.ctx, a.Id, s.alice, d("500"))
	s.Require().NoError(err)

	s.mustPlaceManualBid(a.Id, s.alice, "110")

	// alice never counters herself
	s.Len(s.activeBids(a.Id), 1)
	s.True(s.reloadAuction(a.Id).CurrentBid.Equal(d("110")))
}

func (s *engineTestSuite) TestAutoBidHighestCeilingWins() {
	a := s.createActiveAuction("100", nil)

	_, err := s.bidUC.SetAutoBid(s.ctx, a.Id, s.carol, d("300"))
	s.Require().NoError(err)
	s.now = s.now.Add(time.Second)
	_, err = s.bidUC.SetAutoBid(s.ctx, a.Id, s.bob, d("600"))
	s.Require().NoError(err)

	s.mustPlaceManualBid(a.Id, s.alice, "110")

	bids := s.activeBids(a.Id)
	s.Require().Len(bids, 2)
	s.Equal(s.bob, bids[1].Bidder)
}

func (s *engineTestSuite) TestAutoBidReEvaluatesSoftClose() {
	// a short extension keeps the auto counter inside the threshold, so the
	// counter itself pushes the close out a second time
	bidUC := NewBidUseCase(&BidUseCaseCfg{
		AuctionRepo:        s.auctionRepo,
		BidRepo:            s.bidRepo,
		AutoBidRepo:        s.autoBidRepo,
		AccountRepo:        s.accountRepo,
		AuctionUseCase:     s.auctionUC,
		Wallet:             s.wallet,
		Publisher:          s.publisher,
		SoftCloseThreshold: 120 * time.Second,
		SoftCloseExtension: 60 * time.Second,
	})

	a := s.createActiveAuction("100", nil)
	_, err := bidUC.SetAutoBid(s.ctx, a.Id, s.bob, d("200"))
	s.Require().NoError(err)

	originalEnd := a.EndTime
	s.now = originalEnd.Add(-30 * time.Second)
	_, err = bidUC.PlaceBid(s.ctx, &auction.PlaceBidParams{
		AuctionId: a.Id,
		Bidder:    s.alice,
		Amount:    d("110"),
		BidType:   auction.BidTypeManual,
	})
	s.Require().NoError(err)

	// the manual bid and the auto counter each pushed the close out
	reloaded := s.reloadAuction(a.Id)
	s.Equal(2, reloaded.ExtensionCount)
	s.True(reloaded.EndTime.Equal(originalEnd.Add(2 * 60 * time.Second)))
}

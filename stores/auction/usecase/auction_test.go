package usecase

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bidhaus/goapi/domain"
	"github.com/bidhaus/goapi/domain/auction"
)

func (s *engineTestSuite) TestCreateValidation() {
	base := auction.CreateAuctionParams{
		Seller:        s.seller,
		Title:         "lot",
		StartingPrice: d("100"),
		StartTime:     s.now,
		EndTime:       s.now.Add(24 * time.Hour),
	}

	lowReserve := base
	reserve := d("50")
	lowReserve.ReservePrice = &reserve
	_, err := s.auctionUC.Create(s.ctx, &lowReserve)
	s.ErrorIs(err, domain.ErrReserveBelowStarting)

	backwards := base
	backwards.EndTime = base.StartTime.Add(-time.Hour)
	_, err = s.auctionUC.Create(s.ctx, &backwards)
	s.ErrorIs(err, domain.ErrBadParamInput)

	negative := base
	negative.StartingPrice = d("-1")
	_, err = s.auctionUC.Create(s.ctx, &negative)
	s.ErrorIs(err, domain.ErrInvalidAmount)

	a, err := s.auctionUC.Create(s.ctx, &base)
	s.Require().NoError(err)
	s.Equal(auction.StatusDraft, a.Status)
	s.True(a.CurrentBid.Equal(d("100")))
}

func (s *engineTestSuite) TestPublish() {
	future := &auction.CreateAuctionParams{
		Seller:        s.seller,
		Title:         "future lot",
		StartingPrice: d("100"),
		StartTime:     s.now.Add(time.Hour),
		EndTime:       s.now.Add(24 * time.Hour),
	}
	a, err := s.auctionUC.Create(s.ctx, future)
	s.Require().NoError(err)

	_, err = s.auctionUC.Publish(s.ctx, a.Id, s.alice)
	s.ErrorIs(err, domain.ErrForbidden)

	a, err = s.auctionUC.Publish(s.ctx, a.Id, s.seller)
	s.Require().NoError(err)
	s.Equal(auction.StatusUpcoming, a.Status)

	_, err = s.auctionUC.Publish(s.ctx, a.Id, s.seller)
	s.ErrorIs(err, domain.ErrInvalidStatusTransition)
}

func (s *engineTestSuite) TestLazyActivation() {
	params := &auction.CreateAuctionParams{
		Seller:        s.seller,
		Title:         "upcoming lot",
		StartingPrice: d("100"),
		StartTime:     s.now.Add(time.Hour),
		EndTime:       s.now.Add(24 * time.Hour),
	}
	a, err := s.auctionUC.Create(s.ctx, params)
	s.Require().NoError(err)
	_, err = s.auctionUC.Publish(s.ctx, a.Id, s.seller)
	s.Require().NoError(err)

	// not started yet
	got, err := s.auctionUC.Get(s.ctx, a.Id)
	s.Require().NoError(err)
	s.Equal(auction.StatusUpcoming, got.Status)

	s.now = s.now.Add(2 * time.Hour)
	got, err = s.auctionUC.Get(s.ctx, a.Id)
	s.Require().NoError(err)
	s.Equal(auction.StatusActive, got.Status)
}

func (s *engineTestSuite) TestExpiredAuctionStaysActiveUntilRead() {
	a := s.createActiveAuction("100", nil)
	s.now = a.EndTime.Add(time.Hour)

	// nothing touched the aggregate, so nothing finalized it
	s.Equal(auction.StatusActive, s.reloadAuction(a.Id).Status)

	got, err := s.auctionUC.Get(s.ctx, a.Id)
	s.Require().NoError(err)
	s.Equal(auction.StatusEnded, got.Status)
}

func (s *engineTestSuite) TestFinalizeReserveMet() {
	reserve := "150"
	a := s.createActiveAuction("100", &reserve)
	s.mustPlaceManualBid(a.Id, s.alice, "110")
	s.now = s.now.Add(time.Second)
	s.mustPlaceManualBid(a.Id, s.bob, "200")

	s.now = a.EndTime.Add(time.Minute)
	got, err := s.auctionUC.Get(s.ctx, a.Id)
	s.Require().NoError(err)

	s.Equal(auction.StatusEnded, got.Status)
	s.Require().NotNil(got.Winner)
	s.Equal(s.bob, *got.Winner)
	s.Require().NotNil(got.WinningBid)
	s.True(got.WinningBid.Equal(d("200")))

	s.Require().Len(s.mailer.won, 1)
	s.Equal("bob@example.com", s.mailer.won[0].email)
	s.True(s.mailer.won[0].mail.ReserveMet)
	s.True(s.mailer.won[0].mail.Amount.Equal(d("200")))

	s.Require().Len(s.mailer.ended, 1)
	s.Equal("seller@example.com", s.mailer.ended[0].email)
}

func (s *engineTestSuite) TestFinalizeReserveNotMet() {
	reserve := "500"
	a := s.createActiveAuction("100", &reserve)
	s.mustPlaceManualBid(a.Id, s.alice, "110")

	s.now = a.EndTime.Add(time.Minute)
	got, err := s.auctionUC.Get(s.ctx, a.Id)
	s.Require().NoError(err)

	s.Equal(auction.StatusEnded, got.Status)
	s.Nil(got.Winner)
	s.Nil(got.WinningBid)

	s.Empty(s.mailer.won)
	s.Require().Len(s.mailer.ended, 1)
	s.False(s.mailer.ended[0].mail.ReserveMet)
}

func (s *engineTestSuite) TestFinalizeNoBids() {
	a := s.createActiveAuction("100", nil)
	s.now = a.EndTime.Add(time.Minute)

	got, err := s.auctionUC.Get(s.ctx, a.Id)
	s.Require().NoError(err)
	s.Equal(auction.StatusEnded, got.Status)
	s.Nil(got.Winner)
	s.Empty(s.mailer.won)
	s.Len(s.mailer.ended, 1)
}

func (s *engineTestSuite) TestFinalizeIdempotent() {
	a := s.createActiveAuction("100", nil)
	s.mustPlaceManualBid(a.Id, s.alice, "110")
	s.now = a.EndTime.Add(time.Minute)

	for i := 0; i < 3; i++ {
		_, err := s.auctionUC.Get(s.ctx, a.Id)
		s.Require().NoError(err)
	}

	s.Len(s.mailer.won, 1)
	s.Len(s.mailer.ended, 1)

	got := s.reloadAuction(a.Id)
	s.True(got.WinnerNotified)
	s.True(got.SellerNotified)
}

func (s *engineTestSuite) TestFinalizeRetriesFailedMails() {
	a := s.createActiveAuction("100", nil)
	s.mustPlaceManualBid(a.Id, s.alice, "110")
	s.now = a.EndTime.Add(time.Minute)

	s.mailer.fail = true
	got, err := s.auctionUC.Get(s.ctx, a.Id)
	s.Require().NoError(err)
	// the transition is recorded even though the sends failed
	s.Equal(auction.StatusEnded, got.Status)
	s.False(got.WinnerNotified)
	s.False(got.SellerNotified)

	s.mailer.fail = false
	_, err = s.auctionUC.Get(s.ctx, a.Id)
	s.Require().NoError(err)
	s.Len(s.mailer.won, 1)
	s.Len(s.mailer.ended, 1)

	_, err = s.auctionUC.Get(s.ctx, a.Id)
	s.Require().NoError(err)
	s.Len(s.mailer.won, 1)
	s.Len(s.mailer.ended, 1)
}

func (s *engineTestSuite) TestFinalizeTieBrokenByEarliestBid() {
	a := s.createActiveAuction("100", nil)

	// equal amounts cannot enter through admission, write the ledger directly
	s.Require().NoError(s.bidRepo.Insert(s.ctx, &auction.Bid{
		Id:        uuid.NewString(),
		AuctionId: a.Id,
		Bidder:    s.bob,
		Amount:    d("150"),
		BidType:   auction.BidTypeManual,
		IsActive:  true,
		BidTime:   s.now.Add(-2 * time.Minute),
	}))
	s.Require().NoError(s.bidRepo.Insert(s.ctx, &auction.Bid{
		Id:        uuid.NewString(),
		AuctionId: a.Id,
		Bidder:    s.carol,
		Amount:    d("150"),
		BidType:   auction.BidTypeManual,
		IsWinning: true,
		IsActive:  true,
		BidTime:   s.now.Add(-time.Minute),
	}))

	s.now = a.EndTime.Add(time.Minute)
	got, err := s.auctionUC.Get(s.ctx, a.Id)
	s.Require().NoError(err)
	s.Require().NotNil(got.Winner)
	s.Equal(s.bob, *got.Winner)
}

func (s *engineTestSuite) TestConcurrentFinalizeSettlesOnce() {
	a := s.createActiveAuction("100", nil)
	s.mustPlaceManualBid(a.Id, s.alice, "110")
	s.now = a.EndTime.Add(time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.auctionUC.Get(s.ctx, a.Id)
		}()
	}
	wg.Wait()

	got := s.reloadAuction(a.Id)
	s.Equal(auction.StatusEnded, got.Status)
	s.Require().NotNil(got.Winner)
	s.Equal(s.alice, *got.Winner)
	s.Require().NotNil(got.WinningBid)
	s.True(got.WinningBid.Equal(d("110")))
}

func (s *engineTestSuite) TestPauseAndResume() {
	a := s.createActiveAuction("100", nil)

	_, err := s.auctionUC.Pause(s.ctx, a.Id, s.alice)
	s.ErrorIs(err, domain.ErrForbidden)

	paused, err := s.auctionUC.Pause(s.ctx, a.Id, s.seller)
	s.Require().NoError(err)
	s.Equal(auction.StatusPaused, paused.Status)

	_, err = s.auctionUC.Pause(s.ctx, a.Id, s.seller)
	s.ErrorIs(err, domain.ErrInvalidStatusTransition)

	resumed, err := s.auctionUC.Resume(s.ctx, a.Id, s.seller)
	s.Require().NoError(err)
	s.Equal(auction.StatusActive, resumed.Status)
}

func (s *engineTestSuite) TestResumePastEndFinalizes() {
	a := s.createActiveAuction("100", nil)
	s.mustPlaceManualBid(a.Id, s.alice, "110")

	_, err := s.auctionUC.Pause(s.ctx, a.Id, s.seller)
	s.Require().NoError(err)

	s.now = a.EndTime.Add(time.Hour)
	got, err := s.auctionUC.Resume(s.ctx, a.Id, s.seller)
	s.Require().NoError(err)
	s.Equal(auction.StatusEnded, got.Status)
	s.Require().NotNil(got.Winner)
	s.Equal(s.alice, *got.Winner)
}

func (s *engineTestSuite) TestExtend() {
	a := s.createActiveAuction("100", nil)

	_, err := s.auctionUC.Extend(s.ctx, a.Id, s.seller, a.EndTime.Add(-time.Hour))
	s.ErrorIs(err, domain.ErrEndTimeNotExtended)

	_, err = s.auctionUC.Extend(s.ctx, a.Id, s.seller, a.EndTime)
	s.ErrorIs(err, domain.ErrEndTimeNotExtended)

	newEnd := a.EndTime.Add(time.Hour)
	got, err := s.auctionUC.Extend(s.ctx, a.Id, s.seller, newEnd)
	s.Require().NoError(err)
	s.True(got.EndTime.Equal(newEnd))
}

func (s *engineTestSuite) TestCancel() {
	a := s.createActiveAuction("100", nil)
	reason := "listing mistake"

	got, err := s.auctionUC.Cancel(s.ctx, a.Id, s.seller, &reason)
	s.Require().NoError(err)
	s.Equal(auction.StatusCancelled, got.Status)
	s.Require().NotNil(got.CancelReason)
	s.Equal(reason, *got.CancelReason)

	_, err = s.auctionUC.Cancel(s.ctx, a.Id, s.seller, nil)
	s.ErrorIs(err, domain.ErrInvalidStatusTransition)
}

func (s *engineTestSuite) TestCancelAfterEndRejected() {
	a := s.createActiveAuction("100", nil)
	s.now = a.EndTime.Add(time.Minute)

	_, err := s.auctionUC.Cancel(s.ctx, a.Id, s.seller, nil)
	s.ErrorIs(err, domain.ErrInvalidStatusTransition)
	s.Equal(auction.StatusEnded, s.reloadAuction(a.Id).Status)
}

func (s *engineTestSuite) TestWatchUnwatchAndViews() {
	a := s.createActiveAuction("100", nil)

	s.Require().NoError(s.auctionUC.Watch(s.ctx, a.Id, s.alice))
	s.Require().NoError(s.auctionUC.Watch(s.ctx, a.Id, s.alice))
	s.Require().NoError(s.auctionUC.AddView(s.ctx, a.Id))

	got := s.reloadAuction(a.Id)
	s.Len(got.WatchedBy, 1)
	s.Equal(int64(1), got.Views)

	s.Require().NoError(s.auctionUC.Unwatch(s.ctx, a.Id, s.alice))
	s.Empty(s.reloadAuction(a.Id).WatchedBy)
}

func (s *engineTestSuite) TestFinalizeDue() {
	first := s.createActiveAuction("100", nil)
	second := s.createActiveAuction("100", nil)
	third := s.createActiveAuction("100", nil)
	s.mustPlaceManualBid(first.Id, s.alice, "110")

	_, err := s.auctionUC.Extend(s.ctx, third.Id, s.seller, third.EndTime.Add(48*time.Hour))
	s.Require().NoError(err)

	s.now = first.EndTime.Add(time.Minute)
	n, err := s.auctionUC.FinalizeDue(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, n)

	s.Equal(auction.StatusEnded, s.reloadAuction(first.Id).Status)
	s.Equal(auction.StatusEnded, s.reloadAuction(second.Id).Status)
	s.Equal(auction.StatusActive, s.reloadAuction(third.Id).Status)

	winner := s.reloadAuction(first.Id).Winner
	s.Require().NotNil(winner)
	s.Equal(s.alice, *winner)
}

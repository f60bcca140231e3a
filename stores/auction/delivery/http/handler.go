package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/bidhaus/goapi/base/ctx"
	"github.com/bidhaus/goapi/base/delivery"
	"github.com/bidhaus/goapi/domain"
	"github.com/bidhaus/goapi/domain/auction"
	authMiddleware "github.com/bidhaus/goapi/stores/auth/delivery/http/middleware"
)

type auctionHandler struct {
	auction auction.UseCase
	bid     auction.BidUseCase
}

func New(e *echo.Echo, authMiddleware *authMiddleware.AuthMiddleware, auctionUC auction.UseCase, bidUC auction.BidUseCase) {
	handler := &auctionHandler{
		auction: auctionUC,
		bid:     bidUC,
	}

	g := e.Group("/auctions")
	g.POST("", handler.create, authMiddleware.Auth())
	g.GET("", handler.list)
	g.GET("/:id", handler.get)
	g.POST("/:id/publish", handler.publish, authMiddleware.Auth())
	g.POST("/:id/pause", handler.pause, authMiddleware.Auth())
	g.POST("/:id/resume", handler.resume, authMiddleware.Auth())
	g.POST("/:id/extend", handler.extend, authMiddleware.Auth())
	g.POST("/:id/cancel", handler.cancel, authMiddleware.Auth())
	g.POST("/:id/watch", handler.watch, authMiddleware.Auth())
	g.POST("/:id/unwatch", handler.unwatch, authMiddleware.Auth())
	g.POST("/:id/bids", handler.placeBid, authMiddleware.Auth())
	g.GET("/:id/bids", handler.listBids)
	g.GET("/:id/current-bid", handler.currentBid)
	g.POST("/:id/autobid", handler.setAutoBid, authMiddleware.Auth())
}

func (h *auctionHandler) create(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)
	account := c.Get("account").(domain.AccountId)

	p := &auction.CreateAuctionParams{}
	if err := c.Bind(p); err != nil {
		ctx.WithField("err", err).Error("bind failed")
		return delivery.MakeJsonResp(c, http.StatusBadRequest, domain.ErrBadParamInput)
	}
	if err := c.Validate(p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}
	p.Seller = account

	res, err := h.auction.Create(ctx, p)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusCreated, res)
}

func (h *auctionHandler) list(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	type params struct {
		Status   []auction.Status `query:"status"`
		Category string           `query:"category"`
		Seller   string           `query:"seller"`
		SortBy   string           `query:"sortBy"`
		SortDir  string           `query:"sortDir"`
		Offset   int32            `query:"offset"`
		Limit    int32            `query:"limit" validate:"max=100"`
	}

	p := &params{}
	if err := c.Bind(p); err != nil {
		ctx.WithField("err", err).Error("bind failed")
		return delivery.MakeJsonResp(c, http.StatusBadRequest, domain.ErrBadParamInput)
	}
	if err := c.Validate(p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}

	opts := []auction.FindAllOptionsFunc{}
	if len(p.Status) > 0 {
		for _, st := range p.Status {
			if !st.IsValid() {
				return delivery.MakeJsonResp(c, http.StatusBadRequest, domain.ErrBadParamInput)
			}
		}
		opts = append(opts, auction.WithStatuses(p.Status...))
	}
	if p.Category != "" {
		opts = append(opts, auction.WithCategory(p.Category))
	}
	if p.Seller != "" {
		opts = append(opts, auction.WithSeller(domain.AccountId(p.Seller)))
	}
	if p.SortBy != "" {
		dir := domain.SortDirAsc
		if p.SortDir == "desc" {
			dir = domain.SortDirDesc
		}
		opts = append(opts, auction.WithSort(p.SortBy, dir))
	}
	if p.Limit > 0 {
		opts = append(opts, auction.WithPagination(p.Offset, p.Limit))
	}

	res, err := h.auction.FindAll(ctx, opts...)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}

func (h *auctionHandler) get(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	res, err := h.auction.Get(ctx, c.Param("id"))
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}

	if err := h.auction.AddView(ctx, res.Id); err != nil {
		ctx.WithField("err", err).Warn("auction.AddView failed")
	}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}

func (h *auctionHandler) publish(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)
	account := c.Get("account").(domain.AccountId)

	res, err := h.auction.Publish(ctx, c.Param("id"), account)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}

func (h *auctionHandler) pause(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)
	account := c.Get("account").(domain.AccountId)

	res, err := h.auction.Pause(ctx, c.Param("id"), account)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}

func (h *auctionHandler) resume(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)
	account := c.Get("account").(domain.AccountId)

	res, err := h.auction.Resume(ctx, c.Param("id"), account)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}

func (h *auctionHandler) extend(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)
	account := c.Get("account").(domain.AccountId)

	type params struct {
		EndTime time.Time `json:"endTime" validate:"required"`
	}

	p := &params{}
	if err := c.Bind(p); err != nil {
		ctx.WithField("err", err).Error("bind failed")
		return delivery.MakeJsonResp(c, http.StatusBadRequest, domain.ErrBadParamInput)
	}
	if err := c.Validate(p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}

	res, err := h.auction.Extend(ctx, c.Param("id"), account, p.EndTime)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}

func (h *auctionHandler) cancel(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)
	account := c.Get("account").(domain.AccountId)

	type params struct {
		Reason *string `json:"reason"`
	}

	p := &params{}
	if err := c.Bind(p); err != nil {
		ctx.WithField("err", err).Error("bind failed")
		return delivery.MakeJsonResp(c, http.StatusBadRequest, domain.ErrBadParamInput)
	}

	res, err := h.auction.Cancel(ctx, c.Param("id"), account, p.Reason)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}

func (h *auctionHandler) watch(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)
	account := c.Get("account").(domain.AccountId)

	if err := h.auction.Watch(ctx, c.Param("id"), account); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, "ok")
}

func (h *auctionHandler) unwatch(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)
	account := c.Get("account").(domain.AccountId)

	if err := h.auction.Unwatch(ctx, c.Param("id"), account); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, "ok")
}

func (h *auctionHandler) placeBid(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)
	account := c.Get("account").(domain.AccountId)

	type params struct {
		Amount decimal.Decimal `json:"amount" validate:"required"`
	}

	p := &params{}
	if err := c.Bind(p); err != nil {
		ctx.WithField("err", err).Error("bind failed")
		return delivery.MakeJsonResp(c, http.StatusBadRequest, domain.ErrBadParamInput)
	}

	res, err := h.bid.PlaceBid(ctx, &auction.PlaceBidParams{
		AuctionId: c.Param("id"),
		Bidder:    account,
		Amount:    p.Amount,
		BidType:   auction.BidTypeManual,
		IP:        c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	})
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusCreated, res)
}

func (h *auctionHandler) listBids(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	type params struct {
		Offset int32 `query:"offset"`
		Limit  int32 `query:"limit" validate:"max=100"`
	}

	p := &params{}
	if err := c.Bind(p); err != nil {
		ctx.WithField("err", err).Error("bind failed")
		return delivery.MakeJsonResp(c, http.StatusBadRequest, domain.ErrBadParamInput)
	}
	if err := c.Validate(p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}

	opts := []auction.BidFindAllOptionsFunc{auction.WithIsActive(true)}
	if p.Limit > 0 {
		opts = append(opts, auction.WithBidPagination(p.Offset, p.Limit))
	}

	res, err := h.bid.ListBids(ctx, c.Param("id"), opts...)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}

func (h *auctionHandler) currentBid(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	res, err := h.bid.GetCurrentBid(ctx, c.Param("id"))
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}

func (h *auctionHandler) setAutoBid(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)
	account := c.Get("account").(domain.AccountId)

	type params struct {
		MaxAmount decimal.Decimal `json:"maxAmount" validate:"required"`
	}

	p := &params{}
	if err := c.Bind(p); err != nil {
		ctx.WithField("err", err).Error("bind failed")
		return delivery.MakeJsonResp(c, http.StatusBadRequest, domain.ErrBadParamInput)
	}

	res, err := h.bid.SetAutoBid(ctx, c.Param("id"), account, p.MaxAmount)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusCreated, res)
}

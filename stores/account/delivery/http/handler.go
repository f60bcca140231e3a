package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/bidhaus/goapi/base/ctx"
	"github.com/bidhaus/goapi/base/delivery"
	"github.com/bidhaus/goapi/domain"
	"github.com/bidhaus/goapi/domain/account"
	"github.com/bidhaus/goapi/domain/auction"
	authMiddleware "github.com/bidhaus/goapi/stores/auth/delivery/http/middleware"
)

type accountHandler struct {
	account account.UseCase
	auction auction.UseCase
}

func New(e *echo.Echo, authMiddleware *authMiddleware.AuthMiddleware, accountUC account.UseCase, auctionUC auction.UseCase) {
	handler := &accountHandler{
		account: accountUC,
		auction: auctionUC,
	}

	g := e.Group("/accounts")
	g.POST("", handler.register)
	g.GET("/:id", handler.get)
	g.POST("/deposit", handler.deposit, authMiddleware.Auth())
	g.GET("/watched", handler.watched, authMiddleware.Auth())
}

func (h *accountHandler) register(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	p := &account.RegisterParams{}
	if err := c.Bind(p); err != nil {
		ctx.WithField("err", err).Error("bind failed")
		return delivery.MakeJsonResp(c, http.StatusBadRequest, domain.ErrBadParamInput)
	}
	if err := c.Validate(p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}

	res, err := h.account.Register(ctx, p)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusCreated, res)
}

func (h *accountHandler) get(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	res, err := h.account.Get(ctx, domain.AccountId(c.Param("id")))
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}

func (h *accountHandler) deposit(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)
	acc := c.Get("account").(domain.AccountId)

	type params struct {
		Amount decimal.Decimal `json:"amount" validate:"required"`
	}

	p := &params{}
	if err := c.Bind(p); err != nil {
		ctx.WithField("err", err).Error("bind failed")
		return delivery.MakeJsonResp(c, http.StatusBadRequest, domain.ErrBadParamInput)
	}

	res, err := h.account.Deposit(ctx, acc, p.Amount)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}

func (h *accountHandler) watched(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)
	acc := c.Get("account").(domain.AccountId)

	res, err := h.auction.FindAll(ctx, auction.WithWatcher(acc))
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}

package delivery

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bidhaus/goapi/domain"
	"github.com/bidhaus/goapi/service/query"
)

type JsonResponseStatus string

const (
	JsonResponseStatusSuccess JsonResponseStatus = "success"
	JsonResponseStatusFail    JsonResponseStatus = "fail"
)

type JsonResponse struct {
	Data   interface{}        `json:"data"`
	Status JsonResponseStatus `json:"status"`
}

// MakeJsonResp wraps data into the response envelope. When data is an error,
// well-known domain sentinels override the provided status code.
func MakeJsonResp(c echo.Context, status int, data interface{}) error {
	if err, ok := data.(error); ok {
		switch {
		case errors.Is(err, domain.ErrNotFound) || errors.Is(err, query.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, domain.ErrBadParamInput) || errors.Is(err, domain.ErrInvalidAmount):
			status = http.StatusBadRequest
		case errors.Is(err, domain.ErrInsufficientFunds):
			status = http.StatusPaymentRequired
		case errors.Is(err, domain.ErrForbidden):
			status = http.StatusForbidden
		case errors.Is(err, domain.ErrAuctionNotActive),
			errors.Is(err, domain.ErrAuctionEnded),
			errors.Is(err, domain.ErrSelfBid),
			errors.Is(err, domain.ErrAlreadyHighestBidder),
			errors.Is(err, domain.ErrInvalidStatusTransition),
			errors.Is(err, domain.ErrStaleWrite):
			status = http.StatusConflict
		}

		var tooLow *domain.BidTooLowError
		if errors.As(err, &tooLow) {
			status = http.StatusUnprocessableEntity
		}

		data = err.Error()
	}

	if status >= 400 {
		return c.JSON(status, JsonResponse{data, JsonResponseStatusFail})
	}

	if status >= 200 && status < 300 {
		return c.JSON(status, JsonResponse{data, JsonResponseStatusSuccess})
	}

	return c.JSON(status, data)
}

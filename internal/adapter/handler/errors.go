package handler

import (
	"errors"
	"net/http"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
)

// errorResponse maps a service error to a status and a message safe to show
// the shopper.
func errorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrCouponEmpty):
		return http.StatusBadRequest, "Coupon code is required"
	case errors.Is(err, service.ErrCouponNotFound):
		return http.StatusBadRequest, "Invalid coupon code"
	case errors.Is(err, service.ErrCouponExpired):
		return http.StatusBadRequest, "Coupon has expired"
	case errors.Is(err, service.ErrCouponExhausted):
		return http.StatusBadRequest, "Coupon usage limit reached"
	case errors.Is(err, service.ErrMissingGuest):
		return http.StatusBadRequest, "missing guest identifier"
	case errors.Is(err, service.ErrEmptyCart):
		return http.StatusBadRequest, "cart is empty"
	case errors.Is(err, service.ErrInvalidQuantity):
		return http.StatusBadRequest, "invalid quantity"
	case errors.Is(err, service.ErrProductNotFound):
		return http.StatusNotFound, "product not found"
	case errors.Is(err, domain.ErrInsufficientStock):
		return http.StatusConflict, err.Error()
	case errors.Is(err, service.ErrUpstreamTimeout):
		return http.StatusGatewayTimeout, "upstream timeout, please retry"
	case errors.Is(err, service.ErrPaymentGateway):
		return http.StatusBadGateway, "payment provider unavailable"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// webhookErrorResponse maps payment provider deliveries: the event itself is
// rejected with 400, any other failure is a 500 the provider retries.
func webhookErrorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidSignature):
		return http.StatusBadRequest, "invalid signature"
	case errors.Is(err, service.ErrMalformedEvent), errors.Is(err, service.ErrMissingMetadata):
		return http.StatusBadRequest, "malformed event"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

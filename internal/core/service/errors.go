package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rl1809/storefront/internal/core/domain"
)

var (
	ErrMissingGuest    = errors.New("missing guest identifier")
	ErrEmptyCart       = errors.New("cart is empty")
	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrProductNotFound = errors.New("product not found")

	ErrCouponEmpty     = errors.New("coupon code is required")
	ErrCouponNotFound  = errors.New("invalid coupon code")
	ErrCouponExpired   = errors.New("coupon has expired")
	ErrCouponExhausted = errors.New("coupon usage limit reached")

	ErrInsufficientStock = domain.ErrInsufficientStock

	ErrPaymentGateway  = errors.New("payment gateway error")
	ErrUpstreamTimeout = errors.New("upstream timeout")

	ErrMalformedEvent        = errors.New("malformed payment event")
	ErrMissingMetadata       = errors.New("payment session missing guest metadata")
	ErrFulfillmentInProgress = errors.New("fulfillment already in progress")
)

// withTimeout bounds a store or gateway call. A deadline hit is reported as
// ErrUpstreamTimeout so callers can retry.
func withTimeout(ctx context.Context, d time.Duration, fn func(context.Context) error) error {
	if d <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	err := fn(ctx)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrUpstreamTimeout, err)
	}
	return err
}

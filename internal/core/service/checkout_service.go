package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

type CheckoutRequest struct {
	GuestID    string
	CouponCode string
}

type CheckoutResult struct {
	SessionID     string
	RedirectURL   string
	ReservationID string
	Subtotal      decimal.Decimal
	Total         decimal.Decimal
	Coupon        *domain.AppliedCoupon
}

type CheckoutService struct {
	carts   *CartService
	coupons *CouponService
	cache   port.CacheRepository
	gateway port.PaymentGateway
	logger  *log.Logger
	timeout time.Duration
	newID   func() string
}

func NewCheckoutService(carts *CartService, coupons *CouponService, cache port.CacheRepository, gateway port.PaymentGateway, logger *log.Logger, timeout time.Duration) *CheckoutService {
	return &CheckoutService{
		carts:   carts,
		coupons: coupons,
		cache:   cache,
		gateway: gateway,
		logger:  logger,
		timeout: timeout,
		newID:   uuid.NewString,
	}
}

// Checkout reserves stock for the guest's whole cart and opens a payment
// session. A reservation is always released if no session comes out of it.
func (s *CheckoutService) Checkout(ctx context.Context, req CheckoutRequest) (CheckoutResult, error) {
	if req.GuestID == "" {
		return CheckoutResult{}, ErrMissingGuest
	}

	cart, err := s.carts.GetCart(ctx, req.GuestID)
	if err != nil {
		return CheckoutResult{}, err
	}
	if len(cart.Lines) == 0 {
		return CheckoutResult{}, ErrEmptyCart
	}

	result := CheckoutResult{Subtotal: cart.Total, Total: cart.Total}
	if strings.TrimSpace(req.CouponCode) != "" {
		applied, err := s.coupons.Apply(ctx, req.CouponCode)
		if err != nil {
			return CheckoutResult{}, err
		}
		result.Coupon = &applied
		result.Total = applied.Apply(cart.Total)
	}

	reservation := domain.Reservation{
		ID:        s.newID(),
		GuestID:   req.GuestID,
		Lines:     domain.StockLines(cart.Lines),
		CreatedAt: time.Now(),
	}

	var reserved domain.ReserveResult
	err = withTimeout(ctx, s.timeout, func(ctx context.Context) error {
		var err error
		reserved, err = s.cache.ReserveStock(ctx, reservation)
		return err
	})
	if err != nil {
		// The outcome is unknown after a failed call; releasing a
		// reservation that was never written is a no-op.
		s.release(ctx, reservation.ID)
		return CheckoutResult{}, fmt.Errorf("reserve stock: %w", err)
	}
	if !reserved.OK() {
		d := reserved.Depleted[0]
		return CheckoutResult{}, fmt.Errorf("%w: product %s requested %d available %d",
			domain.ErrInsufficientStock, d.ProductID, d.Requested, d.Available)
	}

	var session domain.PaymentSession
	err = withTimeout(ctx, s.timeout, func(ctx context.Context) error {
		var err error
		session, err = s.gateway.CreateSession(ctx, domain.SessionRequest{
			GuestID:       req.GuestID,
			ReservationID: reservation.ID,
			Lines:         cart.Lines,
			Coupon:        result.Coupon,
		})
		return err
	})
	if err != nil {
		s.release(ctx, reservation.ID)
		return CheckoutResult{}, fmt.Errorf("%w: %w", ErrPaymentGateway, err)
	}

	s.logger.Printf("checkout: session created guest=%s session=%s reservation=%s total=%s",
		req.GuestID, session.ID, reservation.ID, result.Total.StringFixed(2))

	result.SessionID = session.ID
	result.RedirectURL = session.URL
	result.ReservationID = reservation.ID
	return result, nil
}

// release is best-effort compensation; failures are logged, not returned.
func (s *CheckoutService) release(ctx context.Context, reservationID string) {
	ctx = context.WithoutCancel(ctx)
	err := withTimeout(ctx, s.timeout, func(ctx context.Context) error {
		_, err := s.cache.ReleaseStock(ctx, reservationID)
		return err
	})
	if err != nil {
		s.logger.Printf("checkout: CRITICAL release failed reservation=%s: %v", reservationID, err)
		return
	}
	s.logger.Printf("checkout: released reservation=%s", reservationID)
}

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

// CouponService validates codes before checkout. The result is advisory:
// usage is counted again, authoritatively, when the order is fulfilled.
type CouponService struct {
	db      port.DatabaseRepository
	timeout time.Duration
	now     func() time.Time
}

func NewCouponService(db port.DatabaseRepository, timeout time.Duration) *CouponService {
	return &CouponService{db: db, timeout: timeout, now: time.Now}
}

func (s *CouponService) Apply(ctx context.Context, raw string) (domain.AppliedCoupon, error) {
	code := domain.NormalizeCouponCode(raw)
	if code == "" {
		return domain.AppliedCoupon{}, ErrCouponEmpty
	}

	var coupon *domain.Coupon
	err := withTimeout(ctx, s.timeout, func(ctx context.Context) error {
		c, err := s.db.GetCouponByCode(ctx, code)
		coupon = c
		return err
	})
	if err != nil {
		return domain.AppliedCoupon{}, fmt.Errorf("lookup coupon: %w", err)
	}
	if coupon == nil {
		return domain.AppliedCoupon{}, ErrCouponNotFound
	}
	if coupon.Expired(s.now()) {
		return domain.AppliedCoupon{}, ErrCouponExpired
	}
	if coupon.Exhausted() {
		return domain.AppliedCoupon{}, ErrCouponExhausted
	}

	return domain.AppliedCoupon{
		ID:              coupon.ID,
		Code:            coupon.Code,
		GatewayCouponID: coupon.GatewayCouponID,
		PercentOff:      coupon.PercentOff,
	}, nil
}

package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type Coupon struct {
	ID              string
	Code            string
	ExpiresAt       time.Time
	MaxRedemptions  *int // nil means unlimited
	UsedCount       int
	PercentOff      decimal.Decimal
	GatewayCouponID string
}

func (c Coupon) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

func (c Coupon) Exhausted() bool {
	return c.MaxRedemptions != nil && c.UsedCount >= *c.MaxRedemptions
}

// AppliedCoupon is what checkout carries forward after validation.
type AppliedCoupon struct {
	ID              string          `json:"id"`
	Code            string          `json:"code"`
	GatewayCouponID string          `json:"gateway_coupon_id"`
	PercentOff      decimal.Decimal `json:"percent_off"`
}

// Apply returns amount reduced by the coupon's percentage, rounded to cents.
func (a AppliedCoupon) Apply(amount decimal.Decimal) decimal.Decimal {
	off := amount.Mul(a.PercentOff).Div(hundred)
	return amount.Sub(off).Round(2)
}

func NormalizeCouponCode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// ParsePercent converts a stored discount value into a percentage in (0, 100].
// Stores have returned both numeric and string columns for this field.
func ParsePercent(v any) (decimal.Decimal, error) {
	var d decimal.Decimal
	switch t := v.(type) {
	case decimal.Decimal:
		d = t
	case string:
		parsed, err := decimal.NewFromString(strings.TrimSpace(t))
		if err != nil {
			return decimal.Zero, fmt.Errorf("parse percent %q: %w", t, err)
		}
		d = parsed
	case []byte:
		return ParsePercent(string(t))
	case float64:
		d = decimal.NewFromFloat(t)
	case int:
		d = decimal.NewFromInt(int64(t))
	case int64:
		d = decimal.NewFromInt(t)
	default:
		return decimal.Zero, fmt.Errorf("parse percent: unsupported type %T", v)
	}
	if !d.IsPositive() || d.GreaterThan(hundred) {
		return decimal.Zero, fmt.Errorf("percent %s out of range", d)
	}
	return d, nil
}

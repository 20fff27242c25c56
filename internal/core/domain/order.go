package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Order is created once per completed payment session; PaymentSessionID is
// unique.
type Order struct {
	ID               string          `json:"id"`
	PaymentSessionID string          `json:"payment_session_id"`
	GuestID          string          `json:"guest_id"`
	CustomerEmail    string          `json:"customer_email"`
	AmountTotal      decimal.Decimal `json:"amount_total"`
	CouponID         string          `json:"coupon_id,omitempty"`
	Status           OrderStatus     `json:"status"`
	Lines            []StockLine     `json:"lines"`
	CreatedAt        time.Time       `json:"created_at"`
}

// Fulfillment is the input of the atomic order-creation procedure. Empty
// Lines means the guest's cart contents are consumed instead.
type Fulfillment struct {
	OrderID          string
	GuestID          string
	PaymentSessionID string
	CustomerEmail    string
	AmountTotal      decimal.Decimal
	CouponID         string
	Lines            []StockLine
}

type FulfillmentResult struct {
	Order              Order
	CouponOverRedeemed bool
	// MissingProducts were paid for but no longer exist in the catalog, so
	// they have no order line.
	MissingProducts []string
}

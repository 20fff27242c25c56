package domain

import "github.com/shopspring/decimal"

// Session metadata keys; the only channel correlating webhook events back to
// a guest, reservation, and coupon.
const (
	MetadataGuestID       = "guest_id"
	MetadataReservationID = "reservation_id"
	MetadataCouponID      = "coupon_id"
)

type SessionRequest struct {
	GuestID       string
	ReservationID string
	Lines         []CartLine
	Coupon        *AppliedCoupon
}

type PaymentSession struct {
	ID  string
	URL string
}

type PaymentEventType string

const (
	PaymentEventSessionCompleted PaymentEventType = "checkout.session.completed"
	PaymentEventSessionExpired   PaymentEventType = "checkout.session.expired"
)

type PaymentEvent struct {
	ID            string
	Type          PaymentEventType
	SessionID     string
	GuestID       string
	ReservationID string
	CouponID      string
	CustomerEmail string
	AmountTotal   decimal.Decimal
}

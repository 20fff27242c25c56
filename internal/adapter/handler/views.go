package handler

import (
	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
)

type CartLineView struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	ImageURL  string `json:"image_url,omitempty"`
	UnitPrice string `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	Subtotal  string `json:"subtotal"`
}

type CartView struct {
	GuestID string         `json:"guest_id"`
	Lines   []CartLineView `json:"lines"`
	Total   string         `json:"total"`
}

func newCartView(c domain.Cart) CartView {
	v := CartView{GuestID: c.GuestID, Lines: make([]CartLineView, 0, len(c.Lines)), Total: c.Total.StringFixed(2)}
	for _, l := range c.Lines {
		v.Lines = append(v.Lines, CartLineView{
			ProductID: l.Product.ID,
			Name:      l.Product.Name,
			ImageURL:  l.Product.ImageURL,
			UnitPrice: l.Product.Price.StringFixed(2),
			Quantity:  l.Quantity,
			Subtotal:  l.Subtotal().StringFixed(2),
		})
	}
	return v
}

type CouponView struct {
	Code       string `json:"code"`
	PercentOff string `json:"percent_off"`
	Subtotal   string `json:"subtotal"`
	Total      string `json:"total"`
}

func newCouponView(c domain.AppliedCoupon, cart domain.Cart) CouponView {
	return CouponView{
		Code:       c.Code,
		PercentOff: c.PercentOff.String(),
		Subtotal:   cart.Total.StringFixed(2),
		Total:      c.Apply(cart.Total).StringFixed(2),
	}
}

type CheckoutView struct {
	SessionID     string `json:"session_id"`
	RedirectURL   string `json:"redirect_url"`
	ReservationID string `json:"reservation_id"`
	Subtotal      string `json:"subtotal"`
	Total         string `json:"total"`
	CouponCode    string `json:"coupon_code,omitempty"`
}

func newCheckoutView(r service.CheckoutResult) CheckoutView {
	v := CheckoutView{
		SessionID:     r.SessionID,
		RedirectURL:   r.RedirectURL,
		ReservationID: r.ReservationID,
		Subtotal:      r.Subtotal.StringFixed(2),
		Total:         r.Total.StringFixed(2),
	}
	if r.Coupon != nil {
		v.CouponCode = r.Coupon.Code
	}
	return v
}

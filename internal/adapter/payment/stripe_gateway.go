package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/rl1809/storefront/internal/core/domain"
)

// Stripe refuses sessions that expire sooner than this.
const minSessionTTL = 30 * time.Minute

var hundred = decimal.NewFromInt(100)

type sessionCreator interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type Config struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
	SuccessURL    string
	CancelURL     string
	SessionTTL    time.Duration
}

type StripeGateway struct {
	sessions sessionCreator
	cfg      Config
	now      func() time.Time
}

func NewStripeGateway(cfg Config) *StripeGateway {
	sc := client.New(cfg.SecretKey, nil)
	return newStripeGateway(sc.CheckoutSessions, cfg)
}

func newStripeGateway(sessions sessionCreator, cfg Config) *StripeGateway {
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	if cfg.SessionTTL < minSessionTTL {
		cfg.SessionTTL = minSessionTTL
	}
	return &StripeGateway{sessions: sessions, cfg: cfg, now: time.Now}
}

func (g *StripeGateway) CreateSession(ctx context.Context, req domain.SessionRequest) (domain.PaymentSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(g.cfg.SuccessURL),
		CancelURL:         stripe.String(g.cfg.CancelURL),
		ClientReferenceID: stripe.String(req.GuestID),
		ExpiresAt:         stripe.Int64(g.now().Add(g.cfg.SessionTTL).Unix()),
		Metadata: map[string]string{
			domain.MetadataGuestID:       req.GuestID,
			domain.MetadataReservationID: req.ReservationID,
		},
	}
	params.Context = ctx

	for _, l := range req.Lines {
		item := &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(g.cfg.Currency),
				UnitAmount: stripe.Int64(minorUnits(l.Product.Price)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(l.Product.Name),
				},
			},
			Quantity: stripe.Int64(int64(l.Quantity)),
		}
		if l.Product.ImageURL != "" && strings.HasPrefix(l.Product.ImageURL, "http") {
			item.PriceData.ProductData.Images = []*string{stripe.String(l.Product.ImageURL)}
		}
		params.LineItems = append(params.LineItems, item)
	}

	if req.Coupon != nil {
		params.Metadata[domain.MetadataCouponID] = req.Coupon.ID
		if req.Coupon.GatewayCouponID != "" {
			params.Discounts = []*stripe.CheckoutSessionDiscountParams{
				{Coupon: stripe.String(req.Coupon.GatewayCouponID)},
			}
		}
	}

	s, err := g.sessions.New(params)
	if err != nil {
		return domain.PaymentSession{}, fmt.Errorf("create checkout session: %w", err)
	}
	return domain.PaymentSession{ID: s.ID, URL: s.URL}, nil
}

func (g *StripeGateway) ParseEvent(payload []byte, signature string) (domain.PaymentEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.cfg.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		if isSignatureError(err) {
			return domain.PaymentEvent{}, fmt.Errorf("%w: %w", domain.ErrInvalidSignature, err)
		}
		return domain.PaymentEvent{}, fmt.Errorf("decode event: %w", err)
	}

	ev := domain.PaymentEvent{ID: event.ID, Type: domain.PaymentEventType(event.Type)}
	switch ev.Type {
	case domain.PaymentEventSessionCompleted, domain.PaymentEventSessionExpired:
	default:
		return ev, nil
	}

	if event.Data == nil {
		return domain.PaymentEvent{}, errors.New("event has no data")
	}
	var s stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
		return domain.PaymentEvent{}, fmt.Errorf("decode checkout session: %w", err)
	}

	ev.SessionID = s.ID
	ev.GuestID = s.Metadata[domain.MetadataGuestID]
	ev.ReservationID = s.Metadata[domain.MetadataReservationID]
	ev.CouponID = s.Metadata[domain.MetadataCouponID]
	ev.AmountTotal = decimal.New(s.AmountTotal, -2)
	ev.CustomerEmail = s.CustomerEmail
	if s.CustomerDetails != nil && s.CustomerDetails.Email != "" {
		ev.CustomerEmail = s.CustomerDetails.Email
	}
	return ev, nil
}

func isSignatureError(err error) bool {
	return errors.Is(err, webhook.ErrNotSigned) ||
		errors.Is(err, webhook.ErrInvalidHeader) ||
		errors.Is(err, webhook.ErrNoValidSignature) ||
		errors.Is(err, webhook.ErrTooOld)
}

// minorUnits converts a two-decimal price to cents.
func minorUnits(price decimal.Decimal) int64 {
	return price.Mul(hundred).Round(0).IntPart()
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

const (
	sessionClaimPrefix = "webhook:session:"
	defaultClaimTTL    = time.Minute
)

type WebhookOutcome string

const (
	OutcomeFulfilled WebhookOutcome = "fulfilled"
	OutcomeDuplicate WebhookOutcome = "duplicate"
	OutcomeReleased  WebhookOutcome = "released"
	OutcomeSkipped   WebhookOutcome = "skipped"
	OutcomeIgnored   WebhookOutcome = "ignored"
)

type WebhookResult struct {
	Outcome   WebhookOutcome
	EventType domain.PaymentEventType
	SessionID string
	OrderID   string
}

// FulfillmentService is the only consumer of payment provider events.
// Redelivery is safe: the payment session id is the idempotency key.
type FulfillmentService struct {
	db        port.DatabaseRepository
	cache     port.CacheRepository
	gateway   port.PaymentGateway
	publisher port.EventPublisher
	logger    *log.Logger
	timeout   time.Duration
	claimTTL  time.Duration
	newID     func() string
}

func NewFulfillmentService(db port.DatabaseRepository, cache port.CacheRepository, gateway port.PaymentGateway, publisher port.EventPublisher, logger *log.Logger, timeout time.Duration) *FulfillmentService {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	return &FulfillmentService{
		db:        db,
		cache:     cache,
		gateway:   gateway,
		publisher: publisher,
		logger:    logger,
		timeout:   timeout,
		claimTTL:  defaultClaimTTL,
		newID:     uuid.NewString,
	}
}

func (s *FulfillmentService) HandleWebhook(ctx context.Context, payload []byte, signature string) (WebhookResult, error) {
	event, err := s.gateway.ParseEvent(payload, signature)
	if err != nil {
		s.logger.Printf("webhook: CRITICAL rejected event: %v", err)
		if errors.Is(err, domain.ErrInvalidSignature) {
			return WebhookResult{}, err
		}
		return WebhookResult{}, fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}

	switch event.Type {
	case domain.PaymentEventSessionCompleted:
		return s.fulfill(ctx, event)
	case domain.PaymentEventSessionExpired:
		return s.expire(ctx, event)
	default:
		s.logger.Printf("webhook: ignoring event type=%s id=%s", event.Type, event.ID)
		return WebhookResult{Outcome: OutcomeIgnored, EventType: event.Type}, nil
	}
}

func (s *FulfillmentService) fulfill(ctx context.Context, ev domain.PaymentEvent) (WebhookResult, error) {
	res := WebhookResult{EventType: ev.Type, SessionID: ev.SessionID}
	if ev.SessionID == "" {
		return res, fmt.Errorf("%w: missing session id", ErrMalformedEvent)
	}

	claimKey := sessionClaimPrefix + ev.SessionID
	claimed, err := s.cache.SetIdempotency(ctx, claimKey, s.claimTTL)
	switch {
	case err != nil:
		// The order table's unique key still guards against duplicates.
		s.logger.Printf("webhook: claim unavailable session=%s: %v", ev.SessionID, err)
	case !claimed:
		return res, ErrFulfillmentInProgress
	}
	// The claim only serialises in-flight deliveries; the order row is the
	// lasting record, so the claim is dropped once processing ends.
	defer func() {
		if claimed {
			if err := s.cache.ClearIdempotency(context.WithoutCancel(ctx), claimKey); err != nil {
				s.logger.Printf("webhook: clear claim failed session=%s: %v", ev.SessionID, err)
			}
		}
	}()

	var existing *domain.Order
	err = withTimeout(ctx, s.timeout, func(ctx context.Context) error {
		var err error
		existing, err = s.db.GetOrderBySession(ctx, ev.SessionID)
		return err
	})
	if err != nil {
		return res, fmt.Errorf("lookup order session=%s: %w", ev.SessionID, err)
	}
	if existing != nil {
		res.Outcome = OutcomeDuplicate
		res.OrderID = existing.ID
		s.logger.Printf("webhook: session=%s already fulfilled order=%s", ev.SessionID, existing.ID)
		return res, s.consume(ctx, ev)
	}

	if ev.GuestID == "" {
		s.logger.Printf("webhook: CRITICAL session=%s has no guest metadata", ev.SessionID)
		return res, ErrMissingMetadata
	}

	var lines []domain.StockLine
	if ev.ReservationID != "" {
		var r *domain.Reservation
		err := withTimeout(ctx, s.timeout, func(ctx context.Context) error {
			var err error
			r, err = s.cache.GetReservation(ctx, ev.ReservationID)
			return err
		})
		switch {
		case err != nil:
			s.logger.Printf("webhook: reservation lookup failed reservation=%s, consuming cart: %v", ev.ReservationID, err)
		case r != nil:
			lines = r.Lines
		}
	}

	var result domain.FulfillmentResult
	err = withTimeout(ctx, s.timeout, func(ctx context.Context) error {
		var err error
		result, err = s.db.FulfillOrder(ctx, domain.Fulfillment{
			OrderID:          s.newID(),
			GuestID:          ev.GuestID,
			PaymentSessionID: ev.SessionID,
			CustomerEmail:    ev.CustomerEmail,
			AmountTotal:      ev.AmountTotal,
			CouponID:         ev.CouponID,
			Lines:            lines,
		})
		return err
	})
	if errors.Is(err, domain.ErrOrderExists) {
		res.Outcome = OutcomeDuplicate
		s.logger.Printf("webhook: session=%s fulfilled concurrently", ev.SessionID)
		return res, s.consume(ctx, ev)
	}
	if err != nil {
		return res, fmt.Errorf("fulfill session=%s: %w", ev.SessionID, err)
	}

	order := result.Order
	if result.CouponOverRedeemed {
		s.logger.Printf("webhook: coupon=%s over its redemption limit, order=%s fulfilled anyway", ev.CouponID, order.ID)
	}
	if len(result.MissingProducts) > 0 {
		s.logger.Printf("webhook: CRITICAL order=%s paid for products no longer in catalog: %v", order.ID, result.MissingProducts)
	}

	err = withTimeout(ctx, s.timeout, func(ctx context.Context) error {
		return s.publisher.PublishOrderFulfilled(ctx, order)
	})
	if err != nil {
		s.logger.Printf("webhook: publish order fulfilled failed order=%s: %v", order.ID, err)
	}

	s.logger.Printf("webhook: fulfilled session=%s order=%s guest=%s amount=%s",
		ev.SessionID, order.ID, ev.GuestID, order.AmountTotal.StringFixed(2))

	res.Outcome = OutcomeFulfilled
	res.OrderID = order.ID
	return res, s.consume(ctx, ev)
}

// consume retires the sold reservation. Duplicate deliveries call it too, so
// a failed consume is retried with the provider's redelivery.
func (s *FulfillmentService) consume(ctx context.Context, ev domain.PaymentEvent) error {
	if ev.ReservationID == "" {
		return nil
	}
	err := withTimeout(ctx, s.timeout, func(ctx context.Context) error {
		_, err := s.cache.ConsumeReservation(ctx, ev.ReservationID)
		return err
	})
	if err != nil {
		s.logger.Printf("webhook: CRITICAL consume reservation failed reservation=%s session=%s: %v", ev.ReservationID, ev.SessionID, err)
		return fmt.Errorf("consume reservation=%s: %w", ev.ReservationID, err)
	}
	return nil
}

// expire returns the stock held for an abandoned session. Release is
// idempotent, so a failure is returned for the provider to retry.
func (s *FulfillmentService) expire(ctx context.Context, ev domain.PaymentEvent) (WebhookResult, error) {
	res := WebhookResult{EventType: ev.Type, SessionID: ev.SessionID}
	if ev.GuestID == "" {
		s.logger.Printf("webhook: expired session=%s has no guest, nothing to release", ev.SessionID)
		res.Outcome = OutcomeSkipped
		return res, nil
	}

	ids := []string{ev.ReservationID}
	if ev.ReservationID == "" {
		err := withTimeout(ctx, s.timeout, func(ctx context.Context) error {
			var err error
			ids, err = s.cache.ListGuestReservations(ctx, ev.GuestID)
			return err
		})
		if err != nil {
			return res, fmt.Errorf("list reservations guest=%s: %w", ev.GuestID, err)
		}
	}

	for _, id := range ids {
		var lines []domain.StockLine
		err := withTimeout(ctx, s.timeout, func(ctx context.Context) error {
			var err error
			lines, err = s.cache.ReleaseStock(ctx, id)
			return err
		})
		if err != nil {
			return res, fmt.Errorf("release reservation=%s: %w", id, err)
		}
		if lines == nil {
			continue
		}
		s.logger.Printf("webhook: released reservation=%s session=%s lines=%d", id, ev.SessionID, len(lines))
		err = withTimeout(ctx, s.timeout, func(ctx context.Context) error {
			return s.publisher.PublishStockReleased(ctx, id, ev.GuestID, lines)
		})
		if err != nil {
			s.logger.Printf("webhook: publish stock released failed reservation=%s: %v", id, err)
		}
	}

	res.Outcome = OutcomeReleased
	return res, nil
}

type nopPublisher struct{}

func (nopPublisher) PublishOrderFulfilled(context.Context, domain.Order) error { return nil }

func (nopPublisher) PublishStockReleased(context.Context, string, string, []domain.StockLine) error {
	return nil
}

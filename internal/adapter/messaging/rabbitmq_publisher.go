package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"

	"github.com/rl1809/storefront/internal/core/domain"
)

const (
	EventsExchange           = "storefront.events"
	ExchangeType             = "topic"
	OrderFulfilledRoutingKey = "order.fulfilled"
	StockReleasedRoutingKey  = "stock.released"

	dialAttempts   = 5
	publishTimeout = 3 * time.Second
)

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type OrderFulfilled struct {
	EventID          string             `json:"event_id"`
	OrderID          string             `json:"order_id"`
	PaymentSessionID string             `json:"payment_session_id"`
	GuestID          string             `json:"guest_id"`
	CustomerEmail    string             `json:"customer_email,omitempty"`
	AmountTotal      decimal.Decimal    `json:"amount_total"`
	CouponID         string             `json:"coupon_id,omitempty"`
	Lines            []domain.StockLine `json:"lines"`
	OccurredAt       time.Time          `json:"occurred_at"`
}

type StockReleased struct {
	EventID       string             `json:"event_id"`
	ReservationID string             `json:"reservation_id"`
	GuestID       string             `json:"guest_id"`
	Lines         []domain.StockLine `json:"lines"`
	OccurredAt    time.Time          `json:"occurred_at"`
}

// Publisher sends storefront notifications to a topic exchange.
type Publisher struct {
	mu   sync.Mutex
	ch   channel
	conn *amqp.Connection
	now  func() time.Time
}

// SetupConn dials with retries and declares the events exchange.
func SetupConn(url string, logger *log.Logger) (*amqp.Connection, *amqp.Channel, error) {
	var conn *amqp.Connection
	var err error

	for i := 0; i < dialAttempts; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		logger.Printf("messaging: connect attempt %d failed: %v", i+1, err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("connect rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		EventsExchange,
		ExchangeType,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("declare events exchange: %w", err)
	}

	return conn, ch, nil
}

func NewPublisher(conn *amqp.Connection, ch *amqp.Channel) *Publisher {
	return &Publisher{ch: ch, conn: conn, now: time.Now}
}

func (p *Publisher) Close() error {
	if err := p.ch.Close(); err != nil {
		return err
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

func (p *Publisher) PublishOrderFulfilled(ctx context.Context, order domain.Order) error {
	ev := OrderFulfilled{
		EventID:          uuid.NewString(),
		OrderID:          order.ID,
		PaymentSessionID: order.PaymentSessionID,
		GuestID:          order.GuestID,
		CustomerEmail:    order.CustomerEmail,
		AmountTotal:      order.AmountTotal,
		CouponID:         order.CouponID,
		Lines:            order.Lines,
		OccurredAt:       p.now().UTC(),
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal OrderFulfilled: %w", err)
	}
	return p.publishJSON(ctx, OrderFulfilledRoutingKey, ev.EventID, body)
}

func (p *Publisher) PublishStockReleased(ctx context.Context, reservationID, guestID string, lines []domain.StockLine) error {
	ev := StockReleased{
		EventID:       uuid.NewString(),
		ReservationID: reservationID,
		GuestID:       guestID,
		Lines:         lines,
		OccurredAt:    p.now().UTC(),
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal StockReleased: %w", err)
	}
	return p.publishJSON(ctx, StockReleasedRoutingKey, ev.EventID, body)
}

func (p *Publisher) publishJSON(ctx context.Context, routingKey, messageID string, body []byte) error {
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.PublishWithContext(
		pubCtx,
		EventsExchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    messageID,
			Timestamp:    p.now().UTC(),
			Body:         body,
		},
	)
}

package port

import (
	"context"

	"github.com/rl1809/storefront/internal/core/domain"
)

type PaymentGateway interface {
	// CreateSession opens a hosted checkout session for the request
	CreateSession(ctx context.Context, req domain.SessionRequest) (domain.PaymentSession, error)

	// ParseEvent verifies the signature before decoding anything. Returns
	// domain.ErrInvalidSignature on verification failure.
	ParseEvent(payload []byte, signature string) (domain.PaymentEvent, error)
}

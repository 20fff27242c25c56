package port

import (
	"context"

	"github.com/rl1809/storefront/internal/core/domain"
)

type EventPublisher interface {
	PublishOrderFulfilled(ctx context.Context, order domain.Order) error
	PublishStockReleased(ctx context.Context, reservationID, guestID string, lines []domain.StockLine) error
}

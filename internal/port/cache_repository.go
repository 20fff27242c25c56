package port

import (
	"context"
	"time"

	"github.com/rl1809/storefront/internal/core/domain"
)

type CacheRepository interface {
	// ReserveStock atomically decrements sellable stock for every line and
	// records the reservation, or changes nothing and reports depleted lines
	ReserveStock(ctx context.Context, r domain.Reservation) (domain.ReserveResult, error)

	// ReleaseStock returns the reservation's stock and deletes it. Returns
	// nil lines if the reservation no longer exists.
	ReleaseStock(ctx context.Context, reservationID string) ([]domain.StockLine, error)

	// ConsumeReservation deletes the reservation without returning stock
	ConsumeReservation(ctx context.Context, reservationID string) ([]domain.StockLine, error)

	// GetReservation returns nil if the reservation was released or consumed
	GetReservation(ctx context.Context, reservationID string) (*domain.Reservation, error)

	ListGuestReservations(ctx context.Context, guestID string) ([]string, error)

	// SeedStock sets sellable stock only if the counter does not exist yet
	SeedStock(ctx context.Context, productID string, quantity int) error

	// SetIdempotency sets a key for idempotency check, returns false if already exists
	SetIdempotency(ctx context.Context, key string, ttl time.Duration) (bool, error)

	ClearIdempotency(ctx context.Context, key string) error

	// GetProductList returns false when the catalog is not cached
	GetProductList(ctx context.Context) ([]domain.Product, bool, error)

	SetProductList(ctx context.Context, products []domain.Product, ttl time.Duration) error
}

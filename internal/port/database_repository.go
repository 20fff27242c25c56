package port

import (
	"context"

	"github.com/rl1809/storefront/internal/core/domain"
)

type DatabaseRepository interface {
	// ListProducts returns the whole catalog ordered by name
	ListProducts(ctx context.Context) ([]domain.Product, error)

	// GetProducts returns the products found among ids, keyed by ID
	GetProducts(ctx context.Context, ids []string) (map[string]domain.Product, error)

	GetCartItems(ctx context.Context, guestID string) ([]domain.CartItem, error)

	// AddCartItem inserts the line or increments its quantity
	AddCartItem(ctx context.Context, guestID, productID string, quantity int) (domain.CartItem, error)

	// SetCartItemQuantity overwrites the quantity; zero deletes the line
	SetCartItemQuantity(ctx context.Context, guestID, productID string, quantity int) error

	RemoveCartItem(ctx context.Context, guestID, productID string) error

	// GetCouponByCode returns nil when no coupon matches the normalized code
	GetCouponByCode(ctx context.Context, code string) (*domain.Coupon, error)

	// GetOrderBySession returns nil when the session has not been fulfilled
	GetOrderBySession(ctx context.Context, sessionID string) (*domain.Order, error)

	// FulfillOrder creates the order, consumes stock, counts the coupon and
	// clears the cart in one transaction. Returns domain.ErrOrderExists when
	// the session was already fulfilled.
	FulfillOrder(ctx context.Context, f domain.Fulfillment) (domain.FulfillmentResult, error)
}

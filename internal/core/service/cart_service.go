package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

type CartService struct {
	db      port.DatabaseRepository
	logger  *log.Logger
	timeout time.Duration
}

func NewCartService(db port.DatabaseRepository, logger *log.Logger, timeout time.Duration) *CartService {
	return &CartService{db: db, logger: logger, timeout: timeout}
}

// GetCart prices the guest's items from the catalog. Lines whose product no
// longer exists are dropped.
func (s *CartService) GetCart(ctx context.Context, guestID string) (domain.Cart, error) {
	if guestID == "" {
		return domain.Cart{}, ErrMissingGuest
	}

	var items []domain.CartItem
	err := withTimeout(ctx, s.timeout, func(ctx context.Context) error {
		var err error
		items, err = s.db.GetCartItems(ctx, guestID)
		return err
	})
	if err != nil {
		return domain.Cart{}, fmt.Errorf("load cart: %w", err)
	}

	cart := domain.Cart{GuestID: guestID, Lines: []domain.CartLine{}}
	if len(items) == 0 {
		cart.Total = domain.CartTotal(nil)
		return cart, nil
	}

	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}

	var products map[string]domain.Product
	err = withTimeout(ctx, s.timeout, func(ctx context.Context) error {
		var err error
		products, err = s.db.GetProducts(ctx, ids)
		return err
	})
	if err != nil {
		return domain.Cart{}, fmt.Errorf("load products: %w", err)
	}

	for _, it := range items {
		p, ok := products[it.ProductID]
		if !ok {
			s.logger.Printf("cart: dropping line for missing product guest=%s product=%s", guestID, it.ProductID)
			continue
		}
		cart.Lines = append(cart.Lines, domain.CartLine{Product: p, Quantity: it.Quantity})
	}
	cart.Total = domain.CartTotal(cart.Lines)
	return cart, nil
}

func (s *CartService) AddItem(ctx context.Context, guestID, productID string, quantity int) (domain.CartItem, error) {
	if guestID == "" {
		return domain.CartItem{}, ErrMissingGuest
	}
	if quantity < 1 {
		return domain.CartItem{}, ErrInvalidQuantity
	}
	if err := s.requireProduct(ctx, productID); err != nil {
		return domain.CartItem{}, err
	}

	var item domain.CartItem
	err := withTimeout(ctx, s.timeout, func(ctx context.Context) error {
		var err error
		item, err = s.db.AddCartItem(ctx, guestID, productID, quantity)
		return err
	})
	if err != nil {
		return domain.CartItem{}, fmt.Errorf("add cart item: %w", err)
	}
	return item, nil
}

func (s *CartService) UpdateQuantity(ctx context.Context, guestID, productID string, quantity int) error {
	if guestID == "" {
		return ErrMissingGuest
	}
	if quantity < 0 {
		return ErrInvalidQuantity
	}
	err := withTimeout(ctx, s.timeout, func(ctx context.Context) error {
		return s.db.SetCartItemQuantity(ctx, guestID, productID, quantity)
	})
	if err != nil {
		return fmt.Errorf("update cart item: %w", err)
	}
	return nil
}

func (s *CartService) RemoveItem(ctx context.Context, guestID, productID string) error {
	if guestID == "" {
		return ErrMissingGuest
	}
	err := withTimeout(ctx, s.timeout, func(ctx context.Context) error {
		return s.db.RemoveCartItem(ctx, guestID, productID)
	})
	if err != nil {
		return fmt.Errorf("remove cart item: %w", err)
	}
	return nil
}

func (s *CartService) requireProduct(ctx context.Context, productID string) error {
	if productID == "" {
		return ErrProductNotFound
	}
	var products map[string]domain.Product
	err := withTimeout(ctx, s.timeout, func(ctx context.Context) error {
		var err error
		products, err = s.db.GetProducts(ctx, []string{productID})
		return err
	})
	if err != nil {
		return fmt.Errorf("load product: %w", err)
	}
	if _, ok := products[productID]; !ok {
		return ErrProductNotFound
	}
	return nil
}

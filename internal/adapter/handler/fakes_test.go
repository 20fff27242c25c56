package handler

import (
	"context"
	"io"
	"log"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
)

var discardLogger = log.New(io.Discard, "", 0)

type fakeCatalog struct {
	products []domain.Product
	err      error
}

func (f *fakeCatalog) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return f.products, f.err
}

func (f *fakeCatalog) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	for _, p := range f.products {
		if p.ID == productID {
			return p, nil
		}
	}
	return domain.Product{}, service.ErrProductNotFound
}

// fakeCarts keeps one cart per guest, priced from the catalog.
type fakeCarts struct {
	mu      sync.Mutex
	catalog *fakeCatalog
	items   map[string]map[string]int
	err     error
}

func newFakeCarts(catalog *fakeCatalog) *fakeCarts {
	return &fakeCarts{catalog: catalog, items: make(map[string]map[string]int)}
}

func (f *fakeCarts) GetCart(ctx context.Context, guestID string) (domain.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if guestID == "" {
		return domain.Cart{}, service.ErrMissingGuest
	}
	if f.err != nil {
		return domain.Cart{}, f.err
	}
	cart := domain.Cart{GuestID: guestID}
	for _, p := range f.catalog.products {
		if qty := f.items[guestID][p.ID]; qty > 0 {
			cart.Lines = append(cart.Lines, domain.CartLine{Product: p, Quantity: qty})
		}
	}
	cart.Total = domain.CartTotal(cart.Lines)
	return cart, nil
}

func (f *fakeCarts) AddItem(ctx context.Context, guestID, productID string, quantity int) (domain.CartItem, error) {
	if quantity < 1 {
		return domain.CartItem{}, service.ErrInvalidQuantity
	}
	if _, err := f.catalog.GetProduct(ctx, productID); err != nil {
		return domain.CartItem{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.items[guestID] == nil {
		f.items[guestID] = make(map[string]int)
	}
	f.items[guestID][productID] += quantity
	return domain.CartItem{GuestID: guestID, ProductID: productID, Quantity: f.items[guestID][productID]}, nil
}

func (f *fakeCarts) UpdateQuantity(ctx context.Context, guestID, productID string, quantity int) error {
	if quantity < 0 {
		return service.ErrInvalidQuantity
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.items[guestID] == nil {
		f.items[guestID] = make(map[string]int)
	}
	f.items[guestID][productID] = quantity
	return nil
}

func (f *fakeCarts) RemoveItem(ctx context.Context, guestID, productID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items[guestID], productID)
	return nil
}

type fakeCoupons struct {
	coupons map[string]domain.AppliedCoupon
}

func (f *fakeCoupons) Apply(ctx context.Context, code string) (domain.AppliedCoupon, error) {
	code = domain.NormalizeCouponCode(code)
	if code == "" {
		return domain.AppliedCoupon{}, service.ErrCouponEmpty
	}
	if code == "OLD" {
		return domain.AppliedCoupon{}, service.ErrCouponExpired
	}
	c, ok := f.coupons[code]
	if !ok {
		return domain.AppliedCoupon{}, service.ErrCouponNotFound
	}
	return c, nil
}

type fakeCheckout struct {
	mu   sync.Mutex
	last service.CheckoutRequest
	err  error
}

func (f *fakeCheckout) Checkout(ctx context.Context, req service.CheckoutRequest) (service.CheckoutResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.last = req
	if f.err != nil {
		return service.CheckoutResult{}, f.err
	}
	return service.CheckoutResult{
		SessionID:     "cs_test_1",
		RedirectURL:   "https://pay.test/cs_test_1",
		ReservationID: "res-1",
		Subtotal:      decimal.RequireFromString("41"),
		Total:         decimal.RequireFromString("36.90"),
		Coupon:        &domain.AppliedCoupon{Code: "WELCOME10"},
	}, nil
}

type fakeWebhooks struct {
	payload   []byte
	signature string
	result    service.WebhookResult
	err       error
}

func (f *fakeWebhooks) HandleWebhook(ctx context.Context, payload []byte, signature string) (service.WebhookResult, error) {
	f.payload = payload
	f.signature = signature
	return f.result, f.err
}

type fixture struct {
	catalog  *fakeCatalog
	carts    *fakeCarts
	coupons  *fakeCoupons
	checkout *fakeCheckout
	webhooks *fakeWebhooks
}

func newFixture() *fixture {
	catalog := &fakeCatalog{products: []domain.Product{
		{ID: "tee", Name: "Classic Tee", Price: decimal.RequireFromString("20.50"), Stock: 10},
		{ID: "mug", Name: "Enamel Mug", Price: decimal.RequireFromString("9.75"), Stock: 3},
	}}
	return &fixture{
		catalog: catalog,
		carts:   newFakeCarts(catalog),
		coupons: &fakeCoupons{coupons: map[string]domain.AppliedCoupon{
			"WELCOME10": {ID: "c1", Code: "WELCOME10", PercentOff: decimal.NewFromInt(10)},
		}},
		checkout: &fakeCheckout{},
		webhooks: &fakeWebhooks{},
	}
}

func (f *fixture) services() Services {
	return Services{
		Catalog:  f.catalog,
		Carts:    f.carts,
		Coupons:  f.coupons,
		Checkout: f.checkout,
		Webhooks: f.webhooks,
	}
}

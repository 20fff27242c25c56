package service

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rl1809/storefront/internal/core/domain"
)

var discardLogger = log.New(io.Discard, "", 0)

// Mock DatabaseRepository
type mockDB struct {
	mu       sync.Mutex
	products map[string]domain.Product
	carts    map[string][]domain.CartItem
	coupons  map[string]domain.Coupon
	orders   map[string]domain.Order

	couponErr     error
	fulfillErr    error
	fulfillCalls  int
	cartClears    int
	lastFulfilled domain.Fulfillment
}

func newMockDB() *mockDB {
	return &mockDB{
		products: make(map[string]domain.Product),
		carts:    make(map[string][]domain.CartItem),
		coupons:  make(map[string]domain.Coupon),
		orders:   make(map[string]domain.Order),
	}
}

func (m *mockDB) addProduct(id, price string, stock int) {
	m.products[id] = domain.Product{ID: id, Name: "Product " + id, Price: decimal.RequireFromString(price), Stock: stock}
}

func (m *mockDB) ListProducts(ctx context.Context) ([]domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	return out, nil
}

func (m *mockDB) GetProducts(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]domain.Product)
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (m *mockDB) GetCartItems(ctx context.Context, guestID string) ([]domain.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.CartItem(nil), m.carts[guestID]...), nil
}

func (m *mockDB) AddCartItem(ctx context.Context, guestID, productID string, quantity int) (domain.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.carts[guestID]
	for i := range items {
		if items[i].ProductID == productID {
			items[i].Quantity += quantity
			return items[i], nil
		}
	}
	item := domain.CartItem{ID: uuid.NewString(), GuestID: guestID, ProductID: productID, Quantity: quantity}
	m.carts[guestID] = append(items, item)
	return item, nil
}

func (m *mockDB) SetCartItemQuantity(ctx context.Context, guestID, productID string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.carts[guestID]
	for i := range items {
		if items[i].ProductID == productID {
			if quantity == 0 {
				m.carts[guestID] = append(items[:i], items[i+1:]...)
				return nil
			}
			items[i].Quantity = quantity
			return nil
		}
	}
	return nil
}

func (m *mockDB) RemoveCartItem(ctx context.Context, guestID, productID string) error {
	return m.SetCartItemQuantity(ctx, guestID, productID, 0)
}

func (m *mockDB) GetCouponByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.couponErr != nil {
		return nil, m.couponErr
	}
	c, ok := m.coupons[code]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *mockDB) GetOrderBySession(ctx context.Context, sessionID string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[sessionID]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (m *mockDB) FulfillOrder(ctx context.Context, f domain.Fulfillment) (domain.FulfillmentResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fulfillCalls++
	m.lastFulfilled = f
	if m.fulfillErr != nil {
		return domain.FulfillmentResult{}, m.fulfillErr
	}
	if _, ok := m.orders[f.PaymentSessionID]; ok {
		return domain.FulfillmentResult{}, domain.ErrOrderExists
	}

	lines := f.Lines
	if len(lines) == 0 {
		for _, it := range m.carts[f.GuestID] {
			lines = append(lines, domain.StockLine{ProductID: it.ProductID, Quantity: it.Quantity})
		}
	}
	var missing []string
	var ordered []domain.StockLine
	for _, l := range lines {
		p, ok := m.products[l.ProductID]
		if !ok {
			missing = append(missing, l.ProductID)
			continue
		}
		p.Stock -= l.Quantity
		m.products[l.ProductID] = p
		ordered = append(ordered, l)
	}

	var overRedeemed bool
	if f.CouponID != "" {
		for code, c := range m.coupons {
			if c.ID != f.CouponID {
				continue
			}
			overRedeemed = c.Exhausted()
			c.UsedCount++
			m.coupons[code] = c
		}
	}

	delete(m.carts, f.GuestID)
	m.cartClears++

	order := domain.Order{
		ID:               f.OrderID,
		PaymentSessionID: f.PaymentSessionID,
		GuestID:          f.GuestID,
		CustomerEmail:    f.CustomerEmail,
		AmountTotal:      f.AmountTotal,
		CouponID:         f.CouponID,
		Status:           domain.OrderStatusPaid,
		Lines:            ordered,
		CreatedAt:        time.Now(),
	}
	m.orders[f.PaymentSessionID] = order
	return domain.FulfillmentResult{Order: order, CouponOverRedeemed: overRedeemed, MissingProducts: missing}, nil
}

// Mock CacheRepository
type mockCache struct {
	mu           sync.Mutex
	stock        map[string]int
	reservations map[string]domain.Reservation
	keys         map[string]bool
	products     []domain.Product

	reserveErr  error
	releaseErr  error
	claimErr    error
	consumeErr  error
	consumeFail int // calls left that return consumeErr
	releaseCnt  int
	consumeCnt  int
	productGets int
}

func newMockCache(stock map[string]int) *mockCache {
	cp := make(map[string]int, len(stock))
	for k, v := range stock {
		cp[k] = v
	}
	return &mockCache{
		stock:        cp,
		reservations: make(map[string]domain.Reservation),
		keys:         make(map[string]bool),
	}
}

func (m *mockCache) ReserveStock(ctx context.Context, r domain.Reservation) (domain.ReserveResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reserveErr != nil {
		return domain.ReserveResult{}, m.reserveErr
	}

	var res domain.ReserveResult
	for _, l := range r.Lines {
		if m.stock[l.ProductID] < l.Quantity {
			res.Depleted = append(res.Depleted, domain.DepletedLine{
				ProductID: l.ProductID, Requested: l.Quantity, Available: m.stock[l.ProductID],
			})
			return res, nil
		}
	}
	for _, l := range r.Lines {
		m.stock[l.ProductID] -= l.Quantity
	}
	res.Reserved = r.Lines
	m.reservations[r.ID] = r
	return res, nil
}

func (m *mockCache) ReleaseStock(ctx context.Context, reservationID string) ([]domain.StockLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.releaseErr != nil {
		return nil, m.releaseErr
	}
	r, ok := m.reservations[reservationID]
	if !ok {
		return nil, nil
	}
	for _, l := range r.Lines {
		m.stock[l.ProductID] += l.Quantity
	}
	delete(m.reservations, reservationID)
	m.releaseCnt++
	return r.Lines, nil
}

func (m *mockCache) ConsumeReservation(ctx context.Context, reservationID string) ([]domain.StockLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.consumeFail > 0 {
		m.consumeFail--
		return nil, m.consumeErr
	}
	r, ok := m.reservations[reservationID]
	if !ok {
		return nil, nil
	}
	delete(m.reservations, reservationID)
	m.consumeCnt++
	return r.Lines, nil
}

func (m *mockCache) GetReservation(ctx context.Context, reservationID string) (*domain.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[reservationID]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *mockCache) ListGuestReservations(ctx context.Context, guestID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, r := range m.reservations {
		if r.GuestID == guestID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *mockCache) SeedStock(ctx context.Context, productID string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.stock[productID]; !ok {
		m.stock[productID] = quantity
	}
	return nil
}

func (m *mockCache) SetIdempotency(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.claimErr != nil {
		return false, m.claimErr
	}
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *mockCache) ClearIdempotency(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	return nil
}

func (m *mockCache) GetProductList(ctx context.Context) ([]domain.Product, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.productGets++
	if m.products == nil {
		return nil, false, nil
	}
	return m.products, true, nil
}

func (m *mockCache) SetProductList(ctx context.Context, products []domain.Product, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products = products
	return nil
}

func (m *mockCache) totalStock() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, v := range m.stock {
		total += v
	}
	return total
}

// Mock PaymentGateway
type mockGateway struct {
	mu       sync.Mutex
	err      error
	delay    time.Duration
	requests []domain.SessionRequest

	event    domain.PaymentEvent
	parseErr error
}

func (g *mockGateway) CreateSession(ctx context.Context, req domain.SessionRequest) (domain.PaymentSession, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()

	if g.delay > 0 {
		select {
		case <-time.After(g.delay):
		case <-ctx.Done():
			return domain.PaymentSession{}, ctx.Err()
		}
	}
	if g.err != nil {
		return domain.PaymentSession{}, g.err
	}
	return domain.PaymentSession{ID: "cs_test_" + req.ReservationID, URL: "https://pay.example/cs_test"}, nil
}

func (g *mockGateway) ParseEvent(payload []byte, signature string) (domain.PaymentEvent, error) {
	if g.parseErr != nil {
		return domain.PaymentEvent{}, g.parseErr
	}
	if signature != "valid" {
		return domain.PaymentEvent{}, domain.ErrInvalidSignature
	}
	return g.event, nil
}

// Mock EventPublisher
type mockPublisher struct {
	mu        sync.Mutex
	fulfilled []domain.Order
	released  []string
	err       error
}

func (p *mockPublisher) PublishOrderFulfilled(ctx context.Context, order domain.Order) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fulfilled = append(p.fulfilled, order)
	return p.err
}

func (p *mockPublisher) PublishStockReleased(ctx context.Context, reservationID, guestID string, lines []domain.StockLine) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.released = append(p.released, reservationID)
	return p.err
}

var errBoom = errors.New("boom")

func intPtr(v int) *int { return &v }

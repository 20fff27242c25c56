package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/rl1809/storefront/internal/core/domain"
)

const mysqlDuplicateEntry = 1062

type MySQLAdapter struct {
	db *sqlx.DB
}

func NewMySQLAdapter(db *sqlx.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

// OpenMySQL connects with the pool settings used by the server.
func OpenMySQL(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	return db, nil
}

type productRow struct {
	ID        string          `db:"id"`
	Name      string          `db:"name"`
	Price     decimal.Decimal `db:"price"`
	Stock     int             `db:"stock"`
	ImageURL  string          `db:"image_url"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

func (r productRow) toDomain() domain.Product {
	return domain.Product{
		ID:        r.ID,
		Name:      r.Name,
		Price:     r.Price,
		Stock:     r.Stock,
		ImageURL:  r.ImageURL,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type cartItemRow struct {
	ID        string    `db:"id"`
	GuestID   string    `db:"guest_id"`
	ProductID string    `db:"product_id"`
	Quantity  int       `db:"quantity"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r cartItemRow) toDomain() domain.CartItem {
	return domain.CartItem(r)
}

type couponRow struct {
	ID              string        `db:"id"`
	Code            string        `db:"code"`
	ExpiresAt       time.Time     `db:"expires_at"`
	MaxRedemptions  sql.NullInt64 `db:"max_redemptions"`
	UsedCount       int           `db:"used_count"`
	PercentOff      string        `db:"percent_off"`
	GatewayCouponID string        `db:"gateway_coupon_id"`
}

type orderRow struct {
	ID               string          `db:"id"`
	PaymentSessionID string          `db:"payment_session_id"`
	GuestID          string          `db:"guest_id"`
	CustomerEmail    string          `db:"customer_email"`
	AmountTotal      decimal.Decimal `db:"amount_total"`
	CouponID         sql.NullString  `db:"coupon_id"`
	Status           string          `db:"status"`
	CreatedAt        time.Time       `db:"created_at"`
}

const productColumns = `id, name, price, stock, image_url, created_at, updated_at`

func (m *MySQLAdapter) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var rows []productRow
	if err := m.db.SelectContext(ctx, &rows, `SELECT `+productColumns+` FROM products ORDER BY name`); err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}

	products := make([]domain.Product, 0, len(rows))
	for _, r := range rows {
		products = append(products, r.toDomain())
	}
	return products, nil
}

func (m *MySQLAdapter) GetProducts(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	out := make(map[string]domain.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query, args, err := sqlx.In(`SELECT `+productColumns+` FROM products WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("build products query: %w", err)
	}

	var rows []productRow
	if err := m.db.SelectContext(ctx, &rows, m.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	for _, r := range rows {
		out[r.ID] = r.toDomain()
	}
	return out, nil
}

func (m *MySQLAdapter) GetCartItems(ctx context.Context, guestID string) ([]domain.CartItem, error) {
	var rows []cartItemRow
	err := m.db.SelectContext(ctx, &rows, `
		SELECT id, guest_id, product_id, quantity, created_at, updated_at
		FROM cart_items WHERE guest_id = ? ORDER BY created_at, product_id`, guestID)
	if err != nil {
		return nil, fmt.Errorf("query cart items: %w", err)
	}

	items := make([]domain.CartItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, r.toDomain())
	}
	return items, nil
}

func (m *MySQLAdapter) AddCartItem(ctx context.Context, guestID, productID string, quantity int) (domain.CartItem, error) {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO cart_items (id, guest_id, product_id, quantity)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE quantity = quantity + VALUES(quantity), updated_at = NOW()`,
		uuid.NewString(), guestID, productID, quantity,
	)
	if err != nil {
		return domain.CartItem{}, fmt.Errorf("upsert cart item: %w", err)
	}

	var row cartItemRow
	err = m.db.GetContext(ctx, &row, `
		SELECT id, guest_id, product_id, quantity, created_at, updated_at
		FROM cart_items WHERE guest_id = ? AND product_id = ?`, guestID, productID)
	if err != nil {
		return domain.CartItem{}, fmt.Errorf("query cart item: %w", err)
	}
	return row.toDomain(), nil
}

func (m *MySQLAdapter) SetCartItemQuantity(ctx context.Context, guestID, productID string, quantity int) error {
	if quantity <= 0 {
		return m.RemoveCartItem(ctx, guestID, productID)
	}

	_, err := m.db.ExecContext(ctx, `
		UPDATE cart_items SET quantity = ?, updated_at = NOW()
		WHERE guest_id = ? AND product_id = ?`,
		quantity, guestID, productID,
	)
	if err != nil {
		return fmt.Errorf("update cart item: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) RemoveCartItem(ctx context.Context, guestID, productID string) error {
	_, err := m.db.ExecContext(ctx, `DELETE FROM cart_items WHERE guest_id = ? AND product_id = ?`, guestID, productID)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) GetCouponByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	var row couponRow
	err := m.db.GetContext(ctx, &row, `
		SELECT id, code, expires_at, max_redemptions, used_count, percent_off, gateway_coupon_id
		FROM coupons WHERE code = ?`, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query coupon: %w", err)
	}

	percent, err := domain.ParsePercent(row.PercentOff)
	if err != nil {
		return nil, fmt.Errorf("coupon %s: %w", row.ID, err)
	}

	coupon := &domain.Coupon{
		ID:              row.ID,
		Code:            row.Code,
		ExpiresAt:       row.ExpiresAt,
		UsedCount:       row.UsedCount,
		PercentOff:      percent,
		GatewayCouponID: row.GatewayCouponID,
	}
	if row.MaxRedemptions.Valid {
		limit := int(row.MaxRedemptions.Int64)
		coupon.MaxRedemptions = &limit
	}
	return coupon, nil
}

func (m *MySQLAdapter) GetOrderBySession(ctx context.Context, sessionID string) (*domain.Order, error) {
	var row orderRow
	err := m.db.GetContext(ctx, &row, `
		SELECT id, payment_session_id, guest_id, customer_email, amount_total, coupon_id, status, created_at
		FROM orders WHERE payment_session_id = ?`, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}

	var items []struct {
		ProductID string `db:"product_id"`
		Quantity  int    `db:"quantity"`
	}
	err = m.db.SelectContext(ctx, &items, `
		SELECT product_id, quantity FROM order_items WHERE order_id = ? ORDER BY product_id`, row.ID)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	lines := make([]domain.StockLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, domain.StockLine{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	return &domain.Order{
		ID:               row.ID,
		PaymentSessionID: row.PaymentSessionID,
		GuestID:          row.GuestID,
		CustomerEmail:    row.CustomerEmail,
		AmountTotal:      row.AmountTotal,
		CouponID:         row.CouponID.String,
		Status:           domain.OrderStatus(row.Status),
		Lines:            lines,
		CreatedAt:        row.CreatedAt,
	}, nil
}

// FulfillOrder runs the whole fulfillment in one transaction. The unique key
// on payment_session_id makes a second fulfillment of a session fail before
// anything else is touched.
func (m *MySQLAdapter) FulfillOrder(ctx context.Context, f domain.Fulfillment) (domain.FulfillmentResult, error) {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.FulfillmentResult{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	order := domain.Order{
		ID:               f.OrderID,
		PaymentSessionID: f.PaymentSessionID,
		GuestID:          f.GuestID,
		CustomerEmail:    f.CustomerEmail,
		AmountTotal:      f.AmountTotal,
		CouponID:         f.CouponID,
		Status:           domain.OrderStatusPaid,
		CreatedAt:        time.Now().UTC().Truncate(time.Second),
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, payment_session_id, guest_id, customer_email, amount_total, coupon_id, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.PaymentSessionID, order.GuestID, order.CustomerEmail, order.AmountTotal,
		sql.NullString{String: f.CouponID, Valid: f.CouponID != ""}, order.Status, order.CreatedAt,
	)
	if isDuplicateEntry(err) {
		return domain.FulfillmentResult{}, domain.ErrOrderExists
	}
	if err != nil {
		return domain.FulfillmentResult{}, fmt.Errorf("insert order: %w", err)
	}

	lines := f.Lines
	if len(lines) == 0 {
		var items []cartItemRow
		err := tx.SelectContext(ctx, &items, `
			SELECT id, guest_id, product_id, quantity, created_at, updated_at
			FROM cart_items WHERE guest_id = ? ORDER BY product_id FOR UPDATE`, f.GuestID)
		if err != nil {
			return domain.FulfillmentResult{}, fmt.Errorf("lock cart items: %w", err)
		}
		for _, it := range items {
			lines = append(lines, domain.StockLine{ProductID: it.ProductID, Quantity: it.Quantity})
		}
	}

	var missing []string
	ordered := make([]domain.StockLine, 0, len(lines))
	for _, l := range lines {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, product_id, quantity, unit_price)
			SELECT ?, id, ?, price FROM products WHERE id = ?`,
			order.ID, l.Quantity, l.ProductID,
		)
		if err != nil {
			return domain.FulfillmentResult{}, fmt.Errorf("insert order item %s: %w", l.ProductID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return domain.FulfillmentResult{}, fmt.Errorf("insert order item %s: %w", l.ProductID, err)
		}
		if n == 0 {
			missing = append(missing, l.ProductID)
			continue
		}
		ordered = append(ordered, l)

		_, err = tx.ExecContext(ctx, `
			UPDATE products SET stock = GREATEST(stock - ?, 0), updated_at = NOW()
			WHERE id = ?`,
			l.Quantity, l.ProductID,
		)
		if err != nil {
			return domain.FulfillmentResult{}, fmt.Errorf("update product stock %s: %w", l.ProductID, err)
		}
	}
	order.Lines = ordered

	var overRedeemed bool
	if f.CouponID != "" {
		var usage struct {
			MaxRedemptions sql.NullInt64 `db:"max_redemptions"`
			UsedCount      int           `db:"used_count"`
		}
		err := tx.GetContext(ctx, &usage, `
			SELECT max_redemptions, used_count FROM coupons WHERE id = ? FOR UPDATE`, f.CouponID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			// coupon deleted since checkout; the order stands
		case err != nil:
			return domain.FulfillmentResult{}, fmt.Errorf("lock coupon: %w", err)
		default:
			overRedeemed = usage.MaxRedemptions.Valid && int64(usage.UsedCount) >= usage.MaxRedemptions.Int64
			if _, err := tx.ExecContext(ctx, `UPDATE coupons SET used_count = used_count + 1 WHERE id = ?`, f.CouponID); err != nil {
				return domain.FulfillmentResult{}, fmt.Errorf("count coupon redemption: %w", err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE guest_id = ?`, f.GuestID); err != nil {
		return domain.FulfillmentResult{}, fmt.Errorf("clear cart: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if isDuplicateEntry(err) {
			return domain.FulfillmentResult{}, domain.ErrOrderExists
		}
		return domain.FulfillmentResult{}, fmt.Errorf("commit: %w", err)
	}

	return domain.FulfillmentResult{Order: order, CouponOverRedeemed: overRedeemed, MissingProducts: missing}, nil
}

func isDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartItem is unique per (GuestID, ProductID).
type CartItem struct {
	ID        string
	GuestID   string
	ProductID string
	Quantity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CartLine is a cart item priced from the catalog.
type CartLine struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

func (l CartLine) Subtotal() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func CartTotal(lines []CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// StockLines collapses cart lines into one stock line per product, keeping
// first-seen order.
func StockLines(lines []CartLine) []StockLine {
	out := make([]StockLine, 0, len(lines))
	index := make(map[string]int, len(lines))
	for _, l := range lines {
		if i, ok := index[l.Product.ID]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		index[l.Product.ID] = len(out)
		out = append(out, StockLine{ProductID: l.Product.ID, Quantity: l.Quantity})
	}
	return out
}

type Cart struct {
	GuestID string          `json:"guest_id"`
	Lines   []CartLine      `json:"lines"`
	Total   decimal.Decimal `json:"total"`
}

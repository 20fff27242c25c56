package domain

import "time"

type StockLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type DepletedLine struct {
	ProductID string `json:"product_id"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

// Reservation is a pending stock hold created at checkout. It ends either
// released (stock returned) or consumed (order fulfilled), never both.
type Reservation struct {
	ID        string
	GuestID   string
	Lines     []StockLine
	CreatedAt time.Time
}

type ReserveResult struct {
	Reserved []StockLine
	Depleted []DepletedLine
}

func (r ReserveResult) OK() bool {
	return len(r.Depleted) == 0
}

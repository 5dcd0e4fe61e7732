package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatusCompleted is the only status a mock checkout produces.
const OrderStatusCompleted = "completed"

// Order is an immutable record of a completed checkout. Items is a snapshot of the cart lines at that moment.
type Order struct {
	OrderID   string          `json:"orderId"`
	UserEmail string          `json:"userEmail"`
	Items     []CartLine      `json:"items"`
	Total     decimal.Decimal `json:"total"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"createdAt"`
}

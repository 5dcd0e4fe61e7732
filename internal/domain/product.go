package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry. Type and Material drive catalog filtering, Popularity the default sort.
type Product struct {
	ID          string          `json:"id"`
	Key         string          `json:"key"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Type        string          `json:"type"`
	Material    string          `json:"material"`
	Popularity  int             `json:"popularity"`
	Images      []string        `json:"images,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

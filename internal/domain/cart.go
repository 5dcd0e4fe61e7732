package domain

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// CartLine is one product/size/color combination in a cart.
type CartLine struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Size      string          `json:"size"`
	Color     string          `json:"color"`
	Quantity  int             `json:"quantity"`
}

// Subtotal is UnitPrice times Quantity.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func (l CartLine) sameVariant(o CartLine) bool {
	return l.ProductID == o.ProductID && l.Size == o.Size && l.Color == o.Color
}

// Cart is the ordered line list owned by a customer.
type Cart struct {
	OwnerEmail string     `json:"ownerEmail"`
	Lines      []CartLine `json:"lines"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// NewCart returns an empty cart for owner.
func NewCart(owner string) Cart {
	return Cart{OwnerEmail: owner, Lines: []CartLine{}}
}

// Clone returns a deep copy.
func (c Cart) Clone() Cart {
	c.Lines = slices.Clone(c.Lines)
	if c.Lines == nil {
		c.Lines = []CartLine{}
	}
	return c
}

// Add merges line into an existing line with the same product, size and color, or appends it.
func (c *Cart) Add(line CartLine) {
	for i := range c.Lines {
		if c.Lines[i].sameVariant(line) {
			c.Lines[i].Quantity += line.Quantity
			return
		}
	}
	c.Lines = append(c.Lines, line)
}

// Remove deletes the line at index.
func (c *Cart) Remove(index int) error {
	if index < 0 || index >= len(c.Lines) {
		return ErrOutOfRange
	}
	c.Lines = slices.Delete(c.Lines, index, index+1)
	return nil
}

// SetQuantity sets the quantity of the line at index. A quantity of zero or less removes the line.
func (c *Cart) SetQuantity(index, qty int) error {
	if index < 0 || index >= len(c.Lines) {
		return ErrOutOfRange
	}
	if qty <= 0 {
		return c.Remove(index)
	}
	c.Lines[index].Quantity = qty
	return nil
}

// Clear drops every line.
func (c *Cart) Clear() {
	c.Lines = []CartLine{}
}

// Total sums every line subtotal.
func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// ItemCount sums line quantities.
func (c Cart) ItemCount() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

// PendingItem is the single product a guest tried to add before signing in.
type PendingItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Size      string          `json:"size"`
	Color     string          `json:"color"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Line converts the pending item to a cart line with quantity 1.
func (p PendingItem) Line() CartLine {
	return CartLine{
		ProductID: p.ProductID,
		Name:      p.Name,
		UnitPrice: p.UnitPrice,
		Size:      p.Size,
		Color:     p.Color,
		Quantity:  1,
	}
}

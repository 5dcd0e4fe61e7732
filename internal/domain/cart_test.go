package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func line(id, size, color string, price int64, qty int) CartLine {
	return CartLine{ProductID: id, Name: "Sac " + id, UnitPrice: decimal.NewFromInt(price), Size: size, Color: color, Quantity: qty}
}

func TestCart_TotalRecomputed(t *testing.T) {
	c := NewCart("a@x.fr")
	c.Add(line("1", "M", "noir", 20, 2))
	c.Add(line("2", "M", "noir", 15, 1))

	assert.True(t, c.Total().Equal(decimal.NewFromInt(55)), "got %s", c.Total())
	assert.Equal(t, 3, c.ItemCount())

	require.NoError(t, c.SetQuantity(1, 3))
	assert.True(t, c.Total().Equal(decimal.NewFromInt(85)))
}

func TestCart_AddMergesSameVariant(t *testing.T) {
	c := NewCart("a@x.fr")
	c.Add(line("1", "M", "noir", 20, 1))
	c.Add(line("1", "M", "noir", 20, 2))
	c.Add(line("1", "L", "noir", 20, 1))
	c.Add(line("1", "M", "rouge", 20, 1))

	require.Len(t, c.Lines, 3)
	assert.Equal(t, 3, c.Lines[0].Quantity)
}

func TestCart_RemoveOutOfRange(t *testing.T) {
	c := NewCart("a@x.fr")
	c.Add(line("1", "M", "noir", 20, 1))

	for _, idx := range []int{-1, 1, 5} {
		err := c.Remove(idx)
		assert.True(t, errors.Is(err, ErrOutOfRange), "index %d", idx)
	}
	assert.Len(t, c.Lines, 1)

	require.NoError(t, c.Remove(0))
	assert.Empty(t, c.Lines)
}

func TestCart_SetQuantityZeroRemoves(t *testing.T) {
	c := NewCart("a@x.fr")
	c.Add(line("1", "M", "noir", 20, 1))
	c.Add(line("2", "M", "noir", 10, 1))

	require.NoError(t, c.SetQuantity(0, 0))
	require.Len(t, c.Lines, 1)
	assert.Equal(t, "2", c.Lines[0].ProductID)

	require.NoError(t, c.SetQuantity(0, -4))
	assert.Empty(t, c.Lines)

	assert.ErrorIs(t, c.SetQuantity(0, 1), ErrOutOfRange)
}

func TestCart_CloneIsIndependent(t *testing.T) {
	c := NewCart("a@x.fr")
	c.Add(line("1", "M", "noir", 20, 1))

	cp := c.Clone()
	cp.Lines[0].Quantity = 9
	cp.Clear()

	assert.Equal(t, 1, c.Lines[0].Quantity)
}

func TestPendingItem_Line(t *testing.T) {
	p := PendingItem{ProductID: "7", Name: "Cabas", UnitPrice: decimal.NewFromInt(89), Size: "L", Color: "camel"}
	l := p.Line()
	assert.Equal(t, 1, l.Quantity)
	assert.Equal(t, "7", l.ProductID)
}

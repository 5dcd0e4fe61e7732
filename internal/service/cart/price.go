package cart

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

// Price is the unit price sent by the client, kept as text until the line is built.
// JSON numbers and strings are both accepted.
type Price string

func (p *Price) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*p = Price(s)
		return nil
	}
	if bytes.Equal(b, []byte("null")) {
		*p = ""
		return nil
	}
	*p = Price(bytes.TrimSpace(b))
	return nil
}

// priceScale is the number of decimal places a price may carry.
const priceScale = 2

func (p Price) decimal() (decimal.Decimal, error) {
	raw := strings.TrimSpace(string(p))
	if raw == "" {
		return decimal.Zero, domain.Invalid("price", "required")
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, domain.Invalid("price", "must be a number")
	}
	switch {
	case d.IsNegative():
		return decimal.Zero, domain.Invalid("price", "must not be negative")
	case !d.Equal(d.Round(priceScale)):
		return decimal.Zero, domain.Invalid("price", "must have at most 2 decimal places")
	}
	return d.Round(priceScale), nil
}

package checkout

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	"storefront/internal/repository"
	"storefront/internal/repository/memory"
	"storefront/internal/service/cart"
	"storefront/internal/service/loyalty"
)

type publisherMock struct {
	mock.Mock
}

func (m *publisherMock) OrderCompleted(ctx context.Context, o domain.Order, pointsAdded int64) error {
	return m.Called(ctx, o, pointsAdded).Error(0)
}

type failingLedger struct{}

func (failingLedger) EarnWith(context.Context, repository.Repos, string, decimal.Decimal, string) (int64, error) {
	return 0, errors.New("ledger unavailable")
}

func validInput() Input {
	return Input{
		Shipping: Shipping{FullName: "Marie Curie", Address: "1 rue Pierre", City: "Paris", PostalCode: "75005", Country: "France"},
		Payment:  Payment{CardHolder: "Marie Curie", CardNumber: "4242 4242 4242 4242", Expiry: "12/29", CVC: "123"},
	}
}

func fillCart(t *testing.T, carts *cart.Service, email string) {
	t.Helper()
	ctx := context.Background()
	_, err := carts.Add(ctx, email, cart.AddItemInput{ProductID: "1", Name: "Cabas", Price: "50", Quantity: 2})
	require.NoError(t, err)
	_, err = carts.Add(ctx, email, cart.AddItemInput{ProductID: "2", Name: "Pochette", Price: "20", Quantity: 1})
	require.NoError(t, err)
}

func TestComplete_OrderPointsAndClearedCart(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	carts := cart.New(store, nil, zerolog.Nop())
	ledger := loyalty.New(store, zerolog.Nop())
	pub := &publisherMock{}
	pub.On("OrderCompleted", mock.Anything, mock.Anything, int64(120)).Return(errors.New("broker down"))
	svc := New(store, ledger, carts, pub, zerolog.Nop())

	fillCart(t, carts, "a@x.fr")

	res, err := svc.Complete(ctx, "a@x.fr", validInput())
	require.NoError(t, err)
	assert.EqualValues(t, 120, res.PointsAdded)
	assert.True(t, res.Order.Total.Equal(decimal.NewFromInt(120)))
	assert.Equal(t, domain.OrderStatusCompleted, res.Order.Status)
	assert.Len(t, res.Order.Items, 2)
	assert.Regexp(t, regexp.MustCompile(`^DAP-\d+-[0-9A-F]{8}$`), res.Order.OrderID)

	c, err := carts.Get(ctx, "a@x.fr")
	require.NoError(t, err)
	assert.Empty(t, c.Lines)

	acct, err := ledger.Load(ctx, "a@x.fr")
	require.NoError(t, err)
	assert.EqualValues(t, 120, acct.Points)
	assert.Equal(t, 1, acct.Purchases)

	orders, err := svc.Orders(ctx, "a@x.fr")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, res.Order.OrderID, orders[0].OrderID)

	pub.AssertExpectations(t)
}

func TestComplete_EmptyCart(t *testing.T) {
	store := memory.New()
	svc := New(store, loyalty.New(store, zerolog.Nop()), nil, nil, zerolog.Nop())

	_, err := svc.Complete(context.Background(), "a@x.fr", validInput())
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "cart", ve.Field)
}

func TestComplete_RequiresCustomer(t *testing.T) {
	store := memory.New()
	svc := New(store, loyalty.New(store, zerolog.Nop()), nil, nil, zerolog.Nop())

	_, err := svc.Complete(context.Background(), "", validInput())
	assert.ErrorIs(t, err, domain.ErrNotAuthenticated)
	_, err = svc.Orders(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrNotAuthenticated)
}

func TestComplete_RollsBackWhenPointsFail(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	carts := cart.New(store, nil, zerolog.Nop())
	svc := New(store, failingLedger{}, carts, nil, zerolog.Nop())

	fillCart(t, carts, "a@x.fr")

	_, err := svc.Complete(ctx, "a@x.fr", validInput())
	require.Error(t, err)

	c, err := carts.Get(ctx, "a@x.fr")
	require.NoError(t, err)
	assert.Len(t, c.Lines, 2, "cart survives a failed checkout")

	orders, err := svc.Orders(ctx, "a@x.fr")
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestComplete_ReportsFirstFailingField(t *testing.T) {
	store := memory.New()
	svc := New(store, loyalty.New(store, zerolog.Nop()), nil, nil, zerolog.Nop())
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*Input)
		field  string
	}{
		{"full name", func(in *Input) { in.Shipping.FullName = ""; in.Payment.CVC = "" }, "fullName"},
		{"address", func(in *Input) { in.Shipping.Address = " " }, "address"},
		{"city", func(in *Input) { in.Shipping.City = "" }, "city"},
		{"postal code", func(in *Input) { in.Shipping.PostalCode = "" }, "postalCode"},
		{"country", func(in *Input) { in.Shipping.Country = "" }, "country"},
		{"card holder", func(in *Input) { in.Payment.CardHolder = "" }, "cardHolder"},
		{"short card", func(in *Input) { in.Payment.CardNumber = "4242 4242 424" }, "cardNumber"},
		{"letters in card", func(in *Input) { in.Payment.CardNumber = "4242-4242-4242-4242" }, "cardNumber"},
		{"card before expiry", func(in *Input) { in.Payment.CardNumber = ""; in.Payment.Expiry = "" }, "cardNumber"},
		{"expiry", func(in *Input) { in.Payment.Expiry = "" }, "expiry"},
		{"cvc", func(in *Input) { in.Payment.CVC = "" }, "cvc"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)
			_, err := svc.Complete(ctx, "a@x.fr", in)
			var ve *domain.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.field, ve.Field)
		})
	}

	in := validInput()
	in.Payment.CardNumber = "4242424242424"
	_, err := svc.Complete(ctx, "a@x.fr", in)
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "cart", ve.Field, "a 13 digit card passes and the empty cart is reported")
}

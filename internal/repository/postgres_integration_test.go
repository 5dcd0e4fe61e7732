package repository_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	"storefront/internal/repository"
	"storefront/internal/repository/loyalty"
	cartsvc "storefront/internal/service/cart"
	"storefront/internal/service/checkout"
	loyaltysvc "storefront/internal/service/loyalty"
	"storefront/internal/testutil/pgtest"
)

func newStore(t *testing.T) *repository.Postgres {
	return repository.NewPostgres(pgtest.Pool(t), zerolog.Nop())
}

func TestPostgres_RunRollsBack(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	boom := errors.New("boom")

	err := store.Run(ctx, func(r repository.Repos) error {
		if _, err := r.Customers.Create(ctx, domain.Customer{Email: "a@x.fr", PasswordHash: "h", FirstName: "A", LastName: "B"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = store.Repos().Customers.GetByEmail(ctx, "a@x.fr")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPostgres_CustomerDuplicate(t *testing.T) {
	ctx := context.Background()
	repo := newStore(t).Repos().Customers

	_, err := repo.Create(ctx, domain.Customer{Email: "a@x.fr", PasswordHash: "h", FirstName: "A", LastName: "B"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, domain.Customer{Email: "a@x.fr", PasswordHash: "other", FirstName: "C", LastName: "D"})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	got, err := repo.GetByEmail(ctx, "a@x.fr")
	require.NoError(t, err)
	assert.Equal(t, "h", got.PasswordHash)
}

func TestPostgres_LoyaltyVersioning(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	repo := store.Repos().Loyalty

	created, err := repo.Create(ctx, domain.NewLoyaltyAccount("a@x.fr", "CODEA", time.Now()))
	require.NoError(t, err)
	assert.EqualValues(t, 1, created.Version)

	_, err = repo.Create(ctx, domain.NewLoyaltyAccount("a@x.fr", "CODEZ", time.Now()))
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
	_, err = repo.Create(ctx, domain.NewLoyaltyAccount("b@x.fr", "CODEA", time.Now()))
	assert.ErrorIs(t, err, loyalty.ErrCodeTaken)

	next := created.Clone()
	next.AddReferral("c@x.fr")
	updated, err := repo.Update(ctx, next)
	require.NoError(t, err)
	assert.EqualValues(t, 2, updated.Version)

	stale := created.Clone()
	stale.Earn(decimal.NewFromInt(5), "bonus")
	_, err = repo.Update(ctx, stale)
	assert.ErrorIs(t, err, domain.ErrConflict)

	got, err := repo.Get(ctx, "a@x.fr")
	require.NoError(t, err)
	assert.EqualValues(t, domain.ReferrerBonus, got.Points)
	assert.Equal(t, []string{"c@x.fr"}, got.Referrals)

	referrer, err := repo.FindReferrer(ctx, "c@x.fr")
	require.NoError(t, err)
	assert.Equal(t, "a@x.fr", referrer)
}

func TestPostgres_CorruptLoyaltyRow(t *testing.T) {
	ctx := context.Background()
	pool := pgtest.Pool(t)
	store := repository.NewPostgres(pool, zerolog.Nop())

	_, err := pool.Exec(ctx, `
INSERT INTO loyalty_accounts (email, points, total_earned, total_spent, level, referral_code)
VALUES ('a@x.fr', 700, 100, 0, 'Argent', 'CODE')`)
	require.NoError(t, err)

	_, err = store.Repos().Loyalty.Get(ctx, "a@x.fr")
	var pe *domain.PersistenceError
	assert.ErrorAs(t, err, &pe)
}

func TestPostgres_CartAndOrders(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	cart := domain.NewCart("a@x.fr")
	cart.Add(domain.CartLine{ProductID: "1", Name: "Cabas", UnitPrice: decimal.RequireFromString("20.50"), Size: "M", Color: "noir", Quantity: 2})
	cart.Add(domain.CartLine{ProductID: "2", Name: "Pochette", UnitPrice: decimal.NewFromInt(15), Quantity: 1})

	err := store.Run(ctx, func(r repository.Repos) error {
		if err := r.Carts.Save(ctx, cart); err != nil {
			return err
		}
		return r.Orders.Append(ctx, domain.Order{
			OrderID:   "DAP-1",
			UserEmail: "a@x.fr",
			Items:     cart.Lines,
			Total:     cart.Total(),
			Status:    domain.OrderStatusCompleted,
			CreatedAt: time.Now().UTC(),
		})
	})
	require.NoError(t, err)

	got, err := store.Repos().Carts.Get(ctx, "a@x.fr")
	require.NoError(t, err)
	require.Len(t, got.Lines, 2)
	assert.Equal(t, "Cabas", got.Lines[0].Name)
	assert.True(t, got.Total().Equal(decimal.NewFromInt(56)))

	orders, err := store.Repos().Orders.ListByUser(ctx, "a@x.fr")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.True(t, orders[0].Total.Equal(decimal.NewFromInt(56)))
	assert.Len(t, orders[0].Items, 2)

	_, err = store.Repos().Carts.Get(ctx, "nobody@x.fr")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPostgres_ProductUpsert(t *testing.T) {
	ctx := context.Background()
	repo := newStore(t).Repos().Products

	p, inserted, err := repo.Upsert(ctx, domain.Product{Key: "cabas", Name: "Cabas", Price: decimal.NewFromInt(89), Type: "cabas", Material: "cuir"})
	require.NoError(t, err)
	assert.True(t, inserted)

	again, inserted, err := repo.Upsert(ctx, domain.Product{Key: "cabas", Name: "Cabas XL", Price: decimal.NewFromInt(99), Images: []string{"https://cdn.example.com/cabas.jpg"}})
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, p.ID, again.ID)

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cabas XL", got.Name)
	assert.Equal(t, []string{"https://cdn.example.com/cabas.jpg"}, got.Images)
}

func TestPostgres_CheckoutWaitsForCartWriters(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	carts := cartsvc.New(store, nil, zerolog.Nop())
	orders := checkout.New(store, loyaltysvc.New(store, zerolog.Nop()), nil, nil, zerolog.Nop())

	_, err := carts.Add(ctx, "a@x.fr", cartsvc.AddItemInput{ProductID: "X", Name: "Cabas", Price: "89", Quantity: 1})
	require.NoError(t, err)

	const adders = 8
	var wg sync.WaitGroup
	errs := make(chan error, adders+1)
	start := make(chan struct{})
	wg.Add(adders + 1)
	go func() {
		defer wg.Done()
		<-start
		_, err := orders.Complete(ctx, "a@x.fr", checkout.Input{
			Shipping: checkout.Shipping{FullName: "Marie Dupont", Address: "1 rue Haute", City: "Lyon", PostalCode: "69001", Country: "France"},
			Payment:  checkout.Payment{CardHolder: "Marie Dupont", CardNumber: "4242 4242 4242 4242", Expiry: "12/30", CVC: "123"},
		})
		errs <- err
	}()
	for i := 0; i < adders; i++ {
		go func() {
			defer wg.Done()
			<-start
			_, err := carts.Add(ctx, "a@x.fr", cartsvc.AddItemInput{ProductID: "Y", Name: "Pochette", Price: "35", Quantity: 1})
			errs <- err
		}()
	}
	close(start)
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	placed, err := store.Repos().Orders.ListByUser(ctx, "a@x.fr")
	require.NoError(t, err)
	require.Len(t, placed, 1)

	left, err := carts.Get(ctx, "a@x.fr")
	require.NoError(t, err)

	quantity := map[string]int{}
	for _, l := range placed[0].Items {
		quantity[l.ProductID] += l.Quantity
	}
	for _, l := range left.Lines {
		assert.NotEqual(t, "X", l.ProductID, "ordered line came back into the cart")
		quantity[l.ProductID] += l.Quantity
	}
	assert.Equal(t, 1, quantity["X"])
	assert.Equal(t, adders, quantity["Y"], "every add lands either in the order or in the cart")
}

package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"storefront/internal/db"
	"storefront/internal/domain"
	"storefront/internal/repository/cart"
	"storefront/internal/repository/customer"
	"storefront/internal/repository/loyalty"
	"storefront/internal/repository/order"
	"storefront/internal/repository/product"
	"storefront/internal/repository/session"
)

// Repos bundles every repository bound to the same connection or transaction.
type Repos struct {
	Customers customer.Repository
	Sessions  session.Repository
	Loyalty   loyalty.Repository
	Carts     cart.Repository
	Orders    order.Repository
	Products  product.Repository
}

// Store hands out repositories for single reads and runs multi-step writes atomically.
type Store interface {
	Repos() Repos
	// Run executes fn with repositories bound to one transaction. fn's error rolls everything back.
	Run(ctx context.Context, fn func(Repos) error) error
}

// Postgres is the Store backed by a pgx pool.
type Postgres struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

var _ Store = (*Postgres)(nil)

func NewPostgres(pool *pgxpool.Pool, logger zerolog.Logger) *Postgres {
	return &Postgres{pool: pool, logger: logger}
}

func (p *Postgres) Repos() Repos {
	return bind(p.pool, p.logger)
}

func (p *Postgres) Run(ctx context.Context, fn func(Repos) error) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return domain.Persistence("begin transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(bind(tx, p.logger)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Persistence("commit transaction", err)
	}
	return nil
}

func bind(q db.Querier, logger zerolog.Logger) Repos {
	return Repos{
		Customers: customer.NewPostgres(q, logger),
		Sessions:  session.NewPostgres(q),
		Loyalty:   loyalty.NewPostgres(q),
		Carts:     cart.NewPostgres(q),
		Orders:    order.NewPostgres(q),
		Products:  product.NewPostgres(q, logger),
	}
}

package customer

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"storefront/internal/db"
	"storefront/internal/domain"
)

type postgresRepo struct {
	q      db.Querier
	logger zerolog.Logger
}

// NewPostgres returns a Repository backed by Postgres.
func NewPostgres(q db.Querier, logger zerolog.Logger) Repository {
	return &postgresRepo{q: q, logger: logger}
}

const customerColumns = `email, password_hash, first_name, last_name, country, phone, created_at`

func (r *postgresRepo) Create(ctx context.Context, c domain.Customer) (*domain.Customer, error) {
	const q = `
INSERT INTO customers (email, password_hash, first_name, last_name, country, phone)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (email) DO NOTHING
RETURNING ` + customerColumns

	out, err := r.scanCustomer(r.q.QueryRow(ctx, q, c.Email, c.PasswordHash, c.FirstName, c.LastName, c.Country, c.Phone))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrAlreadyExists
	}
	return out, err
}

// GetByEmail matches the email exactly; case differences are distinct accounts.
func (r *postgresRepo) GetByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	const q = `SELECT ` + customerColumns + ` FROM customers WHERE email = $1`
	return r.scanCustomer(r.q.QueryRow(ctx, q, email))
}

func (r *postgresRepo) scanCustomer(row pgx.Row) (*domain.Customer, error) {
	var c domain.Customer
	err := row.Scan(&c.Email, &c.PasswordHash, &c.FirstName, &c.LastName, &c.Country, &c.Phone, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrAlreadyExists
		}
		r.logger.Error().Err(err).Msg("customer repo: scan")
		return nil, domain.Persistence("customer.scan", err)
	}
	return &c, nil
}

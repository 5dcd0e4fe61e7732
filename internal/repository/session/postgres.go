package session

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"storefront/internal/db"
	"storefront/internal/domain"
)

type postgresRepo struct {
	q db.Querier
}

func NewPostgres(q db.Querier) Repository {
	return &postgresRepo{q: q}
}

func (r *postgresRepo) Create(ctx context.Context, s domain.Session) error {
	const q = `
INSERT INTO sessions (token, kind, customer_email, anonymous_id, expires_at)
VALUES ($1, $2, $3, $4, $5)
`
	_, err := r.q.Exec(ctx, q, s.Token, s.Kind, s.CustomerEmail, s.AnonymousID, s.ExpiresAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		return domain.Persistence("session.create", err)
	}
	return nil
}

func (r *postgresRepo) Get(ctx context.Context, token string) (*domain.Session, error) {
	const q = `
SELECT token, kind, customer_email, anonymous_id, expires_at, created_at
FROM sessions
WHERE token = $1
`
	var out domain.Session
	if err := r.q.QueryRow(ctx, q, token).Scan(
		&out.Token,
		&out.Kind,
		&out.CustomerEmail,
		&out.AnonymousID,
		&out.ExpiresAt,
		&out.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.Persistence("session.get", err)
	}
	return &out, nil
}

func (r *postgresRepo) Delete(ctx context.Context, token string) error {
	cmd, err := r.q.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	if err != nil {
		return domain.Persistence("session.delete", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

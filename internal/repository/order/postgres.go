package order

import (
	"context"
	"encoding/json"
	"errors"

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

func (r *postgresRepo) Append(ctx context.Context, o domain.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO orders (order_id, user_email, items, total, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
`
	if _, err := r.q.Exec(ctx, q, o.OrderID, o.UserEmail, items, o.Total, o.Status, o.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		return domain.Persistence("order.append", err)
	}
	return nil
}

func (r *postgresRepo) ListByUser(ctx context.Context, email string) ([]domain.Order, error) {
	const q = `
SELECT order_id, user_email, items, total, status, created_at
FROM orders
WHERE user_email = $1
ORDER BY created_at, order_id
`
	rows, err := r.q.Query(ctx, q, email)
	if err != nil {
		return nil, domain.Persistence("order.list", err)
	}
	defer rows.Close()

	out := []domain.Order{}
	for rows.Next() {
		var (
			o     domain.Order
			items []byte
		)
		if err := rows.Scan(&o.OrderID, &o.UserEmail, &items, &o.Total, &o.Status, &o.CreatedAt); err != nil {
			return nil, domain.Persistence("order.list", err)
		}
		if err := json.Unmarshal(items, &o.Items); err != nil {
			return nil, &domain.PersistenceError{Op: "order.decode " + o.OrderID, Err: err}
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Persistence("order.list", err)
	}
	return out, nil
}

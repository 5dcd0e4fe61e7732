package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"storefront/internal/db"
	"storefront/internal/domain"
)

type postgresRepo struct {
	q db.Querier
}

// NewPostgres returns a cart repository. Save issues several statements and belongs inside a transaction.
func NewPostgres(q db.Querier) Repository {
	return &postgresRepo{q: q}
}

func (r *postgresRepo) Get(ctx context.Context, owner string) (*domain.Cart, error) {
	out := domain.NewCart(owner)
	err := r.q.QueryRow(ctx, `SELECT updated_at FROM carts WHERE owner_email = $1`, owner).Scan(&out.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.Persistence("cart.get", err)
	}

	const q = `
SELECT product_id, name, unit_price, size, color, quantity
FROM cart_lines
WHERE owner_email = $1
ORDER BY position
`
	rows, err := r.q.Query(ctx, q, owner)
	if err != nil {
		return nil, domain.Persistence("cart.lines", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l domain.CartLine
		if err := rows.Scan(&l.ProductID, &l.Name, &l.UnitPrice, &l.Size, &l.Color, &l.Quantity); err != nil {
			return nil, domain.Persistence("cart.lines", err)
		}
		out.Lines = append(out.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Persistence("cart.lines", err)
	}
	return &out, nil
}

const lockAttempts = 3

// Lock creates the carts row when missing and takes its row lock. A concurrent checkout
// may delete the row while we wait, in which case the insert is tried again.
func (r *postgresRepo) Lock(ctx context.Context, owner string) error {
	for i := 0; i < lockAttempts; i++ {
		const insert = `INSERT INTO carts (owner_email) VALUES ($1) ON CONFLICT (owner_email) DO NOTHING`
		if _, err := r.q.Exec(ctx, insert, owner); err != nil {
			return domain.Persistence("cart.lock", err)
		}
		var locked string
		err := r.q.QueryRow(ctx, `SELECT owner_email FROM carts WHERE owner_email = $1 FOR UPDATE`, owner).Scan(&locked)
		if err == nil {
			return nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return domain.Persistence("cart.lock", err)
		}
	}
	return fmt.Errorf("cart.lock %s: %w", owner, domain.ErrConflict)
}

func (r *postgresRepo) Save(ctx context.Context, cart domain.Cart) error {
	const upsert = `
INSERT INTO carts (owner_email, updated_at)
VALUES ($1, now())
ON CONFLICT (owner_email) DO UPDATE SET updated_at = now()
`
	if _, err := r.q.Exec(ctx, upsert, cart.OwnerEmail); err != nil {
		return domain.Persistence("cart.save", err)
	}
	if _, err := r.q.Exec(ctx, `DELETE FROM cart_lines WHERE owner_email = $1`, cart.OwnerEmail); err != nil {
		return domain.Persistence("cart.save", err)
	}

	const insert = `
INSERT INTO cart_lines (owner_email, position, product_id, name, unit_price, size, color, quantity)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`
	for i, l := range cart.Lines {
		if _, err := r.q.Exec(ctx, insert, cart.OwnerEmail, i, l.ProductID, l.Name, l.UnitPrice, l.Size, l.Color, l.Quantity); err != nil {
			return domain.Persistence(fmt.Sprintf("cart.save line %d", i), err)
		}
	}
	return nil
}

func (r *postgresRepo) Delete(ctx context.Context, owner string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM carts WHERE owner_email = $1`, owner); err != nil {
		return domain.Persistence("cart.delete", err)
	}
	return nil
}

func (r *postgresRepo) GetPending(ctx context.Context, sessionID string) (*domain.PendingItem, error) {
	const q = `
SELECT product_id, name, unit_price, size, color, created_at
FROM pending_items
WHERE session_id = $1
`
	var p domain.PendingItem
	err := r.q.QueryRow(ctx, q, sessionID).Scan(&p.ProductID, &p.Name, &p.UnitPrice, &p.Size, &p.Color, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.Persistence("cart.pending", err)
	}
	return &p, nil
}

func (r *postgresRepo) SavePending(ctx context.Context, sessionID string, item domain.PendingItem) error {
	const q = `
INSERT INTO pending_items (session_id, product_id, name, unit_price, size, color, created_at)
VALUES ($1, $2, $3, $4, $5, $6, now())
ON CONFLICT (session_id) DO UPDATE
SET product_id = EXCLUDED.product_id,
    name = EXCLUDED.name,
    unit_price = EXCLUDED.unit_price,
    size = EXCLUDED.size,
    color = EXCLUDED.color,
    created_at = EXCLUDED.created_at
`
	if _, err := r.q.Exec(ctx, q, sessionID, item.ProductID, item.Name, item.UnitPrice, item.Size, item.Color); err != nil {
		return domain.Persistence("cart.save_pending", err)
	}
	return nil
}

func (r *postgresRepo) DeletePending(ctx context.Context, sessionID string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM pending_items WHERE session_id = $1`, sessionID); err != nil {
		return domain.Persistence("cart.delete_pending", err)
	}
	return nil
}

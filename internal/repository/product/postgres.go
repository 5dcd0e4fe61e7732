package product

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"storefront/internal/db"
	"storefront/internal/domain"
)

type postgresRepo struct {
	q      db.Querier
	logger zerolog.Logger
}

func NewPostgres(q db.Querier, logger zerolog.Logger) Repository {
	return &postgresRepo{q: q, logger: logger}
}

const productColumns = `id, key, name, COALESCE(description, ''), price, type, material, popularity, images, created_at`

func (r *postgresRepo) List(ctx context.Context) ([]domain.Product, error) {
	const q = `SELECT ` + productColumns + ` FROM products ORDER BY created_at DESC, id`
	rows, err := r.q.Query(ctx, q)
	if err != nil {
		r.logger.Error().Err(err).Msg("product repo: list")
		return nil, domain.Persistence("product.list", err)
	}
	defer rows.Close()

	var result []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("product repo: list rows")
		return nil, domain.Persistence("product.list", err)
	}
	r.logger.Debug().Int("count", len(result)).Msg("product repo: list")
	return result, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	const q = `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	p, err := scanProduct(r.q.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			r.logger.Debug().Str("id", id).Msg("product repo: get not found")
		}
		return nil, err
	}
	return p, nil
}

func (r *postgresRepo) Upsert(ctx context.Context, p domain.Product) (*domain.Product, bool, error) {
	provided := p.ID != ""
	if !provided {
		p.ID = uuid.NewString()
	}
	images, err := json.Marshal(nonNil(p.Images))
	if err != nil {
		return nil, false, err
	}
	const q = `
INSERT INTO products (id, key, name, description, price, type, material, popularity, images)
VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9)
ON CONFLICT (key) DO UPDATE SET
    name = EXCLUDED.name,
    description = EXCLUDED.description,
    price = EXCLUDED.price,
    type = EXCLUDED.type,
    material = EXCLUDED.material,
    popularity = EXCLUDED.popularity,
    images = EXCLUDED.images
RETURNING id, created_at, (xmax = 0) AS inserted
`
	var (
		res      = p
		inserted bool
	)
	err = r.q.QueryRow(ctx, q, p.ID, p.Key, p.Name, p.Description, p.Price, p.Type, p.Material, p.Popularity, images).
		Scan(&res.ID, &res.CreatedAt, &inserted)
	if err != nil {
		r.logger.Error().Err(err).Str("key", p.Key).Msg("product repo: upsert")
		return nil, false, domain.Persistence("product.upsert", err)
	}
	if provided && res.ID != p.ID {
		return nil, false, fmt.Errorf("product repo: id mismatch for key=%s existing_id=%s import_id=%s", p.Key, res.ID, p.ID)
	}
	r.logger.Debug().Str("key", res.Key).Str("id", res.ID).Bool("inserted", inserted).Msg("product repo: upserted")
	return &res, inserted, nil
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var (
		p      domain.Product
		images []byte
	)
	err := row.Scan(&p.ID, &p.Key, &p.Name, &p.Description, &p.Price, &p.Type, &p.Material, &p.Popularity, &images, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.Persistence("product.scan", err)
	}
	if len(images) > 0 {
		if err := json.Unmarshal(images, &p.Images); err != nil {
			return nil, &domain.PersistenceError{Op: "product.decode " + p.ID, Err: err}
		}
	}
	return &p, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

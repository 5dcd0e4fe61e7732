package catalog

import (
	"context"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"

	"storefront/internal/domain"
	productrepo "storefront/internal/repository/product"
)

// Sort orders.
const (
	SortPriceAsc  = "price-asc"
	SortPriceDesc = "price-desc"
	SortPopular   = "popular"
	SortNewest    = "newest"
)

// Query narrows the catalog. Empty Types or Materials match any product.
type Query struct {
	Search    string
	MaxPrice  *decimal.Decimal
	Types     []string
	Materials []string
	Sort      string
}

type Service struct {
	repo productrepo.Repository
}

func New(repo productrepo.Repository) *Service {
	return &Service{repo: repo}
}

// List loads the catalog and applies q.
func (s *Service) List(ctx context.Context, q Query) ([]domain.Product, error) {
	products, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return Filter(products, q), nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Product, error) {
	return s.repo.GetByID(ctx, id)
}

// Filter returns the products matching q in q.Sort order. The input slice is not modified.
func Filter(products []domain.Product, q Query) []domain.Product {
	fold := cases.Fold()
	search := fold.String(strings.TrimSpace(q.Search))

	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if search != "" && !strings.Contains(fold.String(p.Name), search) {
			continue
		}
		if q.MaxPrice != nil && p.Price.GreaterThan(*q.MaxPrice) {
			continue
		}
		if !oneOf(q.Types, p.Type) || !oneOf(q.Materials, p.Material) {
			continue
		}
		out = append(out, p)
	}
	slices.SortStableFunc(out, compare(q.Sort))
	return out
}

func oneOf(set []string, v string) bool {
	return len(set) == 0 || slices.Contains(set, v)
}

func compare(order string) func(a, b domain.Product) int {
	switch order {
	case SortPriceAsc:
		return func(a, b domain.Product) int { return a.Price.Cmp(b.Price) }
	case SortPriceDesc:
		return func(a, b domain.Product) int { return b.Price.Cmp(a.Price) }
	case SortNewest:
		return func(a, b domain.Product) int { return b.CreatedAt.Compare(a.CreatedAt) }
	default:
		return func(a, b domain.Product) int { return b.Popularity - a.Popularity }
	}
}

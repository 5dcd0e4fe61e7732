package seed

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

type ProductWriter interface {
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, bool, error)
}

type productSeed struct {
	Key         string
	Name        string
	Description string
	Price       string
	Type        string
	Material    string
	Popularity  int
	Image       string
}

var products = []productSeed{
	{
		Key:         "cabas-lina",
		Name:        "Cabas Lina",
		Description: "Grand cabas en cuir grainé, anses renforcées",
		Price:       "89.90",
		Type:        "cabas",
		Material:    "cuir",
		Popularity:  82,
		Image:       "/images/cabas-lina.jpg",
	},
	{
		Key:         "pochette-nina",
		Name:        "Pochette Nina",
		Description: "Pochette de soirée en toile brodée",
		Price:       "35.00",
		Type:        "pochette",
		Material:    "toile",
		Popularity:  64,
		Image:       "/images/pochette-nina.jpg",
	},
	{
		Key:         "sac-a-dos-leo",
		Name:        "Sac à dos Léo",
		Description: "Sac à dos urbain, compartiment ordinateur",
		Price:       "120.00",
		Type:        "sac-a-dos",
		Material:    "cuir",
		Popularity:  71,
		Image:       "/images/sac-a-dos-leo.jpg",
	},
	{
		Key:         "bandouliere-ama",
		Name:        "Bandoulière Ama",
		Description: "Petit sac bandoulière en raphia tressé",
		Price:       "49.50",
		Type:        "bandouliere",
		Material:    "raphia",
		Popularity:  55,
		Image:       "/images/bandouliere-ama.jpg",
	},
	{
		Key:         "cabas-sora",
		Name:        "Cabas Sora",
		Description: "Cabas léger en toile de coton recyclé",
		Price:       "42.00",
		Type:        "cabas",
		Material:    "toile",
		Popularity:  47,
		Image:       "/images/cabas-sora.jpg",
	},
}

// Apply upserts the demo catalog for manual testing. It is idempotent by product key.
func Apply(ctx context.Context, repo ProductWriter) (int, error) {
	for _, s := range products {
		p := domain.Product{
			Key:         s.Key,
			Name:        s.Name,
			Description: s.Description,
			Price:       decimal.RequireFromString(s.Price),
			Type:        s.Type,
			Material:    s.Material,
			Popularity:  s.Popularity,
			Images:      []string{s.Image},
		}
		if _, _, err := repo.Upsert(ctx, p); err != nil {
			return 0, fmt.Errorf("upsert product %s: %w", s.Key, err)
		}
	}
	return len(products), nil
}

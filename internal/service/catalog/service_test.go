package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	"storefront/internal/repository/memory"
)

func sample() []domain.Product {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return []domain.Product{
		{ID: "tote", Name: "Cabas Lina", Price: decimal.NewFromInt(89), Type: "cabas", Material: "cuir", Popularity: 40, CreatedAt: base},
		{ID: "clutch", Name: "Pochette Nina", Price: decimal.NewFromInt(35), Type: "pochette", Material: "toile", Popularity: 90, CreatedAt: base.Add(48 * time.Hour)},
		{ID: "backpack", Name: "Sac à dos Léo", Price: decimal.RequireFromString("120.50"), Type: "sac-a-dos", Material: "cuir", Popularity: 70, CreatedAt: base.Add(24 * time.Hour)},
	}
}

func ids(ps []domain.Product) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}

func TestFilter_DefaultsToPopular(t *testing.T) {
	assert.Equal(t, []string{"clutch", "backpack", "tote"}, ids(Filter(sample(), Query{})))
}

func TestFilter_SearchIsCaseInsensitive(t *testing.T) {
	assert.Equal(t, []string{"tote"}, ids(Filter(sample(), Query{Search: "  CABAS "})))
	assert.Equal(t, []string{"backpack"}, ids(Filter(sample(), Query{Search: "léo"})))
	assert.Empty(t, Filter(sample(), Query{Search: "valise"}))
}

func TestFilter_MaxPriceIsInclusive(t *testing.T) {
	limit := decimal.NewFromInt(89)
	assert.Equal(t, []string{"clutch", "tote"}, ids(Filter(sample(), Query{MaxPrice: &limit})))
}

func TestFilter_TypesAndMaterials(t *testing.T) {
	got := Filter(sample(), Query{Materials: []string{"cuir"}, Sort: SortPriceAsc})
	assert.Equal(t, []string{"tote", "backpack"}, ids(got))

	got = Filter(sample(), Query{Types: []string{"pochette", "cabas"}, Materials: []string{"cuir"}})
	assert.Equal(t, []string{"tote"}, ids(got))
}

func TestFilter_Sorts(t *testing.T) {
	assert.Equal(t, []string{"backpack", "tote", "clutch"}, ids(Filter(sample(), Query{Sort: SortPriceDesc})))
	assert.Equal(t, []string{"clutch", "backpack", "tote"}, ids(Filter(sample(), Query{Sort: SortNewest})))
	assert.Equal(t, []string{"clutch", "tote", "backpack"}, ids(Filter(sample(), Query{Sort: SortPriceAsc})))
}

func TestFilter_DoesNotModifyInput(t *testing.T) {
	in := sample()
	Filter(in, Query{Sort: SortPriceAsc})
	assert.Equal(t, []string{"tote", "clutch", "backpack"}, ids(in))
}

func TestService_List(t *testing.T) {
	ctx := context.Background()
	repo := memory.New().Repos().Products
	for _, p := range sample() {
		p.Key = p.ID
		_, _, err := repo.Upsert(ctx, p)
		require.NoError(t, err)
	}

	got, err := New(repo).List(ctx, Query{Types: []string{"cabas"}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Cabas Lina", got[0].Name)
}

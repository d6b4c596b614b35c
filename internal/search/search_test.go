package search

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alkoparser/catalog-ingest/internal/domain"
)

// setupTestIndex creates a temporary search index for testing.
func setupTestIndex(t *testing.T) *Index {
	t.Helper()

	index, err := New(Options{DataPath: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	return index
}

func product(id, title, brand string, price float64, inStock bool, section ...string) domain.Product {
	return domain.Product{
		ID:       id,
		Title:    title,
		Brand:    brand,
		Section:  section,
		Price:    domain.Price{Current: price, Original: price},
		Stock:    domain.Stock{InStock: inStock},
		Metadata: map[string]string{},
		Variants: 1,
	}
}

func seedIndex(t *testing.T, index *Index) {
	t.Helper()
	products := []domain.Product{
		product("p-1", "Водка Белуга Нобл", "Beluga", 1899, true, "Крепкий алкоголь", "Водка"),
		product("p-2", "Водка Пять озер", "Пять озер", 699, false, "Крепкий алкоголь", "Водка"),
		product("p-3", "Вино Шардоне белое сухое", "Fanagoria", 1200, true, "Вино", "Белое вино"),
		product("p-4", "Пиво светлое", "Жигули", 120, true, "Слабоалкогольные напитки", "Пиво"),
	}
	products[2].Metadata[domain.MetaDescription] = "Свежее вино с нотами яблока"
	require.NoError(t, index.IndexProducts(products))
}

func hitIDs(res *SearchResult) []string {
	ids := make([]string, 0, len(res.Hits))
	for _, h := range res.Hits {
		ids = append(ids, h.ID)
	}
	return ids
}

func TestNew_Empty(t *testing.T) {
	index := setupTestIndex(t)

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestIndex_IndexProduct(t *testing.T) {
	index := setupTestIndex(t)

	p := product("p-1", "Водка Белуга", "Beluga", 1899, true)
	require.NoError(t, index.IndexProduct(&p))

	// Reindexing the same id replaces the document.
	p.Title = "Водка Белуга Нобл"
	require.NoError(t, index.IndexProduct(&p))

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestIndex_IndexProduct_RequiresID(t *testing.T) {
	index := setupTestIndex(t)

	p := product("", "Без идентификатора", "", 0, false)
	assert.Error(t, index.IndexProduct(&p))
}

func TestIndex_DeleteProduct(t *testing.T) {
	index := setupTestIndex(t)
	seedIndex(t, index)

	require.NoError(t, index.DeleteProduct("p-1"))

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)
}

func TestIndex_Search_Stemming(t *testing.T) {
	index := setupTestIndex(t)
	seedIndex(t, index)

	params := DefaultSearchParams()
	params.Query = "водки"
	params.IncludeFacets = false

	res, err := index.Search(context.Background(), params)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"p-1", "p-2"}, hitIDs(res))
}

func TestIndex_Search_Description(t *testing.T) {
	index := setupTestIndex(t)
	seedIndex(t, index)

	params := DefaultSearchParams()
	params.Query = "яблоко"

	res, err := index.Search(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, []string{"p-3"}, hitIDs(res))
}

func TestIndex_Search_Filters(t *testing.T) {
	index := setupTestIndex(t)
	seedIndex(t, index)

	tests := []struct {
		name   string
		params SearchParams
		want   []string
	}{
		{"section", SearchParams{Section: "Водка"}, []string{"p-1", "p-2"}},
		{"root section", SearchParams{Section: "Вино"}, []string{"p-3"}},
		{"brand", SearchParams{Brand: "Beluga"}, []string{"p-1"}},
		{"in stock", SearchParams{Section: "Крепкий алкоголь", InStockOnly: true}, []string{"p-1"}},
		{"price range", SearchParams{MinPrice: 500, MaxPrice: 1500}, []string{"p-2", "p-3"}},
		{"max price only", SearchParams{MaxPrice: 200}, []string{"p-4"}},
		{"query and filter", SearchParams{Query: "водка", Brand: "Пять озер"}, []string{"p-2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := index.Search(context.Background(), tt.params)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, hitIDs(res))
		})
	}
}

func TestIndex_Search_SortByPrice(t *testing.T) {
	index := setupTestIndex(t)
	seedIndex(t, index)

	res, err := index.Search(context.Background(), SearchParams{SortBy: SortPrice, SortOrder: "asc"})
	require.NoError(t, err)
	assert.Equal(t, []string{"p-4", "p-2", "p-3", "p-1"}, hitIDs(res))
	assert.Equal(t, uint64(4), res.Total)
	assert.InDelta(t, 120.0, res.Hits[0].Price, 0.001)
}

func TestIndex_Search_StoredFieldsAndFacets(t *testing.T) {
	index := setupTestIndex(t)
	seedIndex(t, index)

	params := DefaultSearchParams()
	params.Brand = "Beluga"

	res, err := index.Search(context.Background(), params)
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)

	hit := res.Hits[0]
	assert.Equal(t, "Водка Белуга Нобл", hit.Title)
	assert.Equal(t, "Beluga", hit.Brand)
	assert.Equal(t, []string{"Крепкий алкоголь", "Водка"}, hit.Section)
	assert.True(t, hit.InStock)

	require.Len(t, res.Facets.Brands, 1)
	assert.Equal(t, FacetCount{Value: "Beluga", Count: 1}, res.Facets.Brands[0])
	assert.Len(t, res.Facets.Sections, 2)
}

func TestIndex_Search_Pagination(t *testing.T) {
	index := setupTestIndex(t)
	seedIndex(t, index)

	page := func(offset int) []string {
		res, err := index.Search(context.Background(), SearchParams{
			SortBy: SortPrice, SortOrder: "desc", Limit: 2, Offset: offset,
		})
		require.NoError(t, err)
		return hitIDs(res)
	}

	assert.Equal(t, []string{"p-1", "p-3"}, page(0))
	assert.Equal(t, []string{"p-2", "p-4"}, page(2))
}

func TestIndex_Rebuild(t *testing.T) {
	index := setupTestIndex(t)
	seedIndex(t, index)

	require.NoError(t, index.Rebuild())

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestNew_ReopensAndRebuildsOnVersionChange(t *testing.T) {
	dir := t.TempDir()

	index, err := New(Options{DataPath: dir})
	require.NoError(t, err)
	seedIndex(t, index)
	require.NoError(t, index.Close())

	// Same version: documents survive.
	index, err = New(Options{DataPath: dir})
	require.NoError(t, err)
	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(4), count)
	require.NoError(t, index.Close())

	// Stale version: index is recreated empty.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "products.version"), []byte("0"), 0o644))
	index, err = New(Options{DataPath: dir})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	count, err = index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestNewProductDocument(t *testing.T) {
	p := product("p-9", "Ром", "Bacardi", 999, true, "Крепкий алкоголь")
	p.MarketingTags = []string{"Новинка"}
	p.Metadata[domain.MetaDescription] = "Карибский ром"
	p.Timestamp = 1700000000

	m := NewProductDocument(&p).ToMap()
	assert.Equal(t, "p-9", m["id"])
	assert.Equal(t, "Карибский ром", m["description"])
	assert.Equal(t, []string{"Новинка"}, m["tags"])
	assert.Equal(t, int64(1700000000), m["captured_at"])

	bare := NewProductDocument(&domain.Product{ID: "p-10"}).ToMap()
	assert.NotContains(t, bare, "brand")
	assert.NotContains(t, bare, "section")
}

package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alkoparser/catalog-ingest/internal/domain"
	"github.com/alkoparser/catalog-ingest/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen(t *testing.T) {
	s := newTestStore(t)

	var journalMode string
	require.NoError(t, s.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	assert.Equal(t, "wal", journalMode)

	for _, table := range []string{"products", "runs"} {
		var name string
		err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		assert.NoError(t, err, "table %s", table)
	}
	assert.NoError(t, s.Ping(context.Background()))
}

func TestProducts_Upsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := &domain.Product{
		ID:       "p-1",
		Title:    "Merlot",
		Brand:    "Chateau",
		Price:    domain.Price{Current: 900, Original: 1000, SaleTag: "Discount 10%"},
		Stock:    domain.Stock{InStock: true, Count: 3},
		Metadata: map[string]string{"description": "Red", "Артикул": "123"},
		Variants: 1,
	}
	require.NoError(t, s.SaveProduct(ctx, p))

	p.Title = "Merlot 2024"
	require.NoError(t, s.SaveProduct(ctx, p))

	got, err := s.GetProduct(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, "Merlot 2024", got.Title)
	assert.Equal(t, p.Metadata, got.Metadata)
	assert.Equal(t, p.Price, got.Price)

	n, err := s.CountProducts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var brand string
	var inStock int
	require.NoError(t, s.db.QueryRow("SELECT brand, in_stock FROM products WHERE id = 'p-1'").Scan(&brand, &inStock))
	assert.Equal(t, "Chateau", brand)
	assert.Equal(t, 1, inStock)
}

func TestProducts_Errors(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetProduct(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.ErrorIs(t, s.SaveProduct(ctx, &domain.Product{}), store.ErrInvalidInput)
}

func TestProducts_ListPaginates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := range 5 {
		require.NoError(t, s.SaveProduct(ctx, &domain.Product{ID: fmt.Sprintf("p-%d", i), Variants: 1}))
	}

	first, err := s.ListProducts(ctx, store.PaginationParams{Limit: 3})
	require.NoError(t, err)
	require.Len(t, first.Items, 3)
	assert.True(t, first.HasMore)

	second, err := s.ListProducts(ctx, store.PaginationParams{Limit: 3, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 2)
	assert.False(t, second.HasMore)
	assert.Equal(t, "p-3", second.Items[0].ID)
}

func TestRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	running := &domain.Run{ID: "run-1", StartedAt: base}
	require.NoError(t, s.SaveRun(ctx, running))

	running.FinishedAt = base.Add(time.Minute)
	running.Reason = domain.RunReasonFinished
	running.Products = 7
	require.NoError(t, s.SaveRun(ctx, running))
	require.NoError(t, s.SaveRun(ctx, &domain.Run{ID: "run-2", StartedAt: base.Add(time.Hour)}))

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].ID)
	assert.Equal(t, 7, runs[1].Products)
	assert.Equal(t, time.Minute, runs[1].Duration())

	one, err := s.ListRuns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, one, 1)
}

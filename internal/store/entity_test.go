package store_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alkoparser/catalog-ingest/internal/store"
)

type tagged struct {
	ID   string   `json:"id"`
	Name string   `json:"name"`
	Tags []string `json:"tags"`
}

func newTaggedEntity(t *testing.T) *store.Entity[tagged] {
	t.Helper()
	return store.NewEntity[tagged](setupTestStore(t), "tagged:").
		WithIndexTransform("tag",
			func(e *tagged) []string { return e.Tags },
			strings.ToLower,
		)
}

func TestEntity_SaveAndGet(t *testing.T) {
	e := newTaggedEntity(t)
	ctx := context.Background()

	require.NoError(t, e.Save(ctx, "a", &tagged{ID: "a", Name: "first"}))

	got, err := e.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "first", got.Name)

	_, err = e.Get(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestEntity_SaveRejectsEmptyID(t *testing.T) {
	e := newTaggedEntity(t)
	err := e.Save(context.Background(), "", &tagged{})
	assert.ErrorIs(t, err, store.ErrInvalidInput)
}

func TestEntity_SaveMovesIndexEntries(t *testing.T) {
	e := newTaggedEntity(t)
	ctx := context.Background()

	require.NoError(t, e.Save(ctx, "a", &tagged{ID: "a", Tags: []string{"red"}}))
	require.NoError(t, e.Save(ctx, "a", &tagged{ID: "a", Tags: []string{"blue"}}))

	red, err := e.ListByIndex(ctx, "tag", "red")
	require.NoError(t, err)
	assert.Empty(t, red)

	blue, err := e.ListByIndex(ctx, "tag", "BLUE")
	require.NoError(t, err)
	require.Len(t, blue, 1)
	assert.Equal(t, "a", blue[0].ID)
}

func TestEntity_Delete(t *testing.T) {
	e := newTaggedEntity(t)
	ctx := context.Background()

	require.NoError(t, e.Save(ctx, "a", &tagged{ID: "a", Tags: []string{"red"}}))
	require.NoError(t, e.Delete(ctx, "a"))
	require.NoError(t, e.Delete(ctx, "a"), "deleting twice is not an error")

	_, err := e.Get(ctx, "a")
	assert.ErrorIs(t, err, store.ErrNotFound)

	red, err := e.ListByIndex(ctx, "tag", "red")
	require.NoError(t, err)
	assert.Empty(t, red)
}

func TestEntity_AllSkipsIndexKeys(t *testing.T) {
	e := newTaggedEntity(t)
	ctx := context.Background()

	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, e.Save(ctx, id, &tagged{ID: id, Tags: []string{"x"}}))
	}

	var ids []string
	for item, err := range e.All(ctx) {
		require.NoError(t, err)
		ids = append(ids, item.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)

	n, err := e.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestEntity_AllEarlyTermination(t *testing.T) {
	e := newTaggedEntity(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, e.Save(ctx, id, &tagged{ID: id}))
	}

	seen := 0
	for _, err := range e.All(ctx) {
		require.NoError(t, err)
		seen++
		if seen == 2 {
			break
		}
	}
	assert.Equal(t, 2, seen)
}

func TestEntity_ContextCancellation(t *testing.T) {
	e := newTaggedEntity(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, e.Save(ctx, "a", &tagged{ID: "a"}), context.Canceled)
	_, err := e.Get(ctx, "a")
	assert.ErrorIs(t, err, context.Canceled)
	_, err = e.Count(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEntity_PageWalksInKeyOrder(t *testing.T) {
	e := newTaggedEntity(t)
	ctx := context.Background()

	for _, id := range []string{"d", "b", "a", "c", "e"} {
		require.NoError(t, e.Save(ctx, id, &tagged{ID: id, Tags: []string{"x"}}))
	}

	var ids []string
	params := store.PaginationParams{Limit: 2}
	for {
		page, err := e.Page(ctx, params)
		require.NoError(t, err)
		for _, item := range page.Items {
			ids = append(ids, item.ID)
		}
		if !page.HasMore {
			break
		}
		params.Cursor = page.NextCursor
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, ids)
}

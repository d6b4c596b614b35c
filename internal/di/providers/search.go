package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/alkoparser/catalog-ingest/internal/config"
	"github.com/alkoparser/catalog-ingest/internal/logger"
	"github.com/alkoparser/catalog-ingest/internal/search"
	"github.com/alkoparser/catalog-ingest/internal/store"
)

// SearchIndexHandle wraps the search index with shutdown capability.
// Index is nil when search is disabled or there is no store to back it.
type SearchIndexHandle struct {
	*search.Index
}

// Enabled reports whether a search index is open.
func (h *SearchIndexHandle) Enabled() bool {
	return h.Index != nil
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	if h.Index == nil {
		return nil
	}
	return h.Close()
}

// ProvideSearchIndex provides the Bleve search index.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.Storage.SearchEnabled || cfg.Storage.Driver == config.StoreNone {
		log.Info("Search index disabled")
		return &SearchIndexHandle{}, nil
	}

	index, err := search.New(search.Options{
		DataPath: cfg.Storage.DataPath,
		Logger:   log.Logger,
	})
	if err != nil {
		return nil, err
	}

	docCount, _ := index.DocumentCount()
	log.Info("Search index initialized", "documents", docCount)

	return &SearchIndexHandle{Index: index}, nil
}

// TriggerSearchReindexIfNeeded rebuilds the index from the store in the
// background when the index is empty but the store is not, e.g. after a
// mapping version change.
func TriggerSearchReindexIfNeeded(i do.Injector) {
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !indexHandle.Enabled() || !storeHandle.Enabled() {
		return
	}
	if docCount, _ := indexHandle.DocumentCount(); docCount > 0 {
		return
	}

	ctx := context.Background()
	count, err := storeHandle.CountProducts(ctx)
	if err != nil || count == 0 {
		return
	}

	log.Info("Search index is empty but products exist, triggering reindex", "product_count", count)

	go func() {
		if err := reindex(ctx, storeHandle.ProductStore, indexHandle.Index); err != nil {
			log.Error("Search reindex failed", "error", err)
			return
		}
		docs, _ := indexHandle.DocumentCount()
		log.Info("Search reindex completed", "documents", docs)
	}()
}

// reindex feeds every stored product to the index one page at a time.
func reindex(ctx context.Context, s store.ProductStore, index *search.Index) error {
	params := store.PaginationParams{Limit: store.MaxPageLimit}
	for {
		page, err := s.ListProducts(ctx, params)
		if err != nil {
			return err
		}
		if err := index.IndexProducts(page.Items); err != nil {
			return err
		}
		if !page.HasMore {
			return nil
		}
		params.Cursor = page.NextCursor
	}
}

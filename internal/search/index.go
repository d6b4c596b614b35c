package search

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/alkoparser/catalog-ingest/internal/domain"
)

// Index wraps a Bleve index with product operations.
//
// All public methods are safe for concurrent use. The mutex guards the
// underlying index handle, which Rebuild swaps out.
type Index struct {
	index  bleve.Index
	path   string
	logger *slog.Logger
	mu     sync.RWMutex
}

// Options configures the search index.
type Options struct {
	DataPath string       // Directory for index storage
	Logger   *slog.Logger // Logger for operations (uses discard if nil)
}

// mappingVersion is bumped whenever buildIndexMapping changes so that an
// existing index is rebuilt on startup.
const mappingVersion = "1"

// batchSize caps documents per Bleve batch during bulk indexing.
const batchSize = 500

// New creates or opens the product index under opts.DataPath.
// An index with a missing or stale mapping version, or one that fails to
// open, is removed and recreated empty.
func New(opts Options) (*Index, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if err := os.MkdirAll(opts.DataPath, 0o755); err != nil {
		return nil, fmt.Errorf("create search dir: %w", err)
	}

	indexPath := filepath.Join(opts.DataPath, "products.bleve")
	versionPath := filepath.Join(opts.DataPath, "products.version")

	var index bleve.Index
	needsRebuild := false

	indexExists := false
	if _, statErr := os.Stat(indexPath); statErr == nil {
		indexExists = true
	}

	if indexExists {
		existingVersion, readErr := os.ReadFile(versionPath)
		switch {
		case readErr != nil:
			logger.Info("search index has no version file, will rebuild",
				"new_version", mappingVersion,
			)
			needsRebuild = true
		case string(existingVersion) != mappingVersion:
			logger.Info("search index mapping version changed, will rebuild",
				"old_version", string(existingVersion),
				"new_version", mappingVersion,
			)
			needsRebuild = true
		}
	}

	if !needsRebuild && indexExists {
		var err error
		index, err = bleve.Open(indexPath)
		if err != nil {
			logger.Warn("failed to open existing index, will recreate",
				"path", indexPath,
				"error", err,
			)
			needsRebuild = true
		}
	}

	if needsRebuild {
		if err := os.RemoveAll(indexPath); err != nil {
			return nil, fmt.Errorf("remove old index: %w", err)
		}
		index = nil
	}

	if index == nil {
		var err error
		index, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
		if err := os.WriteFile(versionPath, []byte(mappingVersion), 0o644); err != nil {
			logger.Warn("failed to write search version file", "error", err)
		}
		logger.Info("created new search index", "path", indexPath, "mapping_version", mappingVersion)
	} else {
		logger.Info("opened existing search index", "path", indexPath)
	}

	return &Index{
		index:  index,
		path:   indexPath,
		logger: logger,
	}, nil
}

// Close closes the index and releases resources.
func (s *Index) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// IndexProduct indexes (or reindexes) a single product.
func (s *Index) IndexProduct(p *domain.Product) error {
	if p.ID == "" {
		return fmt.Errorf("index product: empty id")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Index(p.ID, NewProductDocument(p).ToMap())
}

// IndexProducts indexes products in batches of batchSize.
func (s *Index) IndexProducts(products []domain.Product) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := 0; i < len(products); i += batchSize {
		end := min(i+batchSize, len(products))

		batch := s.index.NewBatch()
		for j := i; j < end; j++ {
			p := &products[j]
			if p.ID == "" {
				continue
			}
			if err := batch.Index(p.ID, NewProductDocument(p).ToMap()); err != nil {
				return fmt.Errorf("batch index %s: %w", p.ID, err)
			}
		}

		if err := s.index.Batch(batch); err != nil {
			return fmt.Errorf("commit batch %d-%d: %w", i, end, err)
		}
	}

	return nil
}

// DeleteProduct removes a product from the index.
func (s *Index) DeleteProduct(id string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Delete(id)
}

// DocumentCount returns the total number of indexed products.
func (s *Index) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// Rebuild drops the existing index and creates an empty one.
// It holds the exclusive lock, so searches block until it returns.
func (s *Index) Rebuild() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.index.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}
	if err := os.RemoveAll(s.path); err != nil {
		return fmt.Errorf("remove index: %w", err)
	}

	index, err := bleve.New(s.path, buildIndexMapping())
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}

	s.index = index
	s.logger.Info("rebuilt search index", "path", s.path)

	return nil
}

package sink

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alkoparser/catalog-ingest/internal/domain"
)

// ProductSaver is the slice of store.ProductStore the sink needs.
type ProductSaver interface {
	SaveProduct(ctx context.Context, p *domain.Product) error
}

// Indexer makes saved products searchable. *search.Index implements it.
type Indexer interface {
	IndexProduct(p *domain.Product) error
}

// Validator rejects records that must not be persisted.
type Validator interface {
	Validate(s any) error
}

// Store validates products, saves them and indexes them for search.
// The store and index are owned by the caller and are not closed here.
type Store struct {
	store     ProductSaver
	index     Indexer // nil disables indexing
	validator Validator
	logger    *slog.Logger
}

// NewStore creates a store sink. index may be nil.
func NewStore(s ProductSaver, index Indexer, v Validator, logger *slog.Logger) *Store {
	return &Store{store: s, index: index, validator: v, logger: logger}
}

// Write persists p. Records failing validation are rejected before the store
// sees them; an index failure is reported after the record is saved.
func (s *Store) Write(ctx context.Context, p *domain.Product) error {
	if err := s.validator.Validate(p); err != nil {
		return fmt.Errorf("validate product %s: %w", p.ID, err)
	}
	if err := s.store.SaveProduct(ctx, p); err != nil {
		return fmt.Errorf("save product %s: %w", p.ID, err)
	}
	if s.index == nil {
		s.logger.Debug("product stored", "product_id", p.ID)
		return nil
	}
	if err := s.index.IndexProduct(p); err != nil {
		return fmt.Errorf("index product %s: %w", p.ID, err)
	}
	s.logger.Debug("product stored", "product_id", p.ID, "indexed", true)
	return nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

package store

import (
	"context"

	"github.com/alkoparser/catalog-ingest/internal/domain"
)

// ProductStore is the persistence contract shared by the Badger store and
// sqlite.Store. Products are keyed by upstream id and saving one again
// replaces the earlier capture.
type ProductStore interface {
	SaveProduct(ctx context.Context, p *domain.Product) error
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	ListProducts(ctx context.Context, params PaginationParams) (*PaginatedResult[domain.Product], error)
	CountProducts(ctx context.Context) (int, error)

	SaveRun(ctx context.Context, run *domain.Run) error
	ListRuns(ctx context.Context, limit int) ([]domain.Run, error)

	Ping(ctx context.Context) error
	Close() error
}

package store

import (
	"context"
	"slices"
	"strings"

	"github.com/alkoparser/catalog-ingest/internal/domain"
)

const (
	productPrefix = "product:"
	runPrefix     = "run:"
)

func (s *Store) initProducts() {
	s.Products = NewEntity[domain.Product](s, productPrefix).
		WithIndexTransform("brand",
			func(p *domain.Product) []string {
				if p.Brand == "" {
					return nil
				}
				return []string{normalizeIndexValue(p.Brand)}
			},
			normalizeIndexValue,
		).
		WithIndexTransform("section",
			func(p *domain.Product) []string {
				out := make([]string, 0, len(p.Section))
				for _, s := range p.Section {
					out = append(out, normalizeIndexValue(s))
				}
				return out
			},
			normalizeIndexValue,
		)
}

func (s *Store) initRuns() {
	s.Runs = NewEntity[domain.Run](s, runPrefix)
}

// normalizeIndexValue makes index lookups case-insensitive and keeps the
// key separator out of values.
func normalizeIndexValue(v string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(v)), ":", "_")
}

// SaveProduct stores p, replacing any earlier capture with the same id.
func (s *Store) SaveProduct(ctx context.Context, p *domain.Product) error {
	if p.ID == "" {
		return ErrInvalidInput.WithDetails("product id is empty")
	}
	return s.Products.Save(ctx, p.ID, p)
}

// GetProduct returns the product with the given upstream id.
func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return s.Products.Get(ctx, id)
}

// ListProducts returns one page of products ordered by id.
func (s *Store) ListProducts(ctx context.Context, params PaginationParams) (*PaginatedResult[domain.Product], error) {
	return s.Products.Page(ctx, params)
}

// ProductsByBrand returns every product of a brand, ignoring case.
func (s *Store) ProductsByBrand(ctx context.Context, brand string) ([]*domain.Product, error) {
	return s.Products.ListByIndex(ctx, "brand", brand)
}

// ProductsBySection returns every product filed under a section name.
func (s *Store) ProductsBySection(ctx context.Context, section string) ([]*domain.Product, error) {
	return s.Products.ListByIndex(ctx, "section", section)
}

// CountProducts returns the number of stored products.
func (s *Store) CountProducts(ctx context.Context) (int, error) {
	return s.Products.Count(ctx)
}

// SaveRun stores a crawl run summary.
func (s *Store) SaveRun(ctx context.Context, run *domain.Run) error {
	return s.Runs.Save(ctx, run.ID, run)
}

// ListRuns returns up to limit runs, newest first. A non-positive limit
// returns all of them.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]domain.Run, error) {
	var runs []domain.Run
	for run, err := range s.Runs.All(ctx) {
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}

	slices.SortFunc(runs, func(a, b domain.Run) int {
		return b.StartedAt.Compare(a.StartedAt)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

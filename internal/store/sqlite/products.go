package sqlite

import (
	"context"
	"database/sql"
	"encoding/json/v2"
	"errors"
	"fmt"

	"github.com/alkoparser/catalog-ingest/internal/domain"
	"github.com/alkoparser/catalog-ingest/internal/store"
)

// SaveProduct upserts p by id.
func (s *Store) SaveProduct(ctx context.Context, p *domain.Product) error {
	if p.ID == "" {
		return store.ErrInvalidInput.WithDetails("product id is empty")
	}

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal product: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO products (id, captured_at, url, title, brand, price_current, in_stock, data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			captured_at   = excluded.captured_at,
			url           = excluded.url,
			title         = excluded.title,
			brand         = excluded.brand,
			price_current = excluded.price_current,
			in_stock      = excluded.in_stock,
			data          = excluded.data`,
		p.ID, p.Timestamp, p.URL, p.Title, p.Brand, p.Price.Current, boolInt(p.Stock.InStock), string(data),
	)
	if err != nil {
		return fmt.Errorf("upsert product: %w", err)
	}
	return nil
}

// GetProduct returns the product with the given id.
func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM products WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}

	var p domain.Product
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("unmarshal product: %w", err)
	}
	return &p, nil
}

// ListProducts returns one page of products ordered by id.
func (s *Store) ListProducts(ctx context.Context, params store.PaginationParams) (*store.PaginatedResult[domain.Product], error) {
	params.Validate()

	after, err := store.DecodeCursor(params.Cursor)
	if err != nil {
		return nil, store.ErrInvalidInput.WithDetails(err.Error())
	}

	// One extra row tells whether another page exists.
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, data FROM products WHERE id > ? ORDER BY id LIMIT ?`,
		after, params.Limit+1,
	)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	result := &store.PaginatedResult[domain.Product]{Items: make([]domain.Product, 0, params.Limit)}
	var lastID string
	for rows.Next() {
		if len(result.Items) == params.Limit {
			result.HasMore = true
			result.NextCursor = store.EncodeCursor(lastID)
			break
		}

		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		var p domain.Product
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return nil, fmt.Errorf("unmarshal product %s: %w", id, err)
		}
		result.Items = append(result.Items, p)
		lastID = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return result, nil
}

// CountProducts returns the number of stored products.
func (s *Store) CountProducts(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/alkoparser/catalog-ingest/internal/domain"
	domainerrors "github.com/alkoparser/catalog-ingest/internal/errors"
	"github.com/alkoparser/catalog-ingest/internal/store"
)

func (s *Server) registerProductRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listProducts",
		Method:      http.MethodGet,
		Path:        "/api/v1/products",
		Summary:     "List products",
		Description: "Returns stored products ordered by id with cursor pagination",
		Tags:        []string{"Products"},
	}, s.handleListProducts)

	huma.Register(s.api, huma.Operation{
		OperationID: "getProduct",
		Method:      http.MethodGet,
		Path:        "/api/v1/products/{id}",
		Summary:     "Get product",
		Description: "Returns the latest capture of a product by upstream id",
		Tags:        []string{"Products"},
	}, s.handleGetProduct)
}

// === DTOs ===

// ListProductsInput contains pagination parameters.
type ListProductsInput struct {
	Limit  int    `query:"limit" minimum:"1" maximum:"1000" default:"100" doc:"Page size"`
	Cursor string `query:"cursor" maxLength:"512" doc:"Opaque cursor from a previous page"`
}

// ProductListResponse is one page of products.
type ProductListResponse struct {
	Items      []domain.Product `json:"items" doc:"Products on this page"`
	NextCursor string           `json:"next_cursor,omitempty" doc:"Cursor for the next page"`
	HasMore    bool             `json:"has_more" doc:"Whether another page exists"`
	Total      int              `json:"total" doc:"Total stored products"`
}

// ProductListOutput wraps the product page for Huma.
type ProductListOutput struct {
	Body ProductListResponse
}

// GetProductInput identifies a product.
type GetProductInput struct {
	ID string `path:"id" minLength:"1" maxLength:"128" doc:"Upstream product id"`
}

// ProductOutput wraps a single product for Huma.
type ProductOutput struct {
	Body domain.Product
}

// === Handlers ===

func (s *Server) handleListProducts(ctx context.Context, input *ListProductsInput) (*ProductListOutput, error) {
	if s.store == nil {
		return nil, errStoreDisabled
	}

	params := store.PaginationParams{Limit: input.Limit, Cursor: input.Cursor}
	page, err := s.store.ListProducts(ctx, params)
	if err != nil {
		return nil, toAPIError(err)
	}

	total, err := s.store.CountProducts(ctx)
	if err != nil {
		return nil, toAPIError(err)
	}

	items := page.Items
	if items == nil {
		items = []domain.Product{}
	}

	return &ProductListOutput{
		Body: ProductListResponse{
			Items:      items,
			NextCursor: page.NextCursor,
			HasMore:    page.HasMore,
			Total:      total,
		},
	}, nil
}

func (s *Server) handleGetProduct(ctx context.Context, input *GetProductInput) (*ProductOutput, error) {
	if s.store == nil {
		return nil, errStoreDisabled
	}

	p, err := s.store.GetProduct(ctx, input.ID)
	if err != nil {
		return nil, toAPIError(err)
	}
	return &ProductOutput{Body: *p}, nil
}

var errStoreDisabled = &APIError{
	status:  http.StatusServiceUnavailable,
	Code:    string(domainerrors.CodeInternal),
	Message: "product store is disabled",
}

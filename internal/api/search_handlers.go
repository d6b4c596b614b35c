package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/alkoparser/catalog-ingest/internal/errors"
	"github.com/alkoparser/catalog-ingest/internal/search"
)

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "searchProducts",
		Method:      http.MethodGet,
		Path:        "/api/v1/search",
		Summary:     "Search products",
		Description: "Full-text product search with section, brand, stock and price filters",
		Tags:        []string{"Search"},
	}, s.handleSearch)
}

// === DTOs ===

// SearchInput contains parameters for searching products.
type SearchInput struct {
	Query       string  `query:"q" maxLength:"200" doc:"Search query; empty matches every product"`
	Section     string  `query:"section" maxLength:"200" doc:"Exact section name"`
	Brand       string  `query:"brand" maxLength:"200" doc:"Exact brand name"`
	InStockOnly bool    `query:"in_stock" doc:"Only products available in at least one store"`
	MinPrice    float64 `query:"min_price" minimum:"0" doc:"Lowest current price"`
	MaxPrice    float64 `query:"max_price" minimum:"0" doc:"Highest current price"`
	Sort        string  `query:"sort" enum:"relevance,price,title,recent" default:"relevance" doc:"Sort order"`
	Order       string  `query:"order" enum:"asc,desc" default:"desc" doc:"Sort direction"`
	Limit       int     `query:"limit" minimum:"1" maximum:"100" default:"20" doc:"Max results"`
	Offset      int     `query:"offset" minimum:"0" doc:"Pagination offset"`
	Facets      bool    `query:"facets" doc:"Include section and brand facets"`
	Highlight   bool    `query:"highlight" doc:"Include title highlights"`
}

// SearchOutput wraps the search result for Huma.
type SearchOutput struct {
	Body search.SearchResult
}

// === Handlers ===

func (s *Server) handleSearch(ctx context.Context, input *SearchInput) (*SearchOutput, error) {
	if s.search == nil {
		return nil, &APIError{
			status:  http.StatusServiceUnavailable,
			Code:    string(domainerrors.CodeInternal),
			Message: "search is disabled",
		}
	}
	if input.MaxPrice > 0 && input.MinPrice > input.MaxPrice {
		return nil, toAPIError(domainerrors.Validation("min_price must not exceed max_price"))
	}

	s.logger.Debug("search request received",
		"query", input.Query,
		"section", input.Section,
		"brand", input.Brand,
		"limit", input.Limit,
	)

	result, err := s.search.Search(ctx, search.SearchParams{
		Query:         input.Query,
		Section:       input.Section,
		Brand:         input.Brand,
		InStockOnly:   input.InStockOnly,
		MinPrice:      input.MinPrice,
		MaxPrice:      input.MaxPrice,
		Limit:         input.Limit,
		Offset:        input.Offset,
		SortBy:        input.Sort,
		SortOrder:     input.Order,
		IncludeFacets: input.Facets,
		Highlight:     input.Highlight,
	})
	if err != nil {
		s.logger.Error("search failed", "query", input.Query, "error", err)
		return nil, toAPIError(err)
	}

	return &SearchOutput{Body: *result}, nil
}

package search

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// Sort orders accepted in SearchParams.SortBy.
const (
	SortRelevance = "relevance"
	SortPrice     = "price"
	SortTitle     = "title"
	SortRecent    = "recent"
)

// SearchParams configures a product search.
type SearchParams struct {
	Query string // Free text; empty matches everything

	// Filters
	Section     string  // Exact section name, either level
	Brand       string  // Exact brand
	InStockOnly bool    // Only products with stock
	MinPrice    float64 // Zero means unbounded
	MaxPrice    float64 // Zero means unbounded

	// Pagination
	Limit  int
	Offset int

	SortBy    string // One of the Sort* constants
	SortOrder string // "asc" or "desc"

	IncludeFacets bool
	Highlight     bool
}

// DefaultSearchParams returns sensible defaults.
func DefaultSearchParams() SearchParams {
	return SearchParams{
		Limit:         20,
		SortBy:        SortRelevance,
		SortOrder:     "desc",
		IncludeFacets: true,
	}
}

// SearchResult represents the search results.
type SearchResult struct {
	Query  string       `json:"query"`
	Total  uint64       `json:"total"`
	TookMs int64        `json:"took_ms"`
	Hits   []SearchHit  `json:"hits"`
	Facets SearchFacets `json:"facets,omitzero"`
}

// SearchHit represents a single matching product.
type SearchHit struct {
	ID         string            `json:"id"`
	Score      float64           `json:"score"`
	Title      string            `json:"title"`
	Brand      string            `json:"brand,omitempty"`
	Section    []string          `json:"section,omitempty"`
	Price      float64           `json:"price"`
	InStock    bool              `json:"in_stock"`
	Highlights map[string]string `json:"highlights,omitempty"`
}

// SearchFacets contains facet counts.
type SearchFacets struct {
	Sections []FacetCount `json:"sections,omitempty"`
	Brands   []FacetCount `json:"brands,omitempty"`
}

// FacetCount represents a facet value and its count.
type FacetCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Search executes a product query.
func (s *Index) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	if params.Limit <= 0 {
		params.Limit = DefaultSearchParams().Limit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	req := bleve.NewSearchRequestOptions(buildSearchQuery(params), params.Limit, params.Offset, false)
	addSorting(req, params)

	if params.IncludeFacets {
		req.AddFacet("section", bleve.NewFacetRequest("section", 20))
		req.AddFacet("brand_exact", bleve.NewFacetRequest("brand_exact", 20))
	}
	if params.Highlight {
		req.Highlight = bleve.NewHighlight()
		req.Highlight.AddField("title")
	}
	req.Fields = []string{"title", "brand", "section", "price", "in_stock"}

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &SearchResult{
		Query:  params.Query,
		Total:  res.Total,
		TookMs: res.Took.Milliseconds(),
		Hits:   make([]SearchHit, 0, len(res.Hits)),
	}

	for _, hit := range res.Hits {
		h := SearchHit{ID: hit.ID, Score: hit.Score}
		if v, ok := hit.Fields["title"].(string); ok {
			h.Title = v
		}
		if v, ok := hit.Fields["brand"].(string); ok {
			h.Brand = v
		}
		h.Section = stringsField(hit.Fields["section"])
		if v, ok := hit.Fields["price"].(float64); ok {
			h.Price = v
		}
		if v, ok := hit.Fields["in_stock"].(bool); ok {
			h.InStock = v
		}
		if len(hit.Fragments) > 0 {
			h.Highlights = make(map[string]string, len(hit.Fragments))
			for field, fragments := range hit.Fragments {
				if len(fragments) > 0 {
					h.Highlights[field] = fragments[0]
				}
			}
		}
		result.Hits = append(result.Hits, h)
	}

	if params.IncludeFacets {
		result.Facets = extractFacets(res)
	}

	return result, nil
}

// stringsField reads a stored field that Bleve returns as a string for one
// value and as []interface{} for several.
func stringsField(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// buildSearchQuery constructs the Bleve query from params.
func buildSearchQuery(params SearchParams) query.Query {
	var queries []query.Query

	if q := strings.TrimSpace(params.Query); q != "" {
		titleMatch := bleve.NewMatchQuery(q)
		titleMatch.SetField("title")
		titleMatch.SetBoost(3.0)

		brandMatch := bleve.NewMatchQuery(q)
		brandMatch.SetField("brand")
		brandMatch.SetBoost(2.0)

		descMatch := bleve.NewMatchQuery(q)
		descMatch.SetField("description")
		descMatch.SetBoost(0.5)

		// Typo tolerance on titles
		fuzzy := bleve.NewMatchQuery(q)
		fuzzy.SetField("title")
		fuzzy.SetFuzziness(1)
		fuzzy.SetBoost(0.8)

		textQueries := []query.Query{titleMatch, brandMatch, descMatch, fuzzy}

		// Prefix query for autocomplete (minimum 2 chars)
		if utf8.RuneCountInString(q) >= 2 && !strings.ContainsRune(q, ' ') {
			prefix := bleve.NewPrefixQuery(strings.ToLower(q))
			prefix.SetField("title")
			prefix.SetBoost(0.5)
			textQueries = append(textQueries, prefix)
		}

		queries = append(queries, bleve.NewDisjunctionQuery(textQueries...))
	}

	if params.Section != "" {
		sq := bleve.NewTermQuery(params.Section)
		sq.SetField("section")
		queries = append(queries, sq)
	}

	if params.Brand != "" {
		bq := bleve.NewTermQuery(params.Brand)
		bq.SetField("brand_exact")
		queries = append(queries, bq)
	}

	if params.InStockOnly {
		iq := bleve.NewBoolFieldQuery(true)
		iq.SetField("in_stock")
		queries = append(queries, iq)
	}

	if params.MinPrice > 0 || params.MaxPrice > 0 {
		var lo, hi *float64
		if params.MinPrice > 0 {
			lo = &params.MinPrice
		}
		if params.MaxPrice > 0 {
			hi = &params.MaxPrice
		}
		inclusive := true
		rq := bleve.NewNumericRangeInclusiveQuery(lo, hi, &inclusive, &inclusive)
		rq.SetField("price")
		queries = append(queries, rq)
	}

	switch len(queries) {
	case 0:
		return bleve.NewMatchAllQuery()
	case 1:
		return queries[0]
	default:
		return bleve.NewConjunctionQuery(queries...)
	}
}

// addSorting configures sort order.
func addSorting(req *bleve.SearchRequest, params SearchParams) {
	desc := params.SortOrder == "desc"
	field := func(name string) string {
		if desc {
			return "-" + name
		}
		return name
	}

	switch params.SortBy {
	case SortPrice:
		req.SortBy([]string{field("price"), "_id"})
	case SortTitle:
		req.SortBy([]string{field("title"), "_id"})
	case SortRecent:
		if params.SortOrder == "asc" {
			req.SortBy([]string{"captured_at", "_id"})
		} else {
			req.SortBy([]string{"-captured_at", "_id"})
		}
	default:
		req.SortBy([]string{"-_score", "_id"})
	}
}

// extractFacets converts Bleve facets to our format.
func extractFacets(res *bleve.SearchResult) SearchFacets {
	var facets SearchFacets

	if f, ok := res.Facets["section"]; ok && f.Terms != nil {
		for _, term := range f.Terms.Terms() {
			facets.Sections = append(facets.Sections, FacetCount{Value: term.Term, Count: term.Count})
		}
	}
	if f, ok := res.Facets["brand_exact"]; ok && f.Terms != nil {
		for _, term := range f.Terms.Terms() {
			facets.Brands = append(facets.Brands, FacetCount{Value: term.Term, Count: term.Count})
		}
	}

	return facets
}

// Package search provides full-text product search using Bleve.
// Titles, brands and descriptions go through the Russian analyzer so
// inflected queries ("водки", "вина") still match catalog titles.
package search

import (
	"github.com/alkoparser/catalog-ingest/internal/domain"
)

// ProductDocument is the flattened form of a product stored in the index.
type ProductDocument struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Brand       string   `json:"brand,omitempty"`
	Description string   `json:"description,omitempty"`
	Section     []string `json:"section,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Price       float64  `json:"price"`
	InStock     bool     `json:"in_stock"`
	CapturedAt  int64    `json:"captured_at"` // Unix seconds
}

// NewProductDocument flattens a canonical product for indexing.
func NewProductDocument(p *domain.Product) *ProductDocument {
	return &ProductDocument{
		ID:          p.ID,
		Title:       p.Title,
		Brand:       p.Brand,
		Description: p.Metadata[domain.MetaDescription],
		Section:     p.Section,
		Tags:        p.MarketingTags,
		Price:       p.Price.Current,
		InStock:     p.Stock.InStock,
		CapturedAt:  p.Timestamp,
	}
}

// ToMap converts the document to a map keyed by the mapping's field names.
// Bleve would otherwise index the exported Go field names.
func (d *ProductDocument) ToMap() map[string]any {
	m := map[string]any{
		"id":          d.ID,
		"title":       d.Title,
		"price":       d.Price,
		"in_stock":    d.InStock,
		"captured_at": d.CapturedAt,
	}
	if d.Brand != "" {
		m["brand"] = d.Brand
	}
	if d.Description != "" {
		m["description"] = d.Description
	}
	if len(d.Section) > 0 {
		m["section"] = d.Section
	}
	if len(d.Tags) > 0 {
		m["tags"] = d.Tags
	}
	return m
}

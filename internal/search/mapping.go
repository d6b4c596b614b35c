package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/analysis/lang/ru"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve index mapping for product documents.
//
// Text fields use Russian stemming. Brand is indexed twice: stemmed for
// free-text queries and as a keyword for exact filtering.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = ru.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	titleFieldMapping := bleve.NewTextFieldMapping()
	titleFieldMapping.Analyzer = ru.AnalyzerName
	titleFieldMapping.Store = true
	titleFieldMapping.IncludeTermVectors = true // For highlighting
	docMapping.AddFieldMappingsAt("title", titleFieldMapping)

	// Description is searchable but not stored (too large)
	descFieldMapping := bleve.NewTextFieldMapping()
	descFieldMapping.Analyzer = ru.AnalyzerName
	descFieldMapping.Store = false
	docMapping.AddFieldMappingsAt("description", descFieldMapping)

	brandFieldMapping := bleve.NewTextFieldMapping()
	brandFieldMapping.Analyzer = simple.Name
	brandFieldMapping.Store = true
	brandExactMapping := bleve.NewTextFieldMapping()
	brandExactMapping.Name = "brand_exact"
	brandExactMapping.Analyzer = keyword.Name
	brandExactMapping.Store = false
	docMapping.AddFieldMappingsAt("brand", brandFieldMapping, brandExactMapping)

	// --- Keyword fields (exact match, facetable) ---

	idFieldMapping := bleve.NewTextFieldMapping()
	idFieldMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("id", idFieldMapping)

	sectionFieldMapping := bleve.NewTextFieldMapping()
	sectionFieldMapping.Analyzer = keyword.Name
	sectionFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("section", sectionFieldMapping)

	tagsFieldMapping := bleve.NewTextFieldMapping()
	tagsFieldMapping.Analyzer = keyword.Name
	tagsFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("tags", tagsFieldMapping)

	// --- Numeric and boolean fields ---

	priceFieldMapping := bleve.NewNumericFieldMapping()
	priceFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("price", priceFieldMapping)

	inStockFieldMapping := bleve.NewBooleanFieldMapping()
	inStockFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("in_stock", inStockFieldMapping)

	capturedAtFieldMapping := bleve.NewNumericFieldMapping()
	capturedAtFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("captured_at", capturedAtFieldMapping)

	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}

package validation_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alkoparser/catalog-ingest/internal/domain"
	domainerrors "github.com/alkoparser/catalog-ingest/internal/errors"
	"github.com/alkoparser/catalog-ingest/internal/validation"
)

func validProduct() domain.Product {
	img := "https://cdn.example.test/1.jpg"
	return domain.Product{
		Timestamp:     1714564800,
		ID:            "c0ffee",
		URL:           "https://alkoteka.com/product/vino/merlot",
		Title:         "Merlot, 0.75L",
		MarketingTags: []string{"Хит"},
		Section:       []string{"Вино", "Красное"},
		Price:         domain.Price{Current: 900, Original: 1000, SaleTag: "Discount 10%"},
		Stock:         domain.Stock{InStock: true, Count: 4},
		Assets: domain.Assets{
			MainImage: &img,
			SetImages: []string{img},
			View360:   []string{},
			Video:     []string{},
		},
		Metadata: map[string]string{"description": ""},
		Variants: 1,
	}
}

func TestValidator_ValidProduct(t *testing.T) {
	assert.NoError(t, validation.New().Validate(validProduct()))
}

func TestValidator_EmptyURLAllowed(t *testing.T) {
	p := validProduct()
	p.URL = ""
	assert.NoError(t, validation.New().Validate(p))
}

func TestValidator_Rejects(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name    string
		mutate  func(*domain.Product)
		field   string
		message string
	}{
		{"missing id", func(p *domain.Product) { p.ID = "" }, "id", "is required"},
		{"bad url", func(p *domain.Product) { p.URL = "not a url" }, "url", "must be a valid URL"},
		{"deep section", func(p *domain.Product) { p.Section = []string{"a", "b", "c"} }, "section", "must not contain more than 2 items"},
		{"nil metadata", func(p *domain.Product) { p.Metadata = nil }, "metadata", "is required"},
		{"zero variants", func(p *domain.Product) { p.Variants = 0 }, "variants", "must be greater than or equal to 1"},
		{"negative stock", func(p *domain.Product) { p.Stock.Count = -1 }, "stock.count", "must be greater than or equal to 0"},
		{"missing sale tag", func(p *domain.Product) { p.Price.SaleTag = "" }, "price.sale_tag", "is required when the original price exceeds the current price"},
		{"stray sale tag", func(p *domain.Product) { p.Price.Original = p.Price.Current }, "price.sale_tag", "must be empty when the product is not discounted"},
		{"image set mismatch", func(p *domain.Product) { p.Assets.SetImages = []string{"other"} }, "assets.set_images", "must start with main_image"},
		{"images without main", func(p *domain.Product) { p.Assets.MainImage = nil }, "assets.set_images", "must start with main_image"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validProduct()
			tt.mutate(&p)

			err := v.Validate(p)
			require.Error(t, err)

			var domainErr *domainerrors.Error
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, http.StatusBadRequest, domainErr.HTTPStatus())

			details, ok := domainErr.Details.(map[string]string)
			require.True(t, ok)
			assert.Equal(t, tt.message, details[tt.field], "details: %v", details)
		})
	}
}

func TestValidator_NonStructError(t *testing.T) {
	err := validation.New().Validate("just a string")
	require.Error(t, err)

	var domainErr *domainerrors.Error
	assert.NotErrorAs(t, err, &domainErr)
}

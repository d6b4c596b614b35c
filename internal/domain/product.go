package domain

// Product is the canonical record emitted for every catalog item.
// Every field is always present in the serialized form, even when the
// upstream payload carried nothing for it.
type Product struct {
	Timestamp     int64             `json:"timestamp"`
	ID            string            `json:"id" validate:"required"`
	URL           string            `json:"url" validate:"omitempty,url"`
	Title         string            `json:"title"`
	MarketingTags []string          `json:"marketing_tags"`
	Brand         string            `json:"brand"`
	Section       []string          `json:"section" validate:"max=2"`
	Price         Price             `json:"price"`
	Stock         Stock             `json:"stock"`
	Assets        Assets            `json:"assets"`
	Metadata      map[string]string `json:"metadata" validate:"required"`
	Variants      int               `json:"variants" validate:"gte=1"`
}

// Price holds the current and pre-discount price.
// SaleTag is non-empty only when Original > Current > 0.
type Price struct {
	Current  float64 `json:"current" validate:"gte=0"`
	Original float64 `json:"original" validate:"gte=0"`
	SaleTag  string  `json:"sale_tag"`
}

// OnSale reports whether the price carries a discount.
func (p Price) OnSale() bool {
	return p.Original > p.Current && p.Current > 0
}

// Stock is the aggregated availability across stores.
type Stock struct {
	InStock bool `json:"in_stock"`
	Count   int  `json:"count" validate:"gte=0"`
}

// Assets lists product media. MainImage is nil when the item has no picture.
type Assets struct {
	MainImage *string  `json:"main_image"`
	SetImages []string `json:"set_images"`
	View360   []string `json:"view360"`
	Video     []string `json:"video"`
}

// Metadata keys with fixed meaning.
const (
	MetaDescription = "description"
	MetaVendorCode  = "Артикул"
)

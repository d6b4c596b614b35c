// Package normalize turns an upstream product detail payload into the
// canonical product record.
//
// Normalization is total: any input, including nil, yields a fully populated
// record. Fields that cannot be read fall back to their zero form and, where
// the loss is worth knowing about, a warning is logged.
package normalize

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/alkoparser/catalog-ingest/internal/domain"
	"github.com/alkoparser/catalog-ingest/internal/loose"
)

// Label filters whose titles extend the product title.
var titleFilters = map[string]bool{
	"cvet": true, // colour
	"obem": true, // volume
}

// Text block titles that carry the product description.
var descriptionTitles = map[string]bool{
	"Описание":    true,
	"Description": true,
}

const (
	brandBlockCode  = "brend"
	defaultQuantity = "0 шт"
)

// Normalizer wraps Product with a logger and a clock.
type Normalizer struct {
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Normalizer stamping records with the wall clock.
func New(logger *slog.Logger) *Normalizer {
	return &Normalizer{logger: logger, now: time.Now}
}

// Normalize converts raw, using fallbackURL when the payload has no product_url.
func (n *Normalizer) Normalize(raw domain.RawProduct, fallbackURL string) domain.Product {
	return Product(raw, fallbackURL, n.now(), n.logger)
}

// Product is the pure form of Normalizer.Normalize.
func Product(raw domain.RawProduct, fallbackURL string, now time.Time, logger *slog.Logger) domain.Product {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	labels := loose.Maps(raw["filter_labels"])

	p := domain.Product{
		Timestamp:     now.Unix(),
		ID:            productID(raw),
		URL:           productURL(raw, fallbackURL),
		Title:         title(raw, labels),
		MarketingTags: marketingTags(labels),
		Brand:         brand(raw),
		Section:       section(raw),
		Price:         price(raw),
		Assets:        assets(raw),
		Variants:      1,
	}
	p.Stock = stock(raw, logger.With("product_id", p.ID))
	p.Metadata = metadata(raw, labels, logger.With("product_id", p.ID))
	return p
}

func productID(raw domain.RawProduct) string {
	if v, ok := raw["uuid"]; ok && v != nil {
		return loose.Stringify(v)
	}
	return ""
}

func productURL(raw domain.RawProduct, fallback string) string {
	if u := loose.String(raw, "product_url"); u != "" {
		return u
	}
	return fallback
}

func title(raw domain.RawProduct, labels []map[string]any) string {
	parts := []string{clean(loose.String(raw, "name"))}
	for _, l := range labels {
		if !titleFilters[loose.String(l, "filter")] {
			continue
		}
		if t := clean(loose.String(l, "title")); t != "" {
			parts = append(parts, t)
		}
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return strings.Join(parts, ", ")
}

func marketingTags(labels []map[string]any) []string {
	tags := make([]string, 0, len(labels))
	for _, l := range labels {
		if t := clean(loose.String(l, "title")); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func brand(raw domain.RawProduct) string {
	for _, block := range loose.Maps(raw["description_blocks"]) {
		if loose.String(block, "code") != brandBlockCode {
			continue
		}
		values := loose.Slice(block["values"])
		if len(values) == 0 {
			continue
		}
		return clean(loose.String(loose.Map(values[0]), "name"))
	}
	return ""
}

func section(raw domain.RawProduct) []string {
	out := make([]string, 0, 2)
	category := loose.Map(raw["category"])
	if category == nil {
		return out
	}
	if parent := clean(loose.String(loose.Map(category["parent"]), "name")); parent != "" {
		out = append(out, parent)
	}
	if name := clean(loose.String(category, "name")); name != "" {
		out = append(out, name)
	}
	return out
}

func price(raw domain.RawProduct) domain.Price {
	current, _ := loose.Float(raw["price"])

	original := current
	if prev := raw["prev_price"]; prev != nil {
		if f, ok := loose.Float(prev); ok {
			original = f
		}
	}

	p := domain.Price{Current: current, Original: original}
	if p.OnSale() {
		p.SaleTag = SaleTag(original, current)
	}
	return p
}

// SaleTag formats the discount label. Halves round to even, so a 12.5%
// discount reads "Discount 12%".
func SaleTag(original, current float64) string {
	pct := math.RoundToEven((original - current) / original * 100)
	return fmt.Sprintf("Discount %d%%", int(pct))
}

func stock(raw domain.RawProduct, logger *slog.Logger) domain.Stock {
	stores := loose.Slice(loose.Map(raw["availability"])["stores"])
	s := domain.Stock{InStock: len(stores) > 0}

	for _, item := range stores {
		store := loose.Map(item)
		q, present := store["quantity"]
		if !present {
			q = defaultQuantity
		}
		n, ok := quantity(q)
		if !ok {
			logger.Warn("unparseable store quantity",
				"store", loose.Stringify(store["title"]),
				"quantity", loose.Stringify(q),
			)
			continue
		}
		s.Count += n
	}
	return s
}

// quantity reads "<N> <unit>" strings such as "12 шт", or a bare number.
func quantity(v any) (int, bool) {
	if s, ok := v.(string); ok {
		fields := strings.Fields(s)
		if len(fields) == 0 {
			return 0, false
		}
		return loose.Int(fields[0])
	}
	return loose.Int(v)
}

func assets(raw domain.RawProduct) domain.Assets {
	a := domain.Assets{
		SetImages: []string{},
		View360:   []string{},
		Video:     []string{},
	}
	if img := strings.TrimSpace(loose.String(raw, "image_url")); img != "" {
		a.MainImage = &img
		a.SetImages = append(a.SetImages, img)
	}
	return a
}

func metadata(raw domain.RawProduct, labels []map[string]any, logger *slog.Logger) map[string]string {
	meta := map[string]string{
		domain.MetaDescription: description(raw),
	}

	for _, l := range labels {
		titleVal := l["title"]
		if !loose.Truthy(titleVal) {
			continue
		}
		key := titleVal
		if f := l["filter"]; loose.Truthy(f) {
			key = f
		}
		value := titleVal
		if v := l["value"]; loose.Truthy(v) {
			value = v
		}

		k := clean(loose.Stringify(key))
		if k == domain.MetaDescription {
			logger.Debug("label shadows description, skipped")
			continue
		}
		meta[k] = clean(loose.Stringify(value))
	}

	if vc := raw["vendor_code"]; loose.Truthy(vc) {
		meta[domain.MetaVendorCode] = loose.Stringify(vc)
	}
	return meta
}

func description(raw domain.RawProduct) string {
	for _, block := range loose.Maps(raw["text_blocks"]) {
		if !descriptionTitles[loose.String(block, "title")] {
			continue
		}
		return clean(HTMLToText(loose.String(block, "content")))
	}
	return ""
}

// clean composes text to NFC so equal strings compare equal downstream.
func clean(s string) string {
	return norm.NFC.String(s)
}

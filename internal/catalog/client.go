// Package catalog speaks the upstream product API: the category count probe,
// the single-page listing and the per-product detail.
package catalog

import (
	"context"
	"encoding/json/v2"
	"encoding/json/jsontext"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/alkoparser/catalog-ingest/internal/domain"
	"github.com/alkoparser/catalog-ingest/internal/fetch"
	"github.com/alkoparser/catalog-ingest/internal/loose"
)

// Fetcher retrieves one URL. *fetch.Fetcher implements it.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetch.Response, error)
}

// Client builds catalog URLs and decodes their payloads.
type Client struct {
	fetcher  Fetcher
	baseURL  string
	cityUUID string
	logger   *slog.Logger
}

// New creates a catalog client rooted at baseURL, e.g. https://alkoteka.com/web-api/v1.
func New(fetcher Fetcher, baseURL, cityUUID string, logger *slog.Logger) *Client {
	return &Client{
		fetcher:  fetcher,
		baseURL:  baseURL,
		cityUUID: cityUUID,
		logger:   logger,
	}
}

// CountURL is the count probe for a category.
func (c *Client) CountURL(slug string) string {
	q := url.Values{}
	q.Set("city_uuid", c.cityUUID)
	q.Set("root_category_slug", slug)
	return c.baseURL + "/product?" + q.Encode()
}

// ListURL requests the whole category as one page of total items.
func (c *Client) ListURL(slug string, total int) string {
	q := url.Values{}
	q.Set("city_uuid", c.cityUUID)
	q.Set("page", "1")
	q.Set("per_page", strconv.Itoa(total))
	q.Set("root_category_slug", slug)
	return c.baseURL + "/product?" + q.Encode()
}

// DetailURL addresses a single product.
func (c *Client) DetailURL(slug string) string {
	q := url.Values{}
	q.Set("city_uuid", c.cityUUID)
	return c.baseURL + "/product/" + url.PathEscape(slug) + "?" + q.Encode()
}

// Count returns meta.total for a category. An absent total reads as zero.
func (c *Client) Count(ctx context.Context, slug string) (int, error) {
	doc, err := c.getObject(ctx, c.CountURL(slug))
	if err != nil {
		return 0, wrapError("count", slug, err)
	}

	raw, present := loose.Map(doc["meta"])["total"]
	if !present || raw == nil {
		return 0, nil
	}
	total, ok := loose.Int(raw)
	if !ok || total < 0 {
		return 0, wrapError("count", slug, ErrDecode.WithDetails(map[string]any{"total": raw}))
	}
	return total, nil
}

// List returns the listing entries for a category fetched as one page.
// Entries without a usable slug are dropped and counted in skipped.
func (c *Client) List(ctx context.Context, slug string, total int) (entries []domain.ListingEntry, skipped int, err error) {
	doc, err := c.getObject(ctx, c.ListURL(slug, total))
	if err != nil {
		return nil, 0, wrapError("list", slug, err)
	}

	raw, present := doc["results"]
	if !present || raw == nil {
		return []domain.ListingEntry{}, 0, nil
	}
	results, ok := raw.([]any)
	if !ok {
		return nil, 0, wrapError("list", slug, ErrDecode.WithDetails("results is not an array"))
	}

	entries = make([]domain.ListingEntry, 0, len(results))
	for _, item := range results {
		m := loose.Map(item)
		s := loose.String(m, "slug")
		if s == "" {
			skipped++
			continue
		}
		entries = append(entries, domain.ListingEntry{
			Slug: s,
			URL:  loose.String(m, "product_url"),
		})
	}

	if skipped > 0 {
		c.logger.Debug("listing entries without slug", "category", slug, "skipped", skipped)
	}
	return entries, skipped, nil
}

// Detail returns the raw results object for a product.
// A null or empty object is ErrEmpty.
func (c *Client) Detail(ctx context.Context, slug string) (domain.RawProduct, error) {
	doc, err := c.getObject(ctx, c.DetailURL(slug))
	if err != nil {
		return nil, wrapError("detail", slug, err)
	}

	raw := doc["results"]
	if raw == nil {
		return nil, wrapError("detail", slug, ErrEmpty)
	}
	product, ok := raw.(map[string]any)
	if !ok {
		return nil, wrapError("detail", slug, ErrDecode.WithDetails("results is not an object"))
	}
	if len(product) == 0 {
		return nil, wrapError("detail", slug, ErrEmpty)
	}
	return domain.RawProduct(product), nil
}

// getObject fetches rawURL and decodes a JSON object body.
func (c *Client) getObject(ctx context.Context, rawURL string) (map[string]any, error) {
	resp, err := c.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.Status == http.StatusOK:
	case resp.Status == http.StatusNotFound:
		return nil, ErrNotFound
	default:
		return nil, ErrStatus.WithDetails(map[string]any{"status": resp.Status})
	}

	return decodeObject(resp.Body)
}

// decodeObject parses a top-level JSON object, tolerating duplicate keys and
// stray invalid UTF-8 from upstream.
func decodeObject(body []byte) (map[string]any, error) {
	var doc map[string]any
	err := json.Unmarshal(body, &doc,
		jsontext.AllowDuplicateNames(true),
		jsontext.AllowInvalidUTF8(true),
	)
	if err != nil {
		return nil, ErrDecode.WithCause(fmt.Errorf("parse response: %w", err))
	}
	if doc == nil {
		return nil, ErrDecode.WithDetails("body is null")
	}
	return doc, nil
}

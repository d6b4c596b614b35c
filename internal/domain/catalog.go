package domain

// Category is a root catalog section addressed by its slug.
type Category struct {
	Slug  string `json:"slug"`
	Total int    `json:"total"` // Resolved by the count probe; zero until then
}

// ListingEntry is one item reference taken from a category listing.
type ListingEntry struct {
	Slug string `json:"slug"`
	URL  string `json:"url,omitempty"` // Canonical page URL, may be empty
}

// RawProduct is the untyped detail payload exactly as decoded from upstream.
// Only the normalizer looks inside it.
type RawProduct map[string]any

package store

import (
	"encoding/base64"
	"fmt"
)

// Page size bounds.
const (
	DefaultPageLimit = 100
	MaxPageLimit     = 1000
)

// PaginationParams contains pagination request parameters.
type PaginationParams struct {
	Limit  int    // Items per page
	Cursor string // Opaque cursor for the next page, empty for the first
}

// PaginatedResult contains one page of items and the cursor for the next.
type PaginatedResult[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
	Total      int    `json:"total,omitempty"`
}

// DefaultPaginationParams returns the first page at the default size.
func DefaultPaginationParams() PaginationParams {
	return PaginationParams{Limit: DefaultPageLimit}
}

// Validate clamps Limit into [1, MaxPageLimit], using the default for zero.
func (p *PaginationParams) Validate() {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
}

// EncodeCursor creates an opaque cursor from the last returned id.
func EncodeCursor(id string) string {
	if id == "" {
		return ""
	}
	return base64.URLEncoding.EncodeToString([]byte(id))
}

// DecodeCursor decodes a cursor back to an id.
func DecodeCursor(cursor string) (string, error) {
	if cursor == "" {
		return "", nil
	}

	decoded, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return "", fmt.Errorf("invalid cursor: %w", err)
	}
	return string(decoded), nil
}

package catalog

import (
	"fmt"

	apperrors "github.com/alkoparser/catalog-ingest/internal/errors"
)

// Sentinel errors for catalog operations. Each carries a domain code, so
// errors.Is also matches the corresponding apperrors sentinel.
var (
	ErrNotFound = apperrors.NotFound("catalog: not found")
	ErrStatus   = &apperrors.Error{Code: apperrors.CodeUpstreamStatus, Message: "catalog: unexpected status"}
	ErrDecode   = apperrors.Decodef("catalog: malformed payload")
	ErrEmpty    = apperrors.Emptyf("catalog: empty result")
)

// Error wraps an underlying error with operation context.
type Error struct {
	Op   string // Operation: "count", "list", "detail"
	Slug string // Category or product slug
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("catalog %s [%s]: %v", e.Op, e.Slug, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// wrapError creates an Error with context.
func wrapError(op, slug string, err error) error {
	return &Error{Op: op, Slug: slug, Err: err}
}

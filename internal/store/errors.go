package store

import apperrors "github.com/alkoparser/catalog-ingest/internal/errors"

// Sentinel errors. They carry domain codes, so the API maps them to HTTP
// statuses without knowing about the store.
var (
	ErrNotFound     = apperrors.NotFound("resource not found")
	ErrInvalidInput = apperrors.Validation("invalid input")
)

package api

import (
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	"github.com/alkoparser/catalog-ingest/internal/http/response"
)

// EnvelopeTransformer wraps every Huma response body in response.Envelope.
// Errors keep their code and details; everything else becomes data.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	if _, already := v.(response.Envelope); already {
		return v, nil
	}

	if apiErr, ok := v.(*APIError); ok {
		return response.Envelope{
			V:       response.EnvelopeVersion,
			Success: false,
			Error:   apiErr.Message,
			Code:    apiErr.Code,
			Details: apiErr.Details,
		}, nil
	}

	code, _ := strconv.Atoi(status)
	return response.Envelope{
		V:       response.EnvelopeVersion,
		Success: code == 0 || code < 400,
		Data:    v,
	}, nil
}

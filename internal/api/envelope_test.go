package api

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/alkoparser/catalog-ingest/internal/errors"
	"github.com/alkoparser/catalog-ingest/internal/http/response"
)

func TestEnvelopeTransformer_Success(t *testing.T) {
	data := map[string]string{"id": "test-123"}

	out, err := EnvelopeTransformer(nil, "200", data)
	require.NoError(t, err)

	env, ok := out.(response.Envelope)
	require.True(t, ok)
	assert.Equal(t, 1, env.V)
	assert.True(t, env.Success)
	assert.Equal(t, data, env.Data)
}

func TestEnvelopeTransformer_Error(t *testing.T) {
	out, err := EnvelopeTransformer(nil, "404", &APIError{
		status:  http.StatusNotFound,
		Code:    "NOT_FOUND",
		Message: "resource not found",
	})
	require.NoError(t, err)

	env := out.(response.Envelope)
	assert.False(t, env.Success)
	assert.Equal(t, "NOT_FOUND", env.Code)
	assert.Equal(t, "resource not found", env.Error)
	assert.Nil(t, env.Data)
}

func TestEnvelopeTransformer_Idempotent(t *testing.T) {
	in := response.Envelope{V: 1, Success: true, Data: "x"}
	out, err := EnvelopeTransformer(nil, "200", in)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestToAPIError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", domainerrors.NotFound("product not found"), http.StatusNotFound, "NOT_FOUND"},
		{"validation", domainerrors.Validation("bad cursor"), http.StatusBadRequest, "VALIDATION"},
		{"wrapped", errors.Join(errors.New("ctx"), domainerrors.NotFound("gone")), http.StatusNotFound, "NOT_FOUND"},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, "INTERNAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var apiErr *APIError
			require.ErrorAs(t, toAPIError(tt.err), &apiErr)
			assert.Equal(t, tt.status, apiErr.GetStatus())
			assert.Equal(t, tt.code, apiErr.Code)
		})
	}

	assert.NoError(t, toAPIError(nil))
}

func TestStatusToCode(t *testing.T) {
	assert.Equal(t, "VALIDATION", statusToCode(http.StatusUnprocessableEntity))
	assert.Equal(t, "NOT_FOUND", statusToCode(http.StatusNotFound))
	assert.Equal(t, "RATE_LIMITED", statusToCode(http.StatusTooManyRequests))
	assert.Equal(t, "INTERNAL", statusToCode(http.StatusTeapot))
}

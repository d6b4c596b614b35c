package errors

import (
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesByCode(t *testing.T) {
	err := Decodef("listing for %s", "vodka")

	assert.True(t, Is(err, ErrDecode))
	assert.False(t, Is(err, ErrEmpty))
	assert.Equal(t, "listing for vodka", err.Error())
}

func TestWrap_KeepsCause(t *testing.T) {
	err := Wrap(io.ErrUnexpectedEOF, CodeTransport, "fetch detail")

	assert.True(t, Is(err, ErrTransport))
	assert.True(t, Is(err, io.ErrUnexpectedEOF))
	assert.Equal(t, "fetch detail: unexpected EOF", err.Error())
}

func TestCodeOf(t *testing.T) {
	wrapped := fmt.Errorf("category beer: %w", Emptyf("total is zero"))

	assert.Equal(t, CodeEmpty, CodeOf(wrapped))
	assert.Equal(t, CodeInternal, CodeOf(io.EOF))
}

func TestCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeNotFound, http.StatusNotFound},
		{CodeValidation, http.StatusBadRequest},
		{CodeRateLimited, http.StatusTooManyRequests},
		{CodeTransport, http.StatusBadGateway},
		{CodeDecode, http.StatusBadGateway},
		{CodeInternal, http.StatusInternalServerError},
		{CodeCoercion, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.HTTPStatus())
		})
	}
}

func TestWithDetails_DoesNotMutateSentinel(t *testing.T) {
	err := ErrValidation.WithDetails(map[string]string{"id": "required"})

	assert.NotNil(t, err.Details)
	assert.Nil(t, ErrValidation.Details)
}

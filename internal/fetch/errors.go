package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"

	apperrors "github.com/alkoparser/catalog-ingest/internal/errors"
)

// ErrDisallowed is returned when robots.txt forbids the requested path.
var ErrDisallowed = errors.New("fetch: disallowed by robots.txt")

// Kind classifies a transport failure.
type Kind string

// Transport failure kinds.
const (
	KindTimeout    Kind = "timeout"
	KindConnection Kind = "connection"
	KindCanceled   Kind = "canceled"
	KindOther      Kind = "other"
)

// TransportError reports a request that never produced an HTTP response.
// It matches apperrors.ErrTransport under errors.Is.
type TransportError struct {
	URL  string
	Kind Kind
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("fetch %s [%s]: %v", e.URL, e.Kind, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is makes the error match the domain transport sentinel.
func (e *TransportError) Is(target error) bool {
	return target == apperrors.ErrTransport
}

// classify maps a client error to a Kind.
func classify(err error) Kind {
	switch {
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	var dnsErr *net.DNSError
	var opErr *net.OpError
	if errors.As(err, &dnsErr) || errors.As(err, &opErr) ||
		errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return KindConnection
	}

	return KindOther
}

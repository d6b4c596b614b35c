// Package sink delivers canonical products to durable destinations: a JSON
// array file, the embedded store with its search index, and an optional
// Postgres warehouse.
package sink

import (
	"context"
	"errors"
	"iter"
	"log/slog"

	"github.com/alkoparser/catalog-ingest/internal/domain"
)

// Sink consumes canonical products one at a time.
type Sink interface {
	Write(ctx context.Context, p *domain.Product) error
	Close() error
}

// Multi fans each product out to several sinks. A failing sink does not
// stop the others from receiving the record.
type Multi []Sink

// Write offers p to every sink and joins their errors.
func (m Multi) Write(ctx context.Context, p *domain.Product) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink and joins their errors.
func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Stats counts the outcome of a Drain.
type Stats struct {
	Written int
	Failed  int
}

// Drain writes every product from seq to s in emission order.
// Write failures are logged per record and never stop the stream.
func Drain(ctx context.Context, seq iter.Seq[domain.Product], s Sink, logger *slog.Logger) Stats {
	var stats Stats
	for p := range seq {
		if err := s.Write(ctx, &p); err != nil {
			stats.Failed++
			logger.Warn("sink write failed",
				"product_id", p.ID,
				"url", p.URL,
				"error", err,
			)
			continue
		}
		stats.Written++
	}
	return stats
}

// Package store persists ingested products and crawl run summaries.
//
// The default backend is Badger. Records are stored as JSON under
// "<prefix><id>" keys, with secondary indexes under "<prefix>idx:<name>:".
// The sqlite subpackage implements the same ProductStore contract.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/alkoparser/catalog-ingest/internal/domain"
)

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger

	Products *Entity[domain.Product]
	Runs     *Entity[domain.Run]
}

var _ ProductStore = (*Store)(nil)

// New opens (or creates) the Badger database at path.
func New(path string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Badger's own logger is too chatty
	opts.SyncWrites = true       // A crash mid-crawl must not corrupt the value log
	opts.CompactL0OnClose = true // Faster startup on the next run

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	s := &Store{
		db:     db,
		logger: logger,
	}
	s.initProducts()
	s.initRuns()

	if logger != nil {
		logger.Info("Badger database opened successfully", "path", path)
	}
	return s, nil
}

// Close gracefully closes the database connection.
func (s *Store) Close() error {
	if s.db.IsClosed() {
		return nil
	}
	if s.logger != nil {
		s.logger.Info("Closing database connection")
	}
	return s.db.Close()
}

// Ping reports whether the database is open and readable.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.db.IsClosed() {
		return errors.New("badger db is closed")
	}
	return s.db.View(func(*badger.Txn) error { return nil })
}

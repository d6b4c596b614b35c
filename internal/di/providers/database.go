package providers

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/alkoparser/catalog-ingest/internal/config"
	"github.com/alkoparser/catalog-ingest/internal/logger"
	"github.com/alkoparser/catalog-ingest/internal/sse"
	"github.com/alkoparser/catalog-ingest/internal/store"
	"github.com/alkoparser/catalog-ingest/internal/store/sqlite"
)

// SSEManagerHandle wraps the SSE manager with its context for lifecycle management.
type SSEManagerHandle struct {
	*sse.Manager
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *SSEManagerHandle) Shutdown() error {
	h.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Manager.Shutdown(ctx)
}

// ProvideSSEManager provides the server-sent events manager.
func ProvideSSEManager(i do.Injector) (*SSEManagerHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	manager := sse.NewManager(log.Logger)

	ctx, cancel := context.WithCancel(context.Background())
	go manager.Start(ctx)

	log.Info("SSE manager started")

	return &SSEManagerHandle{
		Manager: manager,
		cancel:  cancel,
	}, nil
}

// StoreHandle wraps the product store with shutdown capability.
// ProductStore is nil when STORE_DRIVER=none.
type StoreHandle struct {
	store.ProductStore
}

// Enabled reports whether a store is configured.
func (h *StoreHandle) Enabled() bool {
	return h.ProductStore != nil
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	if h.ProductStore == nil {
		return nil
	}
	return h.Close()
}

// ProvideStore opens the store selected by STORE_DRIVER under the data path.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	switch cfg.Storage.Driver {
	case config.StoreNone:
		log.Info("Product store disabled")
		return &StoreHandle{}, nil

	case config.StoreSQLite:
		if err := os.MkdirAll(cfg.Storage.DataPath, 0o750); err != nil {
			return nil, err
		}
		dbPath := filepath.Join(cfg.Storage.DataPath, "catalog.db")
		db, err := sqlite.Open(dbPath, log.Logger)
		if err != nil {
			return nil, err
		}
		log.Info("Database initialized", "driver", cfg.Storage.Driver, "path", dbPath)
		return &StoreHandle{ProductStore: db}, nil

	default:
		dbPath := filepath.Join(cfg.Storage.DataPath, "db")
		db, err := store.New(dbPath, log.Logger)
		if err != nil {
			return nil, err
		}
		log.Info("Database initialized", "driver", cfg.Storage.Driver, "path", dbPath)
		return &StoreHandle{ProductStore: db}, nil
	}
}

// ProvideSlogLogger provides access to the underlying slog.Logger for packages that need it.
func ProvideSlogLogger(i do.Injector) (*slog.Logger, error) {
	log := do.MustInvoke[*logger.Logger](i)
	return log.Logger, nil
}

package providers

import (
	"context"
	"sync"

	"github.com/samber/do/v2"

	"github.com/alkoparser/catalog-ingest/internal/config"
	"github.com/alkoparser/catalog-ingest/internal/logger"
	"github.com/alkoparser/catalog-ingest/internal/sink"
	"github.com/alkoparser/catalog-ingest/internal/validation"
)

// SinksHandle fans products out to every configured destination.
// Close finalizes them once; a later Shutdown is a no-op.
type SinksHandle struct {
	sink.Multi
	JSON *sink.JSONFile // nil when OUTPUT_PATH is empty

	closeOnce sync.Once
	closeErr  error
}

// Close finalizes the JSON file, flushes Postgres and releases the sinks.
func (h *SinksHandle) Close() error {
	h.closeOnce.Do(func() {
		h.closeErr = h.Multi.Close()
	})
	return h.closeErr
}

// Shutdown implements do.Shutdownable.
func (h *SinksHandle) Shutdown() error {
	return h.Close()
}

// ProvideValidator provides the record validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ProvideSinks assembles the JSON file, store and Postgres sinks from config.
func ProvideSinks(i do.Injector) (*SinksHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	v := do.MustInvoke[*validation.Validator](i)

	h := &SinksHandle{}

	if cfg.Output.Path != "" {
		jf, err := sink.NewJSONFile(cfg.Output.Path)
		if err != nil {
			return nil, err
		}
		h.JSON = jf
		h.Multi = append(h.Multi, jf)
		log.Info("JSON output enabled", "path", cfg.Output.Path)
	}

	if storeHandle.Enabled() {
		var indexer sink.Indexer
		if indexHandle.Enabled() {
			indexer = indexHandle.Index
		}
		h.Multi = append(h.Multi, sink.NewStore(storeHandle.ProductStore, indexer, v, log.Logger))
	}

	if cfg.Storage.PostgresDSN != "" {
		pg, err := sink.NewPostgres(context.Background(), cfg.Storage.PostgresDSN, sink.PostgresOptions{}, log.Logger)
		if err != nil {
			_ = h.Multi.Close()
			return nil, err
		}
		h.Multi = append(h.Multi, pg)
		log.Info("Postgres sink enabled", "table", sink.DefaultPostgresTable)
	}

	if len(h.Multi) == 0 {
		log.Warn("No sinks configured, products will be discarded")
	}
	return h, nil
}

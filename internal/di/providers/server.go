package providers

import (
	"context"
	"errors"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/alkoparser/catalog-ingest/internal/api"
	"github.com/alkoparser/catalog-ingest/internal/config"
	"github.com/alkoparser/catalog-ingest/internal/crawler"
	"github.com/alkoparser/catalog-ingest/internal/logger"
	"github.com/alkoparser/catalog-ingest/internal/sse"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
// Server is nil when the API is disabled.
type HTTPServerHandle struct {
	*http.Server
	api *api.Server
}

// Enabled reports whether the API server was started.
func (h *HTTPServerHandle) Enabled() bool {
	return h.Server != nil
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	if h.Server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := h.Server.Shutdown(ctx)
	h.api.Close()
	return err
}

// ProvideHTTPServer provides the read-only API server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.Server.Enabled {
		log.Info("API server disabled")
		return &HTTPServerHandle{}, nil
	}

	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	monitor := do.MustInvoke[*crawler.Monitor](i)

	deps := api.Deps{
		Store:      storeHandle.ProductStore,
		Crawl:      monitor,
		SSEManager: sseHandle.Manager,
		SSEHandler: sse.NewHandler(sseHandle.Manager, log.Logger),
	}
	if indexHandle.Enabled() {
		deps.Search = indexHandle.Index
	}
	handler := api.NewServer(deps, log.Logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: srv, api: handler}, nil
}

// Package main provides the entry point for the catalog ingest service.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/do/v2"

	"github.com/alkoparser/catalog-ingest/internal/config"
	"github.com/alkoparser/catalog-ingest/internal/crawler"
	"github.com/alkoparser/catalog-ingest/internal/di"
	"github.com/alkoparser/catalog-ingest/internal/di/providers"
	"github.com/alkoparser/catalog-ingest/internal/logger"
	"github.com/alkoparser/catalog-ingest/internal/sink"
)

func main() {
	// Create DI container
	injector := di.NewContainer()

	if err := di.Bootstrap(injector); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap ingest: %v\n", err)
		os.Exit(1)
	}

	cfg := do.MustInvoke[*config.Config](injector)
	log := do.MustInvoke[*logger.Logger](injector)
	crawl := do.MustInvoke[*crawler.Crawler](injector)
	sinks := do.MustInvoke[*providers.SinksHandle](injector)
	storeHandle := do.MustInvoke[*providers.StoreHandle](injector)
	server := do.MustInvoke[*providers.HTTPServerHandle](injector)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	seeds := crawler.LoadSeeds(cfg.Upstream.URLsFile, log.Logger)
	stats := sink.Drain(ctx, crawl.Products(ctx, seeds), sinks, log.Logger)

	if err := sinks.Close(); err != nil {
		log.Error("Failed to finalize sinks", "error", err)
	}
	if sinks.JSON != nil {
		log.Info("Output written", "path", sinks.JSON.Path(), "products", sinks.JSON.Count())
	}

	run := crawl.Monitor().Snapshot()
	if storeHandle.Enabled() && run.ID != "" {
		saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := storeHandle.SaveRun(saveCtx, &run); err != nil {
			log.Error("Failed to save run summary", "run_id", run.ID, "error", err)
		}
		cancel()
	}

	log.Info("Ingest complete",
		"run_id", run.ID,
		"reason", run.Reason,
		"written", stats.Written,
		"write_failures", stats.Failed,
	)

	if server.Enabled() && ctx.Err() == nil {
		log.Info("Serving API until interrupted", "addr", server.Addr)
		<-ctx.Done()
	}

	log.Info("Shutting down...")

	// The DI container shuts handles down in reverse dependency order.
	if err := injector.Shutdown(); err != nil {
		log.Error("Shutdown error", "error", err)
	}
}

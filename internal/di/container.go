// Package di provides dependency injection configuration for the ingest service.
package di

import (
	"github.com/samber/do/v2"

	"github.com/alkoparser/catalog-ingest/internal/catalog"
	"github.com/alkoparser/catalog-ingest/internal/config"
	"github.com/alkoparser/catalog-ingest/internal/crawler"
	"github.com/alkoparser/catalog-ingest/internal/di/providers"
	"github.com/alkoparser/catalog-ingest/internal/fetch"
	"github.com/alkoparser/catalog-ingest/internal/logger"
	"github.com/alkoparser/catalog-ingest/internal/normalize"
	"github.com/alkoparser/catalog-ingest/internal/ratelimit"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogFile)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideSlogLogger)
	do.Provide(injector, providers.ProvideSSEManager)

	// Persistence
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideSearchIndex)
	do.Provide(injector, providers.ProvideValidator)
	do.Provide(injector, providers.ProvideSinks)

	// Crawl pipeline
	do.Provide(injector, providers.ProvideGovernor)
	do.Provide(injector, providers.ProvideMonitor)
	do.Provide(injector, providers.ProvideFetcher)
	do.Provide(injector, providers.ProvideCatalog)
	do.Provide(injector, providers.ProvideNormalizer)
	do.Provide(injector, providers.ProvideCrawler)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of every provider so configuration
// errors surface before the crawl starts.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)

	if _, err := do.Invoke[*providers.StoreHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.SearchIndexHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.SinksHandle](injector); err != nil {
		return err
	}

	_ = do.MustInvoke[*ratelimit.Governor](injector)
	_ = do.MustInvoke[*crawler.Monitor](injector)
	_ = do.MustInvoke[*fetch.Fetcher](injector)
	_ = do.MustInvoke[*catalog.Client](injector)
	_ = do.MustInvoke[*normalize.Normalizer](injector)
	_ = do.MustInvoke[*crawler.Crawler](injector)

	if _, err := do.Invoke[*providers.HTTPServerHandle](injector); err != nil {
		return err
	}

	providers.TriggerSearchReindexIfNeeded(injector)
	return nil
}

package providers

import (
	"github.com/samber/do/v2"

	"github.com/alkoparser/catalog-ingest/internal/catalog"
	"github.com/alkoparser/catalog-ingest/internal/config"
	"github.com/alkoparser/catalog-ingest/internal/crawler"
	"github.com/alkoparser/catalog-ingest/internal/fetch"
	"github.com/alkoparser/catalog-ingest/internal/logger"
	"github.com/alkoparser/catalog-ingest/internal/normalize"
	"github.com/alkoparser/catalog-ingest/internal/ratelimit"
)

// ProvideGovernor provides the shared request pacer.
func ProvideGovernor(i do.Injector) (*ratelimit.Governor, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	t := cfg.Throttle
	gov := ratelimit.NewGovernor(ratelimit.GovernorConfig{
		Delay:             t.DownloadDelay,
		Randomize:         t.RandomizeDelay,
		AutoThrottle:      t.AutoThrottle,
		StartDelay:        t.StartDelay,
		MaxDelay:          t.MaxDelay,
		TargetConcurrency: t.TargetConcurrency,
	})

	log.Info("Request governor ready",
		"download_delay", t.DownloadDelay,
		"randomize", t.RandomizeDelay,
		"autothrottle", t.AutoThrottle,
		"max_delay", t.MaxDelay,
	)
	return gov, nil
}

// ProvideMonitor provides the crawl run monitor. Events go to the SSE manager.
func ProvideMonitor(i do.Injector) (*crawler.Monitor, error) {
	log := do.MustInvoke[*logger.Logger](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)

	return crawler.NewMonitor(sseHandle.Manager, log.Logger, 0), nil
}

// ProvideFetcher provides the rate-governed HTTP fetcher.
func ProvideFetcher(i do.Injector) (*fetch.Fetcher, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	gov := do.MustInvoke[*ratelimit.Governor](i)
	monitor := do.MustInvoke[*crawler.Monitor](i)

	return fetch.New(fetch.Config{
		UserAgent:         cfg.Upstream.UserAgent,
		Timeout:           cfg.Upstream.RequestTimeout,
		Concurrency:       cfg.Throttle.ConcurrentRequests,
		DefaultRetryAfter: cfg.Throttle.DefaultRetryAfter,
		RobotsObey:        cfg.Throttle.RobotsObey,
		OnRateLimited:     monitor.RateLimited,
	}, gov, log.Logger), nil
}

// ProvideCatalog provides the upstream catalog client.
func ProvideCatalog(i do.Injector) (*catalog.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	fetcher := do.MustInvoke[*fetch.Fetcher](i)

	return catalog.New(fetcher, cfg.Upstream.BaseURL, cfg.Upstream.CityUUID, log.Logger), nil
}

// ProvideNormalizer provides the detail payload normalizer.
func ProvideNormalizer(i do.Injector) (*normalize.Normalizer, error) {
	log := do.MustInvoke[*logger.Logger](i)
	return normalize.New(log.Logger), nil
}

// ProvideCrawler provides the stage orchestrator.
func ProvideCrawler(i do.Injector) (*crawler.Crawler, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	client := do.MustInvoke[*catalog.Client](i)
	normalizer := do.MustInvoke[*normalize.Normalizer](i)
	monitor := do.MustInvoke[*crawler.Monitor](i)

	return crawler.New(client, normalizer, monitor, crawler.Config{
		CategoryConcurrency: cfg.Crawl.CategoryConcurrency,
		DetailConcurrency:   cfg.Crawl.DetailConcurrency,
	}, log.Logger), nil
}

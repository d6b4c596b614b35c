// Package crawler drives the catalog crawl.
//
// Each seed category walks a small state machine: a count probe resolves how
// many items it holds, a single listing request fetches every item reference,
// and detail requests fan out over the entries. Products come out as a lazy
// sequence in the order their detail fetches complete.
//
// Failures stay inside the smallest unit that contains them. A bad category
// stops that category, a bad entry drops that entry, and nothing aborts the run.
package crawler

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/alkoparser/catalog-ingest/internal/catalog"
	"github.com/alkoparser/catalog-ingest/internal/domain"
)

// Catalog is the upstream API. *catalog.Client implements it.
type Catalog interface {
	Count(ctx context.Context, slug string) (int, error)
	List(ctx context.Context, slug string, total int) ([]domain.ListingEntry, int, error)
	Detail(ctx context.Context, slug string) (domain.RawProduct, error)
}

// Normalizer maps a detail payload to a product. *normalize.Normalizer implements it.
type Normalizer interface {
	Normalize(raw domain.RawProduct, fallbackURL string) domain.Product
}

// Config controls fan-out. The fetcher's own concurrency ceiling still
// applies on top of these.
type Config struct {
	CategoryConcurrency int
	DetailConcurrency   int
}

// Crawler runs one crawl at a time.
type Crawler struct {
	catalog    Catalog
	normalizer Normalizer
	monitor    *Monitor
	cfg        Config
	logger     *slog.Logger

	seenMu sync.Mutex
	seen   map[string]struct{}
}

// New creates a crawler.
func New(cat Catalog, normalizer Normalizer, monitor *Monitor, cfg Config, logger *slog.Logger) *Crawler {
	if cfg.CategoryConcurrency < 1 {
		cfg.CategoryConcurrency = 1
	}
	if cfg.DetailConcurrency < 1 {
		cfg.DetailConcurrency = 1
	}
	return &Crawler{
		catalog:    cat,
		normalizer: normalizer,
		monitor:    monitor,
		cfg:        cfg,
		logger:     logger,
	}
}

// Monitor returns the crawler's run monitor.
func (c *Crawler) Monitor() *Monitor {
	return c.monitor
}

// category carries one category through the state machine.
type category struct {
	domain.Category
	state    State
	entries  []domain.ListingEntry
	products int
	log      *slog.Logger
}

// Products crawls the seed category URLs and yields every normalized product.
//
// Work starts when iteration starts. Breaking out of the loop cancels
// outstanding requests and closes the run as canceled. If another crawl is
// already running the sequence is empty.
func (c *Crawler) Products(ctx context.Context, seeds []string) iter.Seq[domain.Product] {
	return func(yield func(domain.Product) bool) {
		run, ok := c.monitor.begin(seeds)
		if !ok {
			c.logger.Error("crawl already in progress, ignoring request")
			return
		}

		c.seenMu.Lock()
		c.seen = make(map[string]struct{})
		c.seenMu.Unlock()

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		out := make(chan domain.Product)
		go func() {
			defer close(out)
			c.crawlSeeds(ctx, run.ID, seeds, out)
		}()

		stopped := false
		for p := range out {
			if !yield(p) {
				stopped = true
				cancel()
				break
			}
		}
		// Let every worker observe the cancellation and exit before the run closes.
		for range out {
		}

		reason := domain.RunReasonFinished
		if stopped || ctx.Err() != nil {
			reason = domain.RunReasonCanceled
		}
		c.monitor.finish(reason)
	}
}

func (c *Crawler) crawlSeeds(ctx context.Context, runID string, seeds []string, out chan<- domain.Product) {
	var g errgroup.Group
	g.SetLimit(c.cfg.CategoryConcurrency)

	started := make(map[string]bool, len(seeds))
	for _, seed := range seeds {
		if ctx.Err() != nil {
			break
		}
		slug := SlugFromURL(seed)
		if slug == "" || started[slug] {
			c.logger.Debug("seed skipped", "seed", seed)
			continue
		}
		started[slug] = true

		g.Go(func() error {
			c.crawlCategory(ctx, runID, slug, out)
			return nil
		})
	}
	_ = g.Wait()
}

func (c *Crawler) crawlCategory(ctx context.Context, runID, slug string, out chan<- domain.Product) {
	cat := &category{
		Category: domain.Category{Slug: slug},
		state:    StateCountProbe,
		log:      c.logger.With("run_id", runID, "category", slug),
	}

	for !cat.state.Terminal() {
		next := c.step(ctx, cat, out)
		cat.log.Debug("category transition", "from", cat.state, "to", next)
		cat.state = next
	}

	cat.log.Info("category finished",
		"state", cat.state,
		"total", cat.Total,
		"products", cat.products,
	)
	c.monitor.categoryDone(slug, cat.state, cat.Total, cat.products)
}

// step performs the request for the current state and returns the next one.
func (c *Crawler) step(ctx context.Context, cat *category, out chan<- domain.Product) State {
	switch cat.state {
	case StateCountProbe:
		total, err := c.catalog.Count(ctx, cat.Slug)
		if err != nil {
			c.unitFailed(ctx, cat.log, "count probe failed", err)
			return StateFailed
		}
		if total <= 0 {
			cat.log.Warn("no items in category")
			return StateEmpty
		}
		cat.Total = total
		return StateListing

	case StateListing:
		entries, skipped, err := c.catalog.List(ctx, cat.Slug, cat.Total)
		if err != nil {
			c.unitFailed(ctx, cat.log, "listing failed", err)
			return StateFailed
		}
		if skipped > 0 {
			cat.log.Warn("listing entries without slug skipped", "skipped", skipped)
			c.monitor.skipped(skipped)
		}
		if len(entries) == 0 {
			cat.log.Warn("listing returned no entries", "total", cat.Total)
			return StateEmpty
		}
		cat.entries = entries
		return StateDetailFetch

	case StateDetailFetch:
		c.fetchDetails(ctx, cat, out)
		return StateDone

	default:
		return cat.state
	}
}

func (c *Crawler) fetchDetails(ctx context.Context, cat *category, out chan<- domain.Product) {
	var (
		g  errgroup.Group
		mu sync.Mutex
	)
	g.SetLimit(c.cfg.DetailConcurrency)

	for _, entry := range cat.entries {
		if ctx.Err() != nil {
			break
		}
		if !c.claim(entry.Slug) {
			cat.log.Debug("product already fetched in this run", "slug", entry.Slug)
			continue
		}

		g.Go(func() error {
			p, ok := c.fetchDetail(ctx, cat.log, entry)
			if !ok {
				return nil
			}
			select {
			case out <- p:
				mu.Lock()
				cat.products++
				mu.Unlock()
				c.monitor.product(&p)
			case <-ctx.Done():
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (c *Crawler) fetchDetail(ctx context.Context, log *slog.Logger, entry domain.ListingEntry) (domain.Product, bool) {
	log = log.With("slug", entry.Slug)

	raw, err := c.catalog.Detail(ctx, entry.Slug)
	switch {
	case errors.Is(err, catalog.ErrEmpty):
		log.Warn("empty product detail")
		c.monitor.skipped(1)
		return domain.Product{}, false
	case err != nil:
		c.unitFailed(ctx, log, "product detail failed", err)
		return domain.Product{}, false
	}

	return c.normalizer.Normalize(raw, entry.URL), true
}

// claim marks slug as dispatched and reports whether it was new.
func (c *Crawler) claim(slug string) bool {
	c.seenMu.Lock()
	defer c.seenMu.Unlock()

	if _, dup := c.seen[slug]; dup {
		return false
	}
	c.seen[slug] = struct{}{}
	return true
}

// unitFailed logs an abandoned unit of work. Cancellation is not a failure.
func (c *Crawler) unitFailed(ctx context.Context, log *slog.Logger, msg string, err error) {
	if ctx.Err() != nil {
		log.Debug(msg, "error", err)
		return
	}
	log.Error(msg, "error", err)
	c.monitor.failure()
}

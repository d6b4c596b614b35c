package crawler

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/alkoparser/catalog-ingest/internal/domain"
	"github.com/alkoparser/catalog-ingest/internal/id"
	"github.com/alkoparser/catalog-ingest/internal/sse"
)

const defaultProgressEvery = 100

// EventEmitter receives crawl progress events. *sse.Manager implements it.
type EventEmitter interface {
	Emit(event any)
}

type noopEmitter struct{}

func (noopEmitter) Emit(any) {}

type tallyKind int

const (
	tallyCategory tallyKind = iota
	tallyEmpty
	tallyProduct
	tallyFailure
	tallySkipped
	tallyRateLimited
)

type tally struct {
	kind tallyKind
	n    int
}

// Monitor keeps the running summary of the current crawl.
//
// Workers never touch the summary directly. They send tallies over a channel
// that a single collector goroutine applies, so the hot path only pays for a
// channel send. Snapshot may lag the workers by the channel's buffer.
type Monitor struct {
	emitter       EventEmitter
	logger        *slog.Logger
	progressEvery int

	// lifecycle guards tallies and active; senders hold it for reading.
	lifecycle sync.RWMutex
	tallies   chan tally
	done      chan struct{}
	active    bool

	mu  sync.Mutex
	run domain.Run
}

// NewMonitor creates a monitor. A nil emitter discards events.
// progressEvery sets how often the processed count is logged; zero means 100.
func NewMonitor(emitter EventEmitter, logger *slog.Logger, progressEvery int) *Monitor {
	if emitter == nil {
		emitter = noopEmitter{}
	}
	if progressEvery <= 0 {
		progressEvery = defaultProgressEvery
	}
	return &Monitor{
		emitter:       emitter,
		logger:        logger,
		progressEvery: progressEvery,
	}
}

// begin opens a new run. It returns false if one is already open.
func (m *Monitor) begin(seeds []string) (domain.Run, bool) {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	if m.active {
		return domain.Run{}, false
	}

	run := domain.Run{
		ID:        id.MustGenerate(id.PrefixRun),
		StartedAt: time.Now(),
		Seeds:     slices.Clone(seeds),
	}
	m.mu.Lock()
	m.run = run
	m.mu.Unlock()

	m.tallies = make(chan tally, 256)
	m.done = make(chan struct{})
	m.active = true
	go m.collect(m.tallies, m.done)

	m.logger.Info("crawl started", "run_id", run.ID, "seeds", len(seeds))
	m.emitter.Emit(sse.NewRunStartedEvent(run.ID, run.Seeds, run.StartedAt))
	return run, true
}

// finish closes the run and returns its final summary.
func (m *Monitor) finish(reason domain.RunReason) domain.Run {
	m.lifecycle.Lock()
	if !m.active {
		m.lifecycle.Unlock()
		return m.Snapshot()
	}
	m.active = false
	close(m.tallies)
	done := m.done
	m.lifecycle.Unlock()

	<-done

	m.mu.Lock()
	m.run.FinishedAt = time.Now()
	m.run.Reason = reason
	run := m.run
	run.Seeds = slices.Clone(m.run.Seeds)
	m.mu.Unlock()

	m.logger.Info("crawl finished",
		"run_id", run.ID,
		"reason", run.Reason,
		"duration", run.Duration(),
		"categories", run.Categories,
		"products", run.Products,
		"failures", run.Failures,
		"rate_limited", run.RateLimited,
	)
	m.emitter.Emit(sse.NewRunFinishedEvent(run))
	return run
}

// Snapshot returns the summary of the current or most recent run.
func (m *Monitor) Snapshot() domain.Run {
	m.mu.Lock()
	defer m.mu.Unlock()

	run := m.run
	run.Seeds = slices.Clone(m.run.Seeds)
	return run
}

// Active reports whether a run is in progress.
func (m *Monitor) Active() bool {
	m.lifecycle.RLock()
	defer m.lifecycle.RUnlock()
	return m.active
}

// RateLimited records a 429 absorbed by the fetcher. It matches the
// fetch.Config.OnRateLimited hook.
func (m *Monitor) RateLimited(url string, wait time.Duration) {
	m.send(tally{kind: tallyRateLimited, n: 1})
	m.emitter.Emit(sse.NewRateLimitedEvent(url, wait))
}

func (m *Monitor) categoryDone(slug string, state State, total, products int) {
	m.send(tally{kind: tallyCategory, n: 1})
	if state == StateEmpty {
		m.send(tally{kind: tallyEmpty, n: 1})
	}
	m.emitter.Emit(sse.NewCategoryDoneEvent(slug, state.String(), total, products))
}

func (m *Monitor) product(p *domain.Product) {
	m.send(tally{kind: tallyProduct, n: 1})
	m.emitter.Emit(sse.NewProductIngestedEvent(p))
}

func (m *Monitor) failure() {
	m.send(tally{kind: tallyFailure, n: 1})
}

func (m *Monitor) skipped(n int) {
	if n > 0 {
		m.send(tally{kind: tallySkipped, n: n})
	}
}

func (m *Monitor) send(t tally) {
	m.lifecycle.RLock()
	defer m.lifecycle.RUnlock()

	if !m.active {
		return
	}
	m.tallies <- t
}

func (m *Monitor) collect(tallies <-chan tally, done chan<- struct{}) {
	defer close(done)

	for t := range tallies {
		m.mu.Lock()
		switch t.kind {
		case tallyCategory:
			m.run.Categories += t.n
		case tallyEmpty:
			m.run.Empty += t.n
		case tallyProduct:
			m.run.Products += t.n
			if m.run.Products%m.progressEvery == 0 {
				m.logger.Info("products processed", "count", m.run.Products)
			}
		case tallyFailure:
			m.run.Failures += t.n
		case tallySkipped:
			m.run.Skipped += t.n
		case tallyRateLimited:
			m.run.RateLimited += t.n
		}
		m.mu.Unlock()
	}
}

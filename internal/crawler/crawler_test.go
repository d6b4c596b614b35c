package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alkoparser/catalog-ingest/internal/catalog"
	"github.com/alkoparser/catalog-ingest/internal/domain"
	"github.com/alkoparser/catalog-ingest/internal/fetch"
	"github.com/alkoparser/catalog-ingest/internal/normalize"
	"github.com/alkoparser/catalog-ingest/internal/ratelimit"
)

const testCity = "4a70f9e0-46ae-11e7-83ff-00155d026416"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// upstream is a scripted catalog API that records every request path.
type upstream struct {
	mu       sync.Mutex
	requests []string

	totals   map[string]string   // category -> count probe body
	listings map[string]string   // category -> listing body
	details  map[string][]string // product slug -> bodies served in turn ("429" answers 429)
}

func (u *upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	u.requests = append(u.requests, r.URL.RequestURI())
	u.mu.Unlock()

	q := r.URL.Query()
	switch {
	case r.URL.Path == "/web-api/v1/product" && q.Get("per_page") == "":
		fmt.Fprint(w, u.totals[q.Get("root_category_slug")])
	case r.URL.Path == "/web-api/v1/product":
		fmt.Fprint(w, u.listings[q.Get("root_category_slug")])
	case strings.HasPrefix(r.URL.Path, "/web-api/v1/product/"):
		slug := strings.TrimPrefix(r.URL.Path, "/web-api/v1/product/")
		u.mu.Lock()
		bodies := u.details[slug]
		var body string
		if len(bodies) > 0 {
			body = bodies[0]
			if len(bodies) > 1 {
				u.details[slug] = bodies[1:]
			}
		}
		u.mu.Unlock()
		if body == "429" {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, body)
	default:
		http.NotFound(w, r)
	}
}

func (u *upstream) paths() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.requests...)
}

func newHTTPCrawler(t *testing.T, u *upstream) *Crawler {
	t.Helper()

	server := httptest.NewServer(u)
	t.Cleanup(server.Close)

	logger := testLogger()
	monitor := NewMonitor(nil, logger, 0)
	f := fetch.New(fetch.Config{OnRateLimited: monitor.RateLimited}, ratelimit.NewGovernor(ratelimit.GovernorConfig{}), logger)
	client := catalog.New(f, server.URL+"/web-api/v1", testCity, logger)
	return New(client, normalize.New(logger), monitor, Config{}, logger)
}

func collect(c *Crawler, seeds ...string) []domain.Product {
	var out []domain.Product
	for p := range c.Products(context.Background(), seeds) {
		out = append(out, p)
	}
	return out
}

func TestProducts_EndToEnd(t *testing.T) {
	u := &upstream{
		totals: map[string]string{"vino": `{"meta": {"total": 2}}`},
		listings: map[string]string{"vino": `{"results": [
			{"slug": "merlot", "product_url": "https://alkoteka.com/product/vino/merlot"},
			{"slug": "shiraz"}
		]}`},
		details: map[string][]string{
			"merlot": {`{"results": {"uuid": "id-merlot", "name": "Merlot", "price": 900, "prev_price": 1000}}`},
			"shiraz": {`{"results": {"uuid": "id-shiraz", "name": "Shiraz", "product_url": "https://alkoteka.com/product/vino/shiraz"}}`},
		},
	}
	c := newHTTPCrawler(t, u)

	products := collect(c, "https://alkoteka.com/catalog/vino")

	require.Len(t, products, 2)
	byID := map[string]domain.Product{}
	for _, p := range products {
		byID[p.ID] = p
	}
	require.Len(t, byID, 2)
	assert.Equal(t, "https://alkoteka.com/product/vino/merlot", byID["id-merlot"].URL)
	assert.Equal(t, "Discount 10%", byID["id-merlot"].Price.SaleTag)
	assert.Equal(t, "https://alkoteka.com/product/vino/shiraz", byID["id-shiraz"].URL)

	run := c.Monitor().Snapshot()
	assert.Equal(t, domain.RunReasonFinished, run.Reason)
	assert.Equal(t, 1, run.Categories)
	assert.Equal(t, 2, run.Products)
	assert.False(t, run.FinishedAt.IsZero())
}

func TestProducts_ZeroCountIssuesNoFurtherRequests(t *testing.T) {
	u := &upstream{totals: map[string]string{"pivo": `{"meta": {"total": 0}}`}}
	c := newHTTPCrawler(t, u)

	products := collect(c, "https://alkoteka.com/catalog/pivo")

	assert.Empty(t, products)
	paths := u.paths()
	require.Len(t, paths, 1)
	assert.NotContains(t, paths[0], "per_page")

	run := c.Monitor().Snapshot()
	assert.Equal(t, 1, run.Empty)
}

func TestProducts_RateLimitedDetailYieldsOneRecord(t *testing.T) {
	u := &upstream{
		totals:   map[string]string{"vino": `{"meta": {"total": 1}}`},
		listings: map[string]string{"vino": `{"results": [{"slug": "merlot"}]}`},
		details: map[string][]string{
			"merlot": {"429", `{"results": {"uuid": "id-merlot", "name": "Merlot"}}`},
		},
	}
	c := newHTTPCrawler(t, u)

	products := collect(c, "https://alkoteka.com/catalog/vino")

	require.Len(t, products, 1)
	assert.Equal(t, "id-merlot", products[0].ID)

	detailHits := 0
	for _, p := range u.paths() {
		if strings.HasPrefix(p, "/web-api/v1/product/merlot") {
			detailHits++
		}
	}
	assert.Equal(t, 2, detailHits)
	assert.Equal(t, 1, c.Monitor().Snapshot().RateLimited)
}

func TestProducts_FailuresStayIsolated(t *testing.T) {
	u := &upstream{
		totals: map[string]string{
			"vino":  `{"meta": {"total": 4}}`,
			"broke": `not json`,
		},
		listings: map[string]string{"vino": `{"results": [
			{"slug": "good"},
			{"name": "no slug here"},
			{"slug": "garbled"},
			{"slug": "empty"}
		]}`},
		details: map[string][]string{
			"good":    {`{"results": {"uuid": "id-good"}}`},
			"garbled": {`{"results": {"uuid": `},
			"empty":   {`{"results": null}`},
		},
	}
	c := newHTTPCrawler(t, u)

	products := collect(c,
		"https://alkoteka.com/catalog/broke",
		"https://alkoteka.com/catalog/vino",
	)

	require.Len(t, products, 1)
	assert.Equal(t, "id-good", products[0].ID)

	run := c.Monitor().Snapshot()
	assert.Equal(t, 2, run.Categories)
	assert.Equal(t, 2, run.Failures) // broke count probe, garbled detail
	assert.Equal(t, 2, run.Skipped)  // slugless entry, empty detail
}

func TestProducts_DuplicateSlugsFetchedOnce(t *testing.T) {
	u := &upstream{
		totals: map[string]string{
			"vino":  `{"meta": {"total": 1}}`,
			"akcii": `{"meta": {"total": 1}}`,
		},
		listings: map[string]string{
			"vino":  `{"results": [{"slug": "merlot"}]}`,
			"akcii": `{"results": [{"slug": "merlot"}]}`,
		},
		details: map[string][]string{
			"merlot": {`{"results": {"uuid": "id-merlot"}}`},
		},
	}
	c := newHTTPCrawler(t, u)

	products := collect(c,
		"https://alkoteka.com/catalog/vino",
		"https://alkoteka.com/catalog/akcii",
		"https://alkoteka.com/catalog/vino/",
	)

	assert.Len(t, products, 1)
	assert.Equal(t, 2, c.Monitor().Snapshot().Categories)
}

// fakeCatalog serves canned values without HTTP.
type fakeCatalog struct {
	count   int
	entries []domain.ListingEntry
	detail  func(ctx context.Context, slug string) (domain.RawProduct, error)
	details atomic.Int32
}

func (f *fakeCatalog) Count(context.Context, string) (int, error) { return f.count, nil }

func (f *fakeCatalog) List(context.Context, string, int) ([]domain.ListingEntry, int, error) {
	return f.entries, 0, nil
}

func (f *fakeCatalog) Detail(ctx context.Context, slug string) (domain.RawProduct, error) {
	f.details.Add(1)
	return f.detail(ctx, slug)
}

func entries(n int) []domain.ListingEntry {
	out := make([]domain.ListingEntry, n)
	for i := range out {
		out[i] = domain.ListingEntry{Slug: fmt.Sprintf("p-%d", i)}
	}
	return out
}

func TestProducts_BreakCancelsRun(t *testing.T) {
	cat := &fakeCatalog{
		count:   50,
		entries: entries(50),
		detail: func(_ context.Context, slug string) (domain.RawProduct, error) {
			return domain.RawProduct{"uuid": slug}, nil
		},
	}
	monitor := NewMonitor(nil, testLogger(), 0)
	c := New(cat, normalize.New(testLogger()), monitor, Config{DetailConcurrency: 4}, testLogger())

	got := 0
	for range c.Products(context.Background(), []string{"https://alkoteka.com/catalog/vino"}) {
		got++
		if got == 3 {
			break
		}
	}

	assert.Equal(t, 3, got)
	assert.Less(t, int(cat.details.Load()), 50)
	assert.False(t, monitor.Active())
	assert.Equal(t, domain.RunReasonCanceled, monitor.Snapshot().Reason)
}

func TestProducts_ContextCancelStopsWaitingDetails(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cat := &fakeCatalog{
		count:   3,
		entries: entries(3),
		detail: func(ctx context.Context, _ string) (domain.RawProduct, error) {
			cancel()
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	monitor := NewMonitor(nil, testLogger(), 0)
	c := New(cat, normalize.New(testLogger()), monitor, Config{}, testLogger())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range c.Products(ctx, []string{"https://alkoteka.com/catalog/vino"}) {
			t.Error("no product expected")
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("crawl did not stop after cancellation")
	}
	run := monitor.Snapshot()
	assert.Equal(t, domain.RunReasonCanceled, run.Reason)
	assert.Zero(t, run.Failures)
}

func TestProducts_SecondConcurrentRunIsEmpty(t *testing.T) {
	release := make(chan struct{})
	cat := &fakeCatalog{
		count:   1,
		entries: entries(1),
		detail: func(context.Context, string) (domain.RawProduct, error) {
			<-release
			return nil, errors.New("gone")
		},
	}
	monitor := NewMonitor(nil, testLogger(), 0)
	c := New(cat, normalize.New(testLogger()), monitor, Config{}, testLogger())

	first := make(chan struct{})
	go func() {
		defer close(first)
		for range c.Products(context.Background(), []string{"vino"}) {
		}
	}()
	require.Eventually(t, monitor.Active, time.Second, 5*time.Millisecond)

	for range c.Products(context.Background(), []string{"pivo"}) {
		t.Error("second run must not yield")
	}

	close(release)
	<-first
}

func TestState(t *testing.T) {
	assert.Equal(t, "count_probe", StateCountProbe.String())
	assert.Equal(t, "detail_fetch", StateDetailFetch.String())
	assert.Equal(t, "unknown", State(42).String())

	for _, s := range []State{StateCountProbe, StateListing, StateDetailFetch} {
		assert.False(t, s.Terminal(), s.String())
	}
	for _, s := range []State{StateEmpty, StateFailed, StateDone} {
		assert.True(t, s.Terminal(), s.String())
	}
}

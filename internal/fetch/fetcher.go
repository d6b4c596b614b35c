// Package fetch performs rate-governed HTTP GETs against the catalog API.
//
// Every request passes a concurrency gate and the shared Pacer before it is
// sent. A 429 pauses the Pacer for the Retry-After interval and the same URL
// is requested again; callers never see the 429. Transport failures come back
// as *TransportError and are not retried.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultRetryAfter   = 60 * time.Second
	defaultMaxBodyBytes = 64 << 20
	defaultUserAgent    = "catalog-ingest/1.0"
)

// Pacer decides when a request may go out and learns from what comes back.
// *ratelimit.Governor implements it.
type Pacer interface {
	Wait(ctx context.Context) error
	Pause(d time.Duration)
	Observe(latency time.Duration, status int)
}

// Config holds fetcher settings. Zero values pick defaults.
type Config struct {
	UserAgent         string
	Timeout           time.Duration
	Concurrency       int
	DefaultRetryAfter time.Duration
	RobotsObey        bool
	MaxBodyBytes      int64

	// OnRateLimited is called for every 429 before the pause starts. It must not block.
	OnRateLimited func(url string, wait time.Duration)
}

// Response is a fully read upstream response.
type Response struct {
	URL      string
	Status   int
	Header   http.Header
	Body     []byte
	Latency  time.Duration // Of the final attempt
	Attempts int           // 1 plus the number of 429 resubmissions
}

// Fetcher is safe for concurrent use.
type Fetcher struct {
	http   *http.Client
	pacer  Pacer
	gate   chan struct{}
	robots *robotsCache
	cfg    Config
	logger *slog.Logger
}

// New creates a fetcher that paces requests through pacer.
func New(cfg Config, pacer Pacer, logger *slog.Logger) *Fetcher {
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.DefaultRetryAfter <= 0 {
		cfg.DefaultRetryAfter = defaultRetryAfter
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}

	f := &Fetcher{
		http:   &http.Client{Timeout: cfg.Timeout},
		pacer:  pacer,
		gate:   make(chan struct{}, cfg.Concurrency),
		cfg:    cfg,
		logger: logger,
	}
	if cfg.RobotsObey {
		f.robots = newRobotsCache()
	}
	return f
}

// Fetch GETs rawURL and returns the first non-429 response.
// Non-2xx statuses other than 429 are returned as responses, not errors.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	target, err := url.Parse(rawURL)
	if err != nil {
		return nil, &TransportError{URL: rawURL, Kind: KindOther, Err: err}
	}

	if f.robots != nil {
		ok, err := f.robots.allowed(ctx, target, f.cfg.UserAgent, f.fetchRetrying)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%s: %w", rawURL, ErrDisallowed)
		}
	}

	return f.fetchRetrying(ctx, rawURL)
}

// fetchRetrying resubmits rawURL for as long as upstream answers 429.
func (f *Fetcher) fetchRetrying(ctx context.Context, rawURL string) (*Response, error) {
	for attempt := 1; ; attempt++ {
		resp, err := f.do(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		resp.Attempts = attempt

		if resp.Status != http.StatusTooManyRequests {
			return resp, nil
		}

		wait := parseRetryAfter(resp.Header.Get("Retry-After"), time.Now(), f.cfg.DefaultRetryAfter)
		f.logger.Warn("rate limited, pausing dispatch",
			"url", rawURL,
			"retry_after", wait,
			"attempt", attempt,
		)
		if f.cfg.OnRateLimited != nil {
			f.cfg.OnRateLimited(rawURL, wait)
		}
		f.pacer.Pause(wait)
	}
}

// do sends one request through the gate and the pacer.
func (f *Fetcher) do(ctx context.Context, rawURL string) (*Response, error) {
	select {
	case f.gate <- struct{}{}:
	case <-ctx.Done():
		return nil, &TransportError{URL: rawURL, Kind: classify(ctx.Err()), Err: ctx.Err()}
	}
	defer func() { <-f.gate }()

	if err := f.pacer.Wait(ctx); err != nil {
		return nil, &TransportError{URL: rawURL, Kind: classify(err), Err: fmt.Errorf("rate limit wait: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &TransportError{URL: rawURL, Kind: KindOther, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	f.logger.Debug("upstream request", "url", rawURL)

	start := time.Now()
	resp, err := f.http.Do(req)
	if err != nil {
		return nil, &TransportError{URL: rawURL, Kind: classify(err), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBodyBytes))
	latency := time.Since(start)
	if err != nil {
		return nil, &TransportError{URL: rawURL, Kind: classify(err), Err: fmt.Errorf("read response: %w", err)}
	}

	f.pacer.Observe(latency, resp.StatusCode)

	return &Response{
		URL:     rawURL,
		Status:  resp.StatusCode,
		Header:  resp.Header,
		Body:    body,
		Latency: latency,
	}, nil
}

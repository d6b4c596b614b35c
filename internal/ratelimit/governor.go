package ratelimit

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// GovernorConfig controls outbound request pacing.
type GovernorConfig struct {
	// Delay is the base spacing between dispatches. It is also the floor
	// auto-throttle never goes below.
	Delay time.Duration
	// Randomize multiplies every spacing by a factor in [0.5, 1.5).
	Randomize bool

	AutoThrottle      bool
	StartDelay        time.Duration
	MaxDelay          time.Duration
	TargetConcurrency float64
}

// Governor paces every outbound request through a single token bucket.
//
// The bucket holds one token and its refill interval is re-set before each
// reservation, so the interval can follow auto-throttle and jitter. Pause
// blocks all callers until the deadline passes, which is how a 429 from
// upstream slows the whole crawl rather than one request.
type Governor struct {
	mu          sync.Mutex
	limiter     *rate.Limiter
	cfg         GovernorConfig
	delay       time.Duration
	pausedUntil time.Time

	randFloat func() float64
}

// NewGovernor creates a governor. The first Wait never blocks.
// A zero Delay with auto-throttle off disables pacing.
func NewGovernor(cfg GovernorConfig) *Governor {
	if cfg.TargetConcurrency <= 0 {
		cfg.TargetConcurrency = 1
	}
	if cfg.MaxDelay < cfg.Delay {
		cfg.MaxDelay = cfg.Delay
	}

	delay := cfg.Delay
	if cfg.AutoThrottle && cfg.StartDelay > delay {
		delay = cfg.StartDelay
	}

	return &Governor{
		limiter:   rate.NewLimiter(rate.Every(delay), 1),
		cfg:       cfg,
		delay:     delay,
		randFloat: rand.Float64,
	}
}

// Wait blocks until the caller may dispatch one request, or ctx is done.
func (g *Governor) Wait(ctx context.Context) error {
	for {
		g.mu.Lock()
		now := time.Now()
		if pause := g.pausedUntil.Sub(now); pause > 0 {
			g.mu.Unlock()
			if err := sleep(ctx, pause); err != nil {
				return err
			}
			continue
		}

		iv := g.interval()
		if iv <= 0 {
			g.mu.Unlock()
			return nil
		}
		g.limiter.SetLimitAt(now, rate.Every(iv))
		r := g.limiter.ReserveN(now, 1)
		wait := r.DelayFrom(now)
		g.mu.Unlock()

		if wait <= 0 {
			return nil
		}
		if err := sleep(ctx, wait); err != nil {
			r.Cancel()
			return err
		}

		// A pause may have started while this caller slept.
		if g.PausedFor() <= 0 {
			return nil
		}
	}
}

// Pause suspends dispatch for d. Overlapping pauses keep the later deadline.
func (g *Governor) Pause(d time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()

	until := time.Now().Add(d)
	if until.After(g.pausedUntil) {
		g.pausedUntil = until
	}
}

// PausedFor returns how long dispatch remains suspended.
func (g *Governor) PausedFor() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()

	if d := time.Until(g.pausedUntil); d > 0 {
		return d
	}
	return 0
}

// Observe feeds one response back into auto-throttle.
//
// The new delay moves halfway toward latency/TargetConcurrency, never below
// that target, clamped to [Delay, MaxDelay]. Non-200 responses can raise
// the delay but never lower it.
func (g *Governor) Observe(latency time.Duration, status int) {
	if !g.cfg.AutoThrottle {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	target := time.Duration(float64(latency) / g.cfg.TargetConcurrency)
	next := max((g.delay+target)/2, target)
	next = min(max(next, g.cfg.Delay), g.cfg.MaxDelay)

	if status != 200 && next <= g.delay {
		return
	}
	g.delay = next
}

// Delay returns the current spacing before jitter.
func (g *Governor) Delay() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.delay
}

// interval returns the spacing for the next reservation. Caller holds g.mu.
func (g *Governor) interval() time.Duration {
	d := g.delay
	if g.cfg.Randomize && d > 0 {
		d = time.Duration(float64(d) * (0.5 + g.randFloat()))
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

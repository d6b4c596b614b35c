// Package ratelimit paces traffic in both directions: Governor spaces the
// crawler's outbound requests, KeyedRateLimiter protects the read-only API
// from individual clients.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultIdleTTL       = 10 * time.Minute
	defaultSweepInterval = time.Minute
)

type keyedEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedRateLimiter manages per-key rate limiting.
// Keys unused for longer than the idle TTL are swept periodically.
type KeyedRateLimiter struct {
	mu      sync.Mutex
	entries map[string]*keyedEntry
	limit   rate.Limit
	burst   int
	idleTTL time.Duration

	done     chan struct{}
	stopOnce sync.Once
}

// NewKeyed creates a keyed rate limiter allowing rps per key with the given burst.
func NewKeyed(rps float64, burst int) *KeyedRateLimiter {
	return newKeyed(rps, burst, defaultIdleTTL, defaultSweepInterval)
}

func newKeyed(rps float64, burst int, idleTTL, sweep time.Duration) *KeyedRateLimiter {
	krl := &KeyedRateLimiter{
		entries: make(map[string]*keyedEntry),
		limit:   rate.Limit(rps),
		burst:   burst,
		idleTTL: idleTTL,
		done:    make(chan struct{}),
	}

	go krl.sweepLoop(sweep)

	return krl
}

// Allow reports whether a request for key may proceed now.
func (krl *KeyedRateLimiter) Allow(key string) bool {
	return krl.get(key).Allow()
}

// Wait blocks until a request for key is allowed or ctx is canceled.
func (krl *KeyedRateLimiter) Wait(ctx context.Context, key string) error {
	return krl.get(key).Wait(ctx)
}

// Len returns the number of tracked keys.
func (krl *KeyedRateLimiter) Len() int {
	krl.mu.Lock()
	defer krl.mu.Unlock()
	return len(krl.entries)
}

func (krl *KeyedRateLimiter) get(key string) *rate.Limiter {
	krl.mu.Lock()
	defer krl.mu.Unlock()

	e, ok := krl.entries[key]
	if !ok {
		e = &keyedEntry{limiter: rate.NewLimiter(krl.limit, krl.burst)}
		krl.entries[key] = e
	}
	e.lastSeen = time.Now()
	return e.limiter
}

// Stop shuts down the sweep goroutine.
func (krl *KeyedRateLimiter) Stop() {
	krl.stopOnce.Do(func() {
		close(krl.done)
	})
}

func (krl *KeyedRateLimiter) sweepLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-krl.done:
			return
		case now := <-ticker.C:
			krl.sweep(now)
		}
	}
}

func (krl *KeyedRateLimiter) sweep(now time.Time) {
	krl.mu.Lock()
	defer krl.mu.Unlock()

	for key, e := range krl.entries {
		if now.Sub(e.lastSeen) > krl.idleTTL {
			delete(krl.entries, key)
		}
	}
}

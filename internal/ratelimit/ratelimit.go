// Package ratelimit provides the per-source ingress limit applied in
// front of the WebSocket upgrade and HTTP endpoints.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter is a per-source token bucket store. Buckets refill by full
// replacement: once interval has elapsed since the last reset, the
// bucket is restored to rate tokens.
type Limiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	rate     int
	interval time.Duration
}

type bucket struct {
	tokens    int
	lastReset time.Time
}

// NewLimiter allows rate requests per interval for each distinct source.
func NewLimiter(rate int, interval time.Duration) *Limiter {
	return &Limiter{
		buckets:  make(map[string]*bucket),
		rate:     rate,
		interval: interval,
	}
}

// Allow consumes one token for the source, creating the bucket on first
// sight with the current request already counted.
func (l *Limiter) Allow(source string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	b, ok := l.buckets[source]
	if !ok {
		l.buckets[source] = &bucket{tokens: l.rate - 1, lastReset: now}
		return true
	}

	if now.Sub(b.lastReset) >= l.interval {
		b.tokens = l.rate
		b.lastReset = now
	}

	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

// Prune drops buckets idle for more than two intervals. Called
// opportunistically; correctness does not depend on it.
func (l *Limiter) Prune() {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := time.Now().Add(-2 * l.interval)
	for src, b := range l.buckets {
		if b.lastReset.Before(cutoff) {
			delete(l.buckets, src)
		}
	}
}

// Package ratelimit provides an injectable per-key rate limiter.
// Callers depend on the Limiter interface so the backing store can be swapped
// (in-memory for single-instance deployments, external for multi-instance)
// without touching handler code.
package ratelimit

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// Limiter decides whether a request identified by key may proceed.
type Limiter interface {
	Allow(key string) bool
}

// KeyedLimiter holds one token-bucket limiter per client key.
// Idle keys are evicted after two windows so the map cannot grow unbounded.
type KeyedLimiter struct {
	requests int
	window   time.Duration
	store    *gocache.Cache
}

// NewKeyedLimiter creates a limiter allowing `requests` per `window` per key.
func NewKeyedLimiter(requests int, window time.Duration) *KeyedLimiter {
	return &KeyedLimiter{
		requests: requests,
		window:   window,
		store:    gocache.New(2*window, window),
	}
}

// Allow reports whether the request for key fits within its budget.
func (l *KeyedLimiter) Allow(key string) bool {
	if entry, found := l.store.Get(key); found {
		if limiter, ok := entry.(*rate.Limiter); ok {
			// Refresh the TTL so active clients keep their bucket state
			l.store.SetDefault(key, limiter)
			return limiter.Allow()
		}
	}

	limiter := rate.NewLimiter(rate.Every(l.window/time.Duration(l.requests)), l.requests)
	l.store.SetDefault(key, limiter)
	return limiter.Allow()
}

// Package ratelimit enforces a sliding-window request cap per user, backed by
// an external counter store so concurrent service instances share counts.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const (
	// DefaultWindow is the rate-limit window length.
	DefaultWindow = 60 * time.Second
	// DefaultMax is the number of requests allowed per window.
	DefaultMax = 10
	// DefaultTTL bounds counter storage independent of the window, so idle
	// users never leave records behind.
	DefaultTTL = 120 * time.Second
)

// Record is one user's counter state, owned by the store.
type Record struct {
	Count       int   `json:"count"`
	WindowStart int64 `json:"windowStart"` // unix milliseconds
}

// Store is the external counter store: plain get and put-with-expiry.
type Store interface {
	Get(ctx context.Context, key string) (Record, bool, error)
	Put(ctx context.Context, key string, rec Record, ttl time.Duration) error
}

// WindowIncrementer is an optional Store extension that performs the whole
// increment-or-initialize step atomically, so concurrent requests from one
// user cannot undercount. The Redis store implements it with a Lua script.
type WindowIncrementer interface {
	IncrWindow(ctx context.Context, key string, window, ttl time.Duration, max int) (bool, error)
}

// Limiter gates requests per user identity. A nil store disables limiting:
// the store is optional infrastructure and availability wins over strictness.
type Limiter struct {
	store  Store
	window time.Duration
	max    int
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

func New(store Store, logger *slog.Logger) *Limiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Limiter{
		store:  store,
		window: DefaultWindow,
		max:    DefaultMax,
		ttl:    DefaultTTL,
		logger: logger,
		now:    time.Now,
	}
}

// Allow records one request for userID and reports whether it is within the
// window cap. Store failures are logged and treated as allowed (fail-open).
func (l *Limiter) Allow(ctx context.Context, userID int64) bool {
	if l.store == nil {
		return true
	}
	key := fmt.Sprintf("rate_limit:%d", userID)

	if inc, ok := l.store.(WindowIncrementer); ok {
		allowed, err := inc.IncrWindow(ctx, key, l.window, l.ttl, l.max)
		if err != nil {
			l.logger.Warn("rate limit store unavailable, allowing request", "err", err)
			return true
		}
		return allowed
	}

	now := l.now().UnixMilli()
	rec, found, err := l.store.Get(ctx, key)
	if err != nil {
		l.logger.Warn("rate limit store unavailable, allowing request", "err", err)
		return true
	}

	if found && now-rec.WindowStart < l.window.Milliseconds() {
		if rec.Count >= l.max {
			return false
		}
		rec.Count++
	} else {
		rec = Record{Count: 1, WindowStart: now}
	}
	if err := l.store.Put(ctx, key, rec, l.ttl); err != nil {
		l.logger.Warn("rate limit counter write failed", "err", err)
	}
	return true
}

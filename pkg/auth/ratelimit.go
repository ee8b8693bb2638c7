package auth

import (
	"context"
	"sync"
	"time"
)

// RateLimiter decides whether a caller may run another request.
type RateLimiter interface {
	Allow(ctx context.Context, identity *Identity) error
}

// InProcessLimiter allows a fixed number of requests per caller in
// one-minute windows. State lives in memory and is lost on restart.
type InProcessLimiter struct {
	perTier  map[string]int
	fallback int
	now      func() time.Time

	mu        sync.Mutex
	windows   map[string]window
	lastSweep time.Time
}

type window struct {
	start time.Time
	used  int
}

// NewInProcessLimiter returns a limiter that grants defaultRPM requests
// per minute unless tiers names a different limit for the caller's
// service tier. Limits of zero or less are unlimited.
func NewInProcessLimiter(defaultRPM int, tiers map[string]int) *InProcessLimiter {
	return &InProcessLimiter{
		perTier:  tiers,
		fallback: defaultRPM,
		now:      time.Now,
		windows:  map[string]window{},
	}
}

func (l *InProcessLimiter) limit(tier string) int {
	if n, ok := l.perTier[tier]; ok {
		return n
	}
	return l.fallback
}

// Allow returns ErrTooManyRequests when the caller has used up the
// current window.
func (l *InProcessLimiter) Allow(_ context.Context, identity *Identity) error {
	tier := identity.ServiceTier
	if tier == "" {
		tier = Anonymous.ServiceTier
	}
	quota := l.limit(tier)
	if quota <= 0 {
		return nil
	}

	key := tier + "/" + identity.Subject
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= time.Minute {
		l.sweep(now)
	}

	w := l.windows[key]
	if now.Sub(w.start) >= time.Minute {
		w = window{start: now}
	}
	if w.used >= quota {
		return ErrTooManyRequests
	}
	w.used++
	l.windows[key] = w
	return nil
}

// sweep drops expired windows so that callers seen once do not stay in
// memory. Caller holds l.mu.
func (l *InProcessLimiter) sweep(now time.Time) {
	for key, w := range l.windows {
		if now.Sub(w.start) >= time.Minute {
			delete(l.windows, key)
		}
	}
	l.lastSweep = now
}

// Package ratelimit provides owned token-bucket limiters.
//
// Each source adapter receives its own *Limiter; nothing here is global.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter enforces a ceiling of n requests per interval. Callers over the
// ceiling are suspended in Wait until a slot frees; requests are never dropped.
type Limiter struct {
	n        int
	interval time.Duration
	rl       *rate.Limiter
}

// New creates a limiter that spaces requests interval/n apart.
//
// Behavior:
//   - Grants one request per interval/n with a burst of 1, so any window of
//     length interval sees at most n grants.
//   - n <= 0 or interval <= 0 yields an unlimited limiter.
//
// Parameters:
//   - n: requests allowed per interval.
//   - interval: the window n applies to.
//
// Returns:
//   - *Limiter: ready for concurrent use.
func New(n int, interval time.Duration) *Limiter {
	return newLimiter(n, interval, 1)
}

// NewBurst is New with a burst of n: a quiet client may send n requests at
// once, after which grants refill at n per interval. Used for inbound HTTP
// clients, where short bursts are expected.
func NewBurst(n int, interval time.Duration) *Limiter {
	return newLimiter(n, interval, n)
}

func newLimiter(n int, interval time.Duration, burst int) *Limiter {
	if n <= 0 || interval <= 0 {
		return &Limiter{rl: rate.NewLimiter(rate.Inf, 0)}
	}
	return &Limiter{
		n:        n,
		interval: interval,
		rl:       rate.NewLimiter(rate.Every(interval/time.Duration(n)), burst),
	}
}

// Wait blocks until a request may proceed or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.rl.Wait(ctx)
}

// Allow reports whether a request may proceed now, consuming a token if so.
func (l *Limiter) Allow() bool {
	return l.rl.Allow()
}

// Unlimited reports whether the limiter has no ceiling.
func (l *Limiter) Unlimited() bool {
	return l.rl.Limit() == rate.Inf
}

// Ceiling returns the configured requests per interval.
func (l *Limiter) Ceiling() (int, time.Duration) {
	return l.n, l.interval
}

// Keyed hands out one burst Limiter per key (for example a client IP) and
// forgets keys that stayed idle longer than ttl.
type Keyed struct {
	mu       sync.Mutex
	n        int
	interval time.Duration
	ttl      time.Duration
	entries  map[string]*keyedEntry
	now      func() time.Time
}

type keyedEntry struct {
	lim      *Limiter
	lastSeen time.Time
}

// NewKeyed returns a Keyed limiter set. Idle entries expire after 3 intervals.
func NewKeyed(n int, interval time.Duration) *Keyed {
	return &Keyed{
		n:        n,
		interval: interval,
		ttl:      3 * interval,
		entries:  make(map[string]*keyedEntry),
		now:      time.Now,
	}
}

// Get returns the limiter for key, creating it on first use.
func (k *Keyed) Get(key string) *Limiter {
	k.mu.Lock()
	defer k.mu.Unlock()

	now := k.now()
	for other, e := range k.entries {
		if other != key && now.Sub(e.lastSeen) > k.ttl {
			delete(k.entries, other)
		}
	}
	e, ok := k.entries[key]
	if !ok {
		e = &keyedEntry{lim: NewBurst(k.n, k.interval)}
		k.entries[key] = e
	}
	e.lastSeen = now
	return e.lim
}

// Len returns the number of tracked keys.
func (k *Keyed) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}

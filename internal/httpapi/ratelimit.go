package httpapi

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// limiterConfig sizes a per-client token bucket. Entries unused for EntryTTL
// are dropped on a later call once SweepInterval has passed.
type limiterConfig struct {
	Rate          rate.Limit
	Burst         int
	EntryTTL      time.Duration
	SweepInterval time.Duration
}

// five attempts at once, then one every twelve seconds
var loginLimits = limiterConfig{
	Rate:          rate.Every(12 * time.Second),
	Burst:         5,
	EntryTTL:      10 * time.Minute,
	SweepInterval: time.Minute,
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type clientLimiter struct {
	mu        sync.Mutex
	cfg       limiterConfig
	entries   map[string]*limiterEntry
	lastSweep time.Time
	now       func() time.Time
}

func newClientLimiter(cfg limiterConfig) *clientLimiter {
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if cfg.EntryTTL <= 0 {
		cfg.EntryTTL = 10 * time.Minute
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	return &clientLimiter{
		cfg:     cfg,
		entries: make(map[string]*limiterEntry),
		now:     time.Now,
	}
}

func (l *clientLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.cfg.SweepInterval {
		l.sweep(now)
	}

	entry, ok := l.entries[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.cfg.Rate, l.cfg.Burst)}
		l.entries[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

// sweep removes clients not seen within EntryTTL. Caller holds mu.
func (l *clientLimiter) sweep(now time.Time) {
	cutoff := now.Add(-l.cfg.EntryTTL)
	for key, entry := range l.entries {
		if entry.lastSeen.Before(cutoff) {
			delete(l.entries, key)
		}
	}
	l.lastSweep = now
}

// Package ratelimit implements a best-effort sliding-window limiter keyed
// by client identifier. State is process local and resets on restart.
package ratelimit

import (
	"time"

	"ContactRelay/pkg/cache"
)

const (
	DefaultMaxRequests    = 5
	DefaultWindow         = time.Hour
	DefaultPruneThreshold = 1000
	DefaultMaxKeys        = 10000
)

type Config struct {
	MaxRequests int
	Window      time.Duration
	// PruneThreshold is the key count above which fully expired keys are
	// swept after a check.
	PruneThreshold int
	// MaxKeys caps memory; the least recently seen key is evicted first.
	MaxKeys int
}

func (c Config) withDefaults() Config {
	if c.MaxRequests <= 0 {
		c.MaxRequests = DefaultMaxRequests
	}
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	if c.PruneThreshold <= 0 {
		c.PruneThreshold = DefaultPruneThreshold
	}
	if c.MaxKeys <= 0 {
		c.MaxKeys = DefaultMaxKeys
	}
	return c
}

type Result struct {
	Allowed    bool
	RetryAfter int // seconds, set when !Allowed
}

type Limiter struct {
	cfg     Config
	windows *cache.LRU[[]time.Time]
	Now     func() time.Time
}

func New(cfg Config) *Limiter {
	cfg = cfg.withDefaults()
	return &Limiter{
		cfg:     cfg,
		windows: cache.NewLRU[[]time.Time](cfg.MaxKeys),
		Now:     time.Now,
	}
}

func (l *Limiter) Config() Config { return l.cfg }

// Check records a request for key if it fits in the window.
func (l *Limiter) Check(key string) Result {
	now := l.Now()
	res := Result{Allowed: true}

	l.windows.Update(key, func(stamps []time.Time, _ bool) ([]time.Time, bool) {
		recent := l.live(stamps, now)
		if len(recent) >= l.cfg.MaxRequests {
			res = Result{Allowed: false, RetryAfter: retryAfter(recent[0].Add(l.cfg.Window).Sub(now))}
			return recent, true
		}
		return append(recent, now), true
	})

	if l.windows.Len() > l.cfg.PruneThreshold {
		l.prune(now)
	}
	return res
}

// Len reports how many keys are tracked.
func (l *Limiter) Len() int { return l.windows.Len() }

func (l *Limiter) prune(now time.Time) int {
	return l.windows.RemoveIf(func(_ string, stamps []time.Time) bool {
		return len(l.live(stamps, now)) == 0
	})
}

// live drops timestamps that fell out of the window. The input is ordered
// oldest first.
func (l *Limiter) live(stamps []time.Time, now time.Time) []time.Time {
	i := 0
	for i < len(stamps) && now.Sub(stamps[i]) >= l.cfg.Window {
		i++
	}
	out := make([]time.Time, len(stamps)-i, len(stamps)-i+1)
	copy(out, stamps[i:])
	return out
}

func retryAfter(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

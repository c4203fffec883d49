// Package limiter holds the two in-memory rate-limiting state machines: a
// sliding-window cap on requests and a brute-force lockout for failed
// authentication. Both are injectable, independently locked objects owned by
// a server instance, so multiple servers can coexist in one process and
// tests get clean state.
//
// Neither map persists across restarts, and neither evicts entries beyond
// window pruning: the maps grow with the number of distinct client
// identities seen during the process lifetime. That is a known capacity
// limit of the design, not an accident.
package limiter

import (
	"sync"
	"time"
)

// SlidingWindow admits at most limit events per client in any trailing
// window. Stale entries are pruned lazily on each check.
type SlidingWindow struct {
	limit  int
	window time.Duration

	mu           sync.Mutex
	requestTimes map[string][]time.Time

	now func() time.Time // clock seam for tests
}

// NewSlidingWindow creates a limiter admitting limit events per window.
func NewSlidingWindow(limit int, window time.Duration) *SlidingWindow {
	return &SlidingWindow{
		limit:        limit,
		window:       window,
		requestTimes: make(map[string][]time.Time),
		now:          time.Now,
	}
}

// Allow reports whether the client may proceed, recording the event if so.
func (l *SlidingWindow) Allow(clientID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	recent := pruneOlderThan(l.requestTimes[clientID], now.Add(-l.window))

	if len(recent) >= l.limit {
		l.requestTimes[clientID] = recent
		return false
	}

	l.requestTimes[clientID] = append(recent, now)
	return true
}

func pruneOlderThan(times []time.Time, cutoff time.Time) []time.Time {
	kept := times[:0]
	for _, t := range times {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}

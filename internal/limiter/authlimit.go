package limiter

import (
	"sync"
	"time"
)

// AuthLimiter tracks failed authentication attempts per client and blocks a
// client once it accumulates maxAttempts failures within window. A block is
// independent of the failure counter: it always runs its full duration, even
// if the correct token is presented in the meantime, and is removed lazily
// the first time it is checked after expiry.
type AuthLimiter struct {
	maxAttempts   int
	window        time.Duration
	blockDuration time.Duration

	mu             sync.Mutex
	failedAttempts map[string][]time.Time
	blockedUntil   map[string]time.Time

	now func() time.Time // clock seam for tests
}

// NewAuthLimiter creates a lockout limiter.
func NewAuthLimiter(maxAttempts int, window, blockDuration time.Duration) *AuthLimiter {
	return &AuthLimiter{
		maxAttempts:    maxAttempts,
		window:         window,
		blockDuration:  blockDuration,
		failedAttempts: make(map[string][]time.Time),
		blockedUntil:   make(map[string]time.Time),
		now:            time.Now,
	}
}

// Blocked reports whether the client is currently locked out.
func (l *AuthLimiter) Blocked(clientID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	until, ok := l.blockedUntil[clientID]
	if !ok {
		return false
	}
	if l.now().Before(until) {
		return true
	}
	delete(l.blockedUntil, clientID)
	return false
}

// RecordFailure registers a failed attempt and reports whether the client is
// now blocked.
func (l *AuthLimiter) RecordFailure(clientID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	recent := pruneOlderThan(l.failedAttempts[clientID], now.Add(-l.window))
	recent = append(recent, now)
	l.failedAttempts[clientID] = recent

	if len(recent) >= l.maxAttempts {
		l.blockedUntil[clientID] = now.Add(l.blockDuration)
		return true
	}
	return false
}

// RecordSuccess clears the failure counter. It never lifts an active block.
func (l *AuthLimiter) RecordSuccess(clientID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.failedAttempts, clientID)
}

// FailureCount returns the number of failures still inside the window.
func (l *AuthLimiter) FailureCount(clientID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	recent := pruneOlderThan(l.failedAttempts[clientID], l.now().Add(-l.window))
	l.failedAttempts[clientID] = recent
	return len(recent)
}

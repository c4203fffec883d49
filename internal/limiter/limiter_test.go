package limiter

import (
	"testing"
	"time"
)

// fakeClock advances manually so window expiry is deterministic.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestSlidingWindowCapsRequests(t *testing.T) {
	clock := newFakeClock()
	l := NewSlidingWindow(3, time.Minute)
	l.now = clock.now

	for i := 0; i < 3; i++ {
		if !l.Allow("c") {
			t.Fatalf("request %d rejected before the cap", i+1)
		}
	}
	if l.Allow("c") {
		t.Fatal("request 4 allowed, want rejection at the cap")
	}
}

func TestSlidingWindowRecoversAfterWindow(t *testing.T) {
	clock := newFakeClock()
	l := NewSlidingWindow(2, time.Minute)
	l.now = clock.now

	l.Allow("c")
	l.Allow("c")
	if l.Allow("c") {
		t.Fatal("request allowed at the cap")
	}

	clock.advance(61 * time.Second)
	if !l.Allow("c") {
		t.Fatal("request rejected after the window elapsed")
	}
}

func TestSlidingWindowIsolatesClients(t *testing.T) {
	l := NewSlidingWindow(1, time.Minute)

	if !l.Allow("a") {
		t.Fatal("first request for a rejected")
	}
	if l.Allow("a") {
		t.Fatal("second request for a allowed")
	}
	if !l.Allow("b") {
		t.Fatal("b should not share a's quota")
	}
}

func TestAuthLimiterBlocksAtMaxAttempts(t *testing.T) {
	l := NewAuthLimiter(3, time.Minute, time.Minute)

	if l.Blocked("c") {
		t.Fatal("fresh client blocked")
	}
	if l.RecordFailure("c") {
		t.Fatal("blocked after 1 failure")
	}
	if l.RecordFailure("c") {
		t.Fatal("blocked after 2 failures")
	}
	if !l.RecordFailure("c") {
		t.Fatal("not blocked after 3 failures")
	}
	if !l.Blocked("c") {
		t.Fatal("Blocked() = false after lockout")
	}
}

func TestAuthLimiterSuccessClearsFailuresNotBlocks(t *testing.T) {
	l := NewAuthLimiter(3, time.Minute, time.Minute)

	l.RecordFailure("c")
	l.RecordFailure("c")
	l.RecordSuccess("c")

	if got := l.FailureCount("c"); got != 0 {
		t.Fatalf("FailureCount() = %d after success, want 0", got)
	}
	if l.RecordFailure("c") {
		t.Fatal("blocked on first failure after reset")
	}

	// Push into a block; a success must not lift it.
	l.RecordFailure("c")
	l.RecordFailure("c")
	if !l.Blocked("c") {
		t.Fatal("client not blocked")
	}
	l.RecordSuccess("c")
	if !l.Blocked("c") {
		t.Fatal("RecordSuccess lifted an active block")
	}
}

func TestAuthLimiterBlockExpiresLazily(t *testing.T) {
	clock := newFakeClock()
	l := NewAuthLimiter(2, time.Minute, 30*time.Second)
	l.now = clock.now

	l.RecordFailure("c")
	l.RecordFailure("c")
	if !l.Blocked("c") {
		t.Fatal("client not blocked")
	}

	clock.advance(31 * time.Second)
	if l.Blocked("c") {
		t.Fatal("block outlived its duration")
	}
	if _, ok := l.blockedUntil["c"]; ok {
		t.Fatal("expired block not removed on check")
	}
}

func TestAuthLimiterFailureWindowPrunes(t *testing.T) {
	clock := newFakeClock()
	l := NewAuthLimiter(3, time.Minute, time.Minute)
	l.now = clock.now

	l.RecordFailure("c")
	l.RecordFailure("c")
	clock.advance(61 * time.Second)

	if got := l.FailureCount("c"); got != 0 {
		t.Fatalf("FailureCount() = %d after window, want 0", got)
	}
	if l.RecordFailure("c") {
		t.Fatal("stale failures counted toward the lockout")
	}
}

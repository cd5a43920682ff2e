package ratelimit

import (
	"net/http"
	"sync"
	"testing"
	"time"
)

// mockClock is a controllable clock for testing.
type mockClock struct {
	mu  sync.Mutex
	now time.Time
}

func newMockClock() *mockClock {
	return &mockClock{now: time.Date(2025, 7, 11, 12, 0, 0, 0, time.UTC)}
}

func (c *mockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *mockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestAllow_SessionLimit(t *testing.T) {
	clock := newMockClock()
	limiter := New(&Config{Window: time.Minute, MaxPerSession: 2, MaxPerIP: 10, Clock: clock})
	defer limiter.Close()

	for i := 0; i < 2; i++ {
		if res := limiter.Allow("session-a", "203.0.113.1"); !res.Allowed {
			t.Fatalf("attempt %d should be allowed, got %s", i+1, res.Reason)
		}
	}

	clock.Advance(20 * time.Second)
	res := limiter.Allow("session-a", "203.0.113.1")
	if res.Allowed {
		t.Fatalf("third attempt within window should be blocked")
	}
	if res.Reason != "session_limit" {
		t.Fatalf("reason: got %q want session_limit", res.Reason)
	}
	if res.RetryAfter != 40*time.Second {
		t.Fatalf("retry after: got %v want 40s", res.RetryAfter)
	}

	if res := limiter.Allow("session-b", "203.0.113.1"); !res.Allowed {
		t.Fatalf("other session should be allowed, got %s", res.Reason)
	}

	clock.Advance(40 * time.Second)
	if res := limiter.Allow("session-a", "203.0.113.1"); !res.Allowed {
		t.Fatalf("new window should be allowed, got %s", res.Reason)
	}
}

func TestAllow_IPLimit(t *testing.T) {
	clock := newMockClock()
	limiter := New(&Config{Window: time.Minute, MaxPerSession: 10, MaxPerIP: 3, Clock: clock})
	defer limiter.Close()

	for i, session := range []string{"a", "b", "c"} {
		if res := limiter.Allow(session, "203.0.113.9"); !res.Allowed {
			t.Fatalf("attempt %d should be allowed, got %s", i+1, res.Reason)
		}
	}
	res := limiter.Allow("d", "203.0.113.9")
	if res.Allowed || res.Reason != "ip_limit" {
		t.Fatalf("got %+v want ip_limit block", res)
	}

	// A blocked attempt is not counted against the session.
	if res := limiter.Allow("d", "198.51.100.4"); !res.Allowed {
		t.Fatalf("session d from another IP should be allowed, got %s", res.Reason)
	}
}

func TestCleanup(t *testing.T) {
	clock := newMockClock()
	limiter := New(&Config{Window: time.Minute, Clock: clock})
	defer limiter.Close()

	limiter.Allow("session-a", "203.0.113.1")
	clock.Advance(2 * time.Minute)
	limiter.cleanup()

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	if len(limiter.bySession) != 0 || len(limiter.byIP) != 0 {
		t.Fatalf("expired entries should be removed")
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		trustProxy bool
		want       string
	}{
		{"remote addr", "203.0.113.1:5555", "", false, "203.0.113.1"},
		{"ignores xff when untrusted", "10.0.0.1:5555", "198.51.100.7", false, "10.0.0.1"},
		{"rightmost public xff", "10.0.0.1:5555", "198.51.100.7, 203.0.113.5, 10.0.0.2", true, "203.0.113.5"},
		{"all private xff", "10.0.0.1:5555", "10.0.0.3, 192.168.1.1", true, "192.168.1.1"},
		{"no port", "203.0.113.1", "", false, "203.0.113.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := http.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := GetClientIP(r, tt.trustProxy); got != tt.want {
				t.Fatalf("got %q want %q", got, tt.want)
			}
		})
	}
}

package ratelimit

import (
	"testing"
	"time"
)

type stepClock struct{ t time.Time }

func (c *stepClock) Now() time.Time          { return c.t }
func (c *stepClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBuckets(rps float64, burst int, opts ...BucketOption) (*BucketStore, *stepClock) {
	clock := &stepClock{t: time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)}
	s := NewBucketStore(rps, burst, opts...)
	s.now = clock.Now
	return s, clock
}

func TestBucketStore_BurstThenRefill(t *testing.T) {
	s, clock := newTestBuckets(1, 2)

	if !s.Allow("k") || !s.Allow("k") {
		t.Fatalf("expected burst of 2 to be allowed")
	}
	if s.Allow("k") {
		t.Fatalf("expected third immediate request to be throttled")
	}
	if !s.Allow("other") {
		t.Fatalf("expected other key to have its own bucket")
	}

	clock.Advance(time.Second)
	if !s.Allow("k") {
		t.Fatalf("expected one token back after 1s at 1 rps")
	}
}

func TestBucketStore_IdleTTLFollowsRefillTime(t *testing.T) {
	cases := []struct {
		rps   float64
		burst int
		want  time.Duration
	}{
		{rps: 5, burst: 20, want: time.Minute},
		{rps: 0.1, burst: 30, want: 5 * time.Minute},
		{rps: 0, burst: 1, want: time.Minute},
	}
	for _, tc := range cases {
		s := NewBucketStore(tc.rps, tc.burst)
		if got := s.IdleTTL(); got != tc.want {
			t.Fatalf("rps=%v burst=%d: expected idle ttl %s, got %s", tc.rps, tc.burst, tc.want, got)
		}
	}
	if got := NewBucketStore(5, 20, WithIdleTTL(time.Hour)).IdleTTL(); got != time.Hour {
		t.Fatalf("expected explicit idle ttl to win, got %s", got)
	}
}

func TestBucketStore_CleanupDropsOnlyRefilledBuckets(t *testing.T) {
	s, clock := newTestBuckets(0.1, 30)

	s.Allow("quiet")
	clock.Advance(4 * time.Minute)
	s.Allow("busy")
	clock.Advance(90 * time.Second)

	if n := s.Cleanup(); n != 1 {
		t.Fatalf("expected 1 bucket removed, got %d", n)
	}
	if s.Len() != 1 {
		t.Fatalf("expected busy bucket kept, got %d", s.Len())
	}
}

func TestBucketStore_ExemptKeys(t *testing.T) {
	s, _ := newTestBuckets(0.01, 1, WithExemptKeys("10.0.0.2", ""))

	for i := 0; i < 10; i++ {
		if !s.Allow("10.0.0.2") {
			t.Fatalf("exempt key must never be throttled")
		}
	}
	if s.Len() != 0 {
		t.Fatalf("exempt key must not get a bucket")
	}
	if st := s.Stats(); st.Allowed != 0 || st.Throttled != 0 {
		t.Fatalf("exempt key must not be counted, got %+v", st)
	}
}

func TestBucketStore_Stats(t *testing.T) {
	s, _ := newTestBuckets(0.01, 1)

	s.Allow("a")
	s.Allow("a")
	s.Allow("b")

	st := s.Stats()
	if st.Clients != 2 || st.Allowed != 2 || st.Throttled != 1 {
		t.Fatalf("unexpected stats %+v", st)
	}
}

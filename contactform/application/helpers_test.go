package application

import (
	"context"
	"sync"
	"time"

	"contact-gateway/contactform/domain"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// mapStore é um EntryStore mínimo com mutex, suficiente para os testes.
type mapStore struct {
	mu      sync.Mutex
	entries map[domain.Key]domain.RateLimitEntry
	err     error
}

func newMapStore() *mapStore {
	return &mapStore{entries: map[domain.Key]domain.RateLimitEntry{}}
}

func (s *mapStore) Update(_ context.Context, key domain.Key, fn domain.UpdateFunc) (domain.RateLimitEntry, error) {
	if s.err != nil {
		return domain.RateLimitEntry{}, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.entries[key]
	next := fn(cur, ok)
	s.entries[key] = next
	return next, nil
}

func (s *mapStore) Cleanup(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, e := range s.entries {
		if e.Expired(now) {
			delete(s.entries, k)
			n++
		}
	}
	return n, nil
}

func validPayload() domain.SubmissionPayload {
	return domain.SubmissionPayload{
		Name:         "Mary O'Neil-Smith",
		Email:        " Mary@Example.com ",
		Phone:        "+1 (555) 123-4567",
		County:       "Greene",
		City:         "Springfield",
		PropertyType: "Duplex",
		Message:      "Hi, I'd like a quote for managing my duplex near downtown.",
	}
}

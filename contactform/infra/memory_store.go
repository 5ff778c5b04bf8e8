package infra

import (
	"context"
	"sync"
	"time"

	"contact-gateway/contactform/domain"
)

// MemoryEntryStore guarda as entradas num map do processo.
//
// Um único mutex serializa os Update, então o read-modify-write de uma chave é atômico.
// Só serve para uma instância; com várias, use RedisEntryStore.
type MemoryEntryStore struct {
	mu      sync.Mutex
	entries map[domain.Key]domain.RateLimitEntry
}

func NewMemoryEntryStore() *MemoryEntryStore {
	return &MemoryEntryStore{entries: make(map[domain.Key]domain.RateLimitEntry)}
}

func (s *MemoryEntryStore) Update(_ context.Context, key domain.Key, fn domain.UpdateFunc) (domain.RateLimitEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, found := s.entries[key]
	next := fn(cur, found)
	s.entries[key] = next
	return next, nil
}

func (s *MemoryEntryStore) Cleanup(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for k, e := range s.entries {
		if e.Expired(now) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed, nil
}

// Get devolve a entrada atual (para testes e diagnóstico).
func (s *MemoryEntryStore) Get(key domain.Key) (domain.RateLimitEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	return e, ok
}

func (s *MemoryEntryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

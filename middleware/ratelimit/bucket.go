package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const minIdleTTL = time.Minute

// BucketStore é o throttle do site inteiro: um token bucket (x/time/rate) por cliente.
//
// Um bucket parado o tempo de recarregar o burst inteiro é igual a um bucket novo.
// Por isso o tempo ocioso padrão é esse tempo de recarga (mínimo de 1 minuto):
// o janitor descarta buckets cheios sem mudar nenhuma decisão.
type BucketStore struct {
	limit      rate.Limit
	burst      int
	idleTTL    time.Duration
	sweepEvery time.Duration
	exempt     map[string]struct{}
	now        func() time.Time

	mu      sync.Mutex
	clients map[string]*clientBucket

	allowed   atomic.Int64
	throttled atomic.Int64
}

type clientBucket struct {
	tokens   *rate.Limiter
	lastSeen time.Time
}

// BucketStats resume o throttle para o healthcheck.
type BucketStats struct {
	Clients   int   `json:"clients"`
	Allowed   int64 `json:"allowed"`
	Throttled int64 `json:"throttled"`
}

type BucketOption func(*BucketStore)

// WithIdleTTL troca o tempo ocioso calculado a partir de rps/burst.
func WithIdleTTL(d time.Duration) BucketOption {
	return func(s *BucketStore) { s.idleTTL = d }
}

// WithCleanupEvery define o intervalo do janitor; zero desliga.
func WithCleanupEvery(d time.Duration) BucketOption {
	return func(s *BucketStore) { s.sweepEvery = d }
}

// WithExemptKeys libera chaves do throttle (monitoramento, IP do próprio proxy).
// Chaves isentas não ganham bucket nem entram nos contadores.
func WithExemptKeys(keys ...string) BucketOption {
	return func(s *BucketStore) {
		for _, k := range keys {
			if k != "" {
				s.exempt[k] = struct{}{}
			}
		}
	}
}

func NewBucketStore(rps float64, burst int, opts ...BucketOption) *BucketStore {
	idle := refillTime(rps, burst)
	s := &BucketStore{
		limit:      rate.Limit(rps),
		burst:      burst,
		idleTTL:    idle,
		sweepEvery: idle / 2,
		exempt:     make(map[string]struct{}),
		now:        time.Now,
		clients:    make(map[string]*clientBucket),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// refillTime é quanto um bucket vazio leva para ficar cheio de novo.
func refillTime(rps float64, burst int) time.Duration {
	if rps <= 0 || burst <= 0 {
		return minIdleTTL
	}
	d := time.Duration(float64(burst) / rps * float64(time.Second))
	if d < minIdleTTL {
		return minIdleTTL
	}
	return d
}

func (s *BucketStore) RPS() float64 { return float64(s.limit) }
func (s *BucketStore) Burst() int   { return s.burst }

// IdleTTL é o tempo sem requests depois do qual o bucket do cliente é descartado.
func (s *BucketStore) IdleTTL() time.Duration { return s.idleTTL }

// Allow consome um token do cliente.
func (s *BucketStore) Allow(key string) bool {
	if _, ok := s.exempt[key]; ok {
		return true
	}
	now := s.now()

	s.mu.Lock()
	b, found := s.clients[key]
	if !found {
		b = &clientBucket{tokens: rate.NewLimiter(s.limit, s.burst)}
		s.clients[key] = b
	}
	b.lastSeen = now
	ok := b.tokens.AllowN(now, 1)
	s.mu.Unlock()

	if ok {
		s.allowed.Add(1)
	} else {
		s.throttled.Add(1)
	}
	return ok
}

// Cleanup descarta buckets ociosos e devolve quantos saíram.
func (s *BucketStore) Cleanup() int {
	cutoff := s.now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for key, b := range s.clients {
		if b.lastSeen.Before(cutoff) {
			delete(s.clients, key)
			n++
		}
	}
	return n
}

func (s *BucketStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *BucketStore) Stats() BucketStats {
	return BucketStats{
		Clients:   s.Len(),
		Allowed:   s.allowed.Load(),
		Throttled: s.throttled.Load(),
	}
}

// StartJanitor roda Cleanup a cada sweepEvery até o ctx encerrar.
func (s *BucketStore) StartJanitor(ctx context.Context) {
	if s.sweepEvery <= 0 {
		return
	}

	t := time.NewTicker(s.sweepEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Cleanup()
			}
		}
	}()
}

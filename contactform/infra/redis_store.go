package infra

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"contact-gateway/contactform/domain"

	"github.com/redis/go-redis/v9"
)

// RedisEntryStore compartilha o estado do rate limit entre instâncias.
//
// Cada chave é um HASH {count, reset_at, blocked_until} (unix ms).
// Update usa WATCH/MULTI: se outra instância mexer na chave no meio, a transação
// falha e é refeita; esgotadas as tentativas devolve domain.ErrStoreContention.
// O PEXPIREAT faz o próprio Redis descartar entradas vencidas.
type RedisEntryStore struct {
	rdb *redis.Client

	prefix     string
	maxRetries int
}

type RedisStoreOption func(*RedisEntryStore)

func WithEntryPrefix(prefix string) RedisStoreOption {
	return func(s *RedisEntryStore) { s.prefix = strings.Trim(prefix, ":") }
}

func WithMaxRetries(n int) RedisStoreOption {
	return func(s *RedisEntryStore) { s.maxRetries = n }
}

func NewRedisEntryStore(rdb *redis.Client, opts ...RedisStoreOption) *RedisEntryStore {
	s := &RedisEntryStore{
		rdb:        rdb,
		prefix:     "contact:ratelimit",
		maxRetries: 10,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxRetries <= 0 {
		s.maxRetries = 1
	}
	return s
}

func (s *RedisEntryStore) redisKey(key domain.Key) string {
	return s.prefix + ":" + string(key)
}

func (s *RedisEntryStore) Update(ctx context.Context, key domain.Key, fn domain.UpdateFunc) (domain.RateLimitEntry, error) {
	k := s.redisKey(key)

	var next domain.RateLimitEntry
	txf := func(tx *redis.Tx) error {
		vals, err := tx.HGetAll(ctx, k).Result()
		if err != nil {
			return err
		}
		cur, found, err := decodeEntry(vals)
		if err != nil {
			return err
		}

		next = fn(cur, found)

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, k, encodeEntry(next))
			pipe.PExpireAt(ctx, k, next.ExpiresAt())
			return nil
		})
		return err
	}

	for i := 0; i < s.maxRetries; i++ {
		err := s.rdb.Watch(ctx, txf, k)
		if err == nil {
			return next, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return domain.RateLimitEntry{}, err
	}
	return domain.RateLimitEntry{}, fmt.Errorf("%s: %w", k, domain.ErrStoreContention)
}

// Cleanup não faz nada: as chaves expiram sozinhas via PEXPIREAT.
func (s *RedisEntryStore) Cleanup(context.Context, time.Time) (int, error) {
	return 0, nil
}

func encodeEntry(e domain.RateLimitEntry) map[string]any {
	blocked := int64(0)
	if !e.BlockedUntil.IsZero() {
		blocked = e.BlockedUntil.UnixMilli()
	}
	return map[string]any{
		"count":         e.Count,
		"reset_at":      e.WindowResetAt.UnixMilli(),
		"blocked_until": blocked,
	}
}

func decodeEntry(vals map[string]string) (domain.RateLimitEntry, bool, error) {
	if len(vals) == 0 {
		return domain.RateLimitEntry{}, false, nil
	}

	count, err := strconv.Atoi(vals["count"])
	if err != nil {
		return domain.RateLimitEntry{}, false, fmt.Errorf("decode count: %w", err)
	}
	resetMs, err := strconv.ParseInt(vals["reset_at"], 10, 64)
	if err != nil {
		return domain.RateLimitEntry{}, false, fmt.Errorf("decode reset_at: %w", err)
	}

	e := domain.RateLimitEntry{Count: count, WindowResetAt: time.UnixMilli(resetMs)}
	if raw := vals["blocked_until"]; raw != "" && raw != "0" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return domain.RateLimitEntry{}, false, fmt.Errorf("decode blocked_until: %w", err)
		}
		e.BlockedUntil = time.UnixMilli(ms)
	}
	return e, true, nil
}

package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"contact-gateway/contactform/domain"
)

// Policy define o limite por chave: MaxAttempts envios por Window;
// quem passar disso fica bloqueado por BlockFor.
type Policy struct {
	MaxAttempts int
	Window      time.Duration
	BlockFor    time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 5,
		Window:      15 * time.Minute,
		BlockFor:    30 * time.Minute,
	}
}

func (p Policy) withDefaults() Policy {
	def := DefaultPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.Window <= 0 {
		p.Window = def.Window
	}
	if p.BlockFor <= 0 {
		p.BlockFor = def.BlockFor
	}
	return p
}

// Apply é a máquina de estados de uma chave: recebe o estado atual e devolve
// o próximo estado junto com a decisão. Não tem efeito colateral.
func (p Policy) Apply(cur domain.RateLimitEntry, found bool, now time.Time) (domain.RateLimitEntry, domain.Decision) {
	fresh := func() (domain.RateLimitEntry, domain.Decision) {
		next := domain.RateLimitEntry{Count: 1, WindowResetAt: now.Add(p.Window)}
		return next, domain.Decision{Allowed: true, Count: 1, ResetAt: next.WindowResetAt}
	}

	switch {
	case !found:
		return fresh()

	case cur.Blocked(now):
		return cur, domain.Decision{
			Allowed:      false,
			Count:        cur.Count,
			ResetAt:      cur.WindowResetAt,
			BlockedUntil: cur.BlockedUntil,
			RetryAfter:   cur.BlockedUntil.Sub(now),
		}

	// bloqueio já cumprido ou janela encerrada: recomeça do zero
	case !cur.BlockedUntil.IsZero(), !now.Before(cur.WindowResetAt):
		return fresh()

	case cur.Count < p.MaxAttempts:
		cur.Count++
		return cur, domain.Decision{Allowed: true, Count: cur.Count, ResetAt: cur.WindowResetAt}

	default:
		cur.BlockedUntil = now.Add(p.BlockFor)
		return cur, domain.Decision{
			Allowed:      false,
			Count:        cur.Count,
			ResetAt:      cur.WindowResetAt,
			BlockedUntil: cur.BlockedUntil,
			RetryAfter:   p.BlockFor,
		}
	}
}

const contentionRetry = time.Second

// Limiter aplica a Policy sobre um EntryStore injetado (memória, Redis...).
type Limiter struct {
	Store  domain.EntryStore
	Policy Policy
	Now    func() time.Time
}

func (l Limiter) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

// CheckRateLimit deve ser chamado uma vez por submissão, antes de aceitá-la.
func (l Limiter) CheckRateLimit(ctx context.Context, key domain.Key) (domain.Decision, error) {
	if l.Store == nil {
		return domain.Decision{Allowed: true}, nil
	}
	p := l.Policy.withDefaults()
	now := l.now()

	var dec domain.Decision
	_, err := l.Store.Update(ctx, key, func(cur domain.RateLimitEntry, found bool) domain.RateLimitEntry {
		next, d := p.Apply(cur, found, now)
		dec = d
		return next
	})
	switch {
	case errors.Is(err, domain.ErrStoreContention):
		// disputa na mesma chave é justamente o abuso que o limite existe para barrar
		return domain.Decision{
			Allowed:    false,
			ResetAt:    now.Add(contentionRetry),
			RetryAfter: contentionRetry,
		}, nil
	case err != nil:
		return domain.Decision{}, fmt.Errorf("rate limit store: %w", err)
	}
	return dec, nil
}

// Cleanup remove entradas cuja janela e bloqueio já expiraram.
// Só serve para liberar memória; as decisões não dependem dele.
func (l Limiter) Cleanup(ctx context.Context) (int, error) {
	if l.Store == nil {
		return 0, nil
	}
	return l.Store.Cleanup(ctx, l.now())
}

// StartJanitor roda Cleanup periodicamente até o ctx encerrar.
func (l Limiter) StartJanitor(ctx context.Context, every time.Duration, logger *slog.Logger) {
	if every <= 0 || l.Store == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}

	t := time.NewTicker(every)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				n, err := l.Cleanup(ctx)
				if err != nil {
					logger.Warn("rate limit cleanup failed", "err", err)
					continue
				}
				if n > 0 {
					logger.Debug("rate limit cleanup", "removed", n)
				}
			}
		}
	}()
}

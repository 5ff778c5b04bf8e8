package domain

import (
	"context"
	"errors"
	"time"
)

// ErrStoreContention indica que o store não conseguiu aplicar o Update porque
// outras requisições da mesma chave mexeram na entrada ao mesmo tempo.
// Não é falha de infraestrutura: o Limiter nega a submissão.
var ErrStoreContention = errors.New("rate limit entry: too many concurrent updates")

// Key identifica o cliente (ex: IP).
type Key string

// RateLimitEntry é o estado de rate limit de uma chave.
//
// Count só é incrementado enquanto now < WindowResetAt.
// BlockedUntil zero significa "sem bloqueio".
type RateLimitEntry struct {
	Count         int
	WindowResetAt time.Time
	BlockedUntil  time.Time
}

// Blocked indica se a entrada nega admissão em now.
func (e RateLimitEntry) Blocked(now time.Time) bool {
	return !e.BlockedUntil.IsZero() && now.Before(e.BlockedUntil)
}

// Expired indica que janela e bloqueio já passaram; a entrada pode ser descartada.
func (e RateLimitEntry) Expired(now time.Time) bool {
	return now.After(e.WindowResetAt) && !e.Blocked(now)
}

// ExpiresAt é o instante a partir do qual a entrada não tem mais efeito.
func (e RateLimitEntry) ExpiresAt() time.Time {
	if e.BlockedUntil.After(e.WindowResetAt) {
		return e.BlockedUntil
	}
	return e.WindowResetAt
}

// UpdateFunc recebe o estado atual (found=false quando não existe) e devolve o novo estado.
type UpdateFunc func(cur RateLimitEntry, found bool) RateLimitEntry

// EntryStore guarda entradas de rate limit por chave.
//
// Update precisa ser atômico por chave (read-modify-write): duas chamadas
// concorrentes para a mesma chave nunca podem ler o mesmo estado.
// Implementações com retry otimista podem chamar fn mais de uma vez.
type EntryStore interface {
	Update(ctx context.Context, key Key, fn UpdateFunc) (RateLimitEntry, error)
	Cleanup(ctx context.Context, now time.Time) (int, error)
}

type Decision struct {
	Allowed bool
	Count   int

	ResetAt time.Time
	// BlockedUntil é zero quando não há bloqueio ativo.
	BlockedUntil time.Time
	// RetryAfter é o valor recomendado para Retry-After quando negar.
	RetryAfter time.Duration
}

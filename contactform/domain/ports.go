package domain

import (
	"context"
	"time"
)

// LeadRepository persiste submissões aceitas.
type LeadRepository interface {
	Save(ctx context.Context, lead Lead) error
}

// Notifier avisa a equipe sobre um novo lead (email, chat...).
type Notifier interface {
	Notify(ctx context.Context, lead Lead) error
}

type Outcome string

const (
	OutcomeAccepted    Outcome = "accepted"
	OutcomeInvalid     Outcome = "invalid"
	OutcomeSpam        Outcome = "spam"
	OutcomeRateLimited Outcome = "rate_limited"
	// OutcomeThrottled vem do throttle do site, antes do formulário.
	OutcomeThrottled Outcome = "throttled"
)

// StatsEvent representa o resultado de uma submissão.
//
// Observação: Key só deve ser gravada quando explicitamente habilitado,
// por causa de cardinalidade.
type StatsEvent struct {
	Key     Key
	Outcome Outcome
	At      time.Time
}

// StatsStore é best-effort: erro aqui nunca derruba a submissão.
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}

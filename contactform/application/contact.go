package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"contact-gateway/contactform/domain"
	"contact-gateway/logging"

	"github.com/google/uuid"
)

// defaultValidator é usado quando o ContactService não recebe um Validator.
var defaultValidator = sync.OnceValue(NewValidator)

// ContactService executa o fluxo de uma submissão:
// validação -> filtro de spam -> rate limit -> sanitização -> persistência -> notificação.
type ContactService struct {
	Validator *Validator
	Spam      SpamFilter
	Limiter   Limiter

	Leads    domain.LeadRepository
	Notifier domain.Notifier
	Stats    domain.StatsStore

	Now func() time.Time
}

func (s ContactService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Submit devolve o lead aceito ou um dos erros do domínio:
// *domain.ValidationError, domain.ErrSpamRejected (embrulhado) ou *domain.RateLimitedError.
// Outros erros são falhas de entrega (storage/notificação).
func (s ContactService) Submit(ctx context.Context, meta domain.SubmissionMeta, p domain.SubmissionPayload) (domain.Lead, error) {
	logger := logging.FromContext(ctx).With("client", string(meta.ClientKey))

	v := s.Validator
	if v == nil {
		v = defaultValidator()
	}
	normalized, err := v.Validate(p)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			s.record(ctx, meta.ClientKey, domain.OutcomeInvalid)
			logger.Info("submission invalid", "fields", len(verr.Fields))
		}
		return domain.Lead{}, err
	}

	if err := s.Spam.Check(normalized); err != nil {
		s.record(ctx, meta.ClientKey, domain.OutcomeSpam)
		logger.Warn("submission dropped as spam", "reason", err.Error())
		return domain.Lead{}, err
	}

	dec, err := s.Limiter.CheckRateLimit(ctx, meta.ClientKey)
	switch {
	case err != nil:
		// store fora do ar não pode derrubar a captação de leads (disputa já virou negação no Limiter)
		logger.Error("rate limit check failed, admitting submission", "err", err)
	case !dec.Allowed:
		s.record(ctx, meta.ClientKey, domain.OutcomeRateLimited)
		logger.Warn("submission rate limited", "count", dec.Count, "blocked_until", dec.BlockedUntil)
		return domain.Lead{}, &domain.RateLimitedError{
			Key:          meta.ClientKey,
			ResetAt:      dec.ResetAt,
			BlockedUntil: dec.BlockedUntil,
			RetryAfter:   dec.RetryAfter,
		}
	}

	lead := domain.Lead{
		ID:         uuid.New(),
		Payload:    SanitizePayload(normalized),
		ClientKey:  meta.ClientKey,
		UserAgent:  meta.UserAgent,
		Referer:    meta.Referer,
		ReceivedAt: s.now().UTC(),
	}

	if s.Leads != nil {
		if err := s.Leads.Save(ctx, lead); err != nil {
			return domain.Lead{}, fmt.Errorf("save lead: %w", err)
		}
	}

	if s.Notifier != nil {
		if err := s.Notifier.Notify(ctx, lead); err != nil {
			// sem storage a notificação é a única entrega: aí é erro
			if s.Leads == nil {
				return domain.Lead{}, fmt.Errorf("notify lead: %w", err)
			}
			logger.Warn("lead notification failed", "lead", lead.ID, "err", err)
		}
	}

	s.record(ctx, meta.ClientKey, domain.OutcomeAccepted)
	logger.Info("lead accepted", "lead", lead.ID)
	return lead, nil
}

func (s ContactService) record(ctx context.Context, key domain.Key, outcome domain.Outcome) {
	if s.Stats == nil {
		return
	}
	err := s.Stats.Record(ctx, domain.StatsEvent{Key: key, Outcome: outcome, At: s.now()})
	if err != nil {
		logging.FromContext(ctx).Debug("stats record failed", "err", err)
	}
}

package infra

import (
	"context"
	"sync"

	"contact-gateway/contactform/domain"
)

// MemoryLeadRepository é o fallback quando não há MongoDB configurado.
// Os leads se perdem no restart; a entrega real fica por conta do EmailNotifier.
type MemoryLeadRepository struct {
	mu    sync.Mutex
	leads []domain.Lead
	max   int
}

// NewMemoryLeadRepository guarda no máximo max leads (os mais antigos saem primeiro).
func NewMemoryLeadRepository(max int) *MemoryLeadRepository {
	if max <= 0 {
		max = 1000
	}
	return &MemoryLeadRepository{max: max}
}

func (r *MemoryLeadRepository) Save(_ context.Context, lead domain.Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.leads = append(r.leads, lead)
	if over := len(r.leads) - r.max; over > 0 {
		r.leads = append([]domain.Lead(nil), r.leads[over:]...)
	}
	return nil
}

func (r *MemoryLeadRepository) List() []domain.Lead {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Lead(nil), r.leads...)
}

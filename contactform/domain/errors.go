package domain

import (
	"errors"
	"strings"
	"time"
)

// ErrSpamRejected não carrega detalhe de propósito: o cliente não deve saber qual regra disparou.
var ErrSpamRejected = errors.New("submission rejected as spam")

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lista todos os campos inválidos, não só o primeiro.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, f.Field)
	}
	return "invalid submission: " + strings.Join(names, ", ")
}

// Has informa se o campo aparece na lista de erros.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// RateLimitedError é devolvido quando a chave excedeu o limite ou está bloqueada.
type RateLimitedError struct {
	Key          Key
	ResetAt      time.Time
	BlockedUntil time.Time
	RetryAfter   time.Duration
}

func (e *RateLimitedError) Error() string {
	return "rate limited: " + string(e.Key)
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

// SubmissionPayload é o corpo enviado pelo formulário de contato.
//
// As tags `validate` são interpretadas pelo Validator da camada application.
// Honeypot não tem regra: quem decide é o filtro de spam.
type SubmissionPayload struct {
	Name         string `json:"name" validate:"required,max=100,personname"`
	Email        string `json:"email" validate:"required,max=255,email"`
	Phone        string `json:"phone" validate:"required,max=20,intlphone"`
	County       string `json:"county,omitempty" validate:"max=100"`
	City         string `json:"city,omitempty" validate:"max=100"`
	PropertyType string `json:"propertyType,omitempty" validate:"max=50"`
	Message      string `json:"message" validate:"required,min=10,max=2000,nohtml"`

	Honeypot  string `json:"website,omitempty"`
	FormToken string `json:"formToken,omitempty"`
}

// Lead é uma submissão aceita, já sanitizada, pronta para ser persistida/notificada.
type Lead struct {
	ID         uuid.UUID
	Payload    SubmissionPayload
	ClientKey  Key
	UserAgent  string
	Referer    string
	ReceivedAt time.Time
}

// SubmissionMeta carrega dados do request que não fazem parte do payload.
type SubmissionMeta struct {
	ClientKey Key
	UserAgent string
	Referer   string
}

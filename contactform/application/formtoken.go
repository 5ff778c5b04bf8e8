package application

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultTokenTTL = 2 * time.Hour

// FormTokens emite e verifica o token assinado entregue junto com o formulário.
// Serve para medir quanto tempo o visitante levou para preencher.
type FormTokens struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
	Now    func() time.Time
}

func (t *FormTokens) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

func (t *FormTokens) Issue() (string, error) {
	if len(t.Secret) == 0 {
		return "", errors.New("form token secret not configured")
	}
	ttl := t.TTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}

	now := t.now()
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    t.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.Secret)
	if err != nil {
		return "", fmt.Errorf("sign form token: %w", err)
	}
	return signed, nil
}

// Age valida o token e devolve há quanto tempo ele foi emitido.
func (t *FormTokens) Age(token string) (time.Duration, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	}
	if t.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.Issuer))
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return t.Secret, nil
	}, opts...)
	if err != nil {
		return 0, fmt.Errorf("invalid form token: %w", err)
	}
	if claims.IssuedAt == nil {
		return 0, errors.New("invalid form token: missing iat")
	}
	return t.now().Sub(claims.IssuedAt.Time), nil
}

package contactform

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"contact-gateway/contactform/domain"
)

type acceptedResponse struct {
	OK bool   `json:"ok"`
	ID string `json:"id"`
}

type validationResponse struct {
	FieldErrors []domain.FieldError `json:"field_errors"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type rateLimitedResponse struct {
	Error        string     `json:"error"`
	ResetTime    time.Time  `json:"resetTime"`
	BlockedUntil *time.Time `json:"blockedUntil,omitempty"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type statsResponse struct {
	Totals map[string]int64 `json:"totals"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Default().Warn("encode json response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, errorResponse{Error: code})
}

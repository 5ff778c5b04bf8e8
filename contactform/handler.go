package contactform

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"time"

	"contact-gateway/contactform/domain"
	"contact-gateway/logging"
	"contact-gateway/middleware/ratelimit"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const defaultMaxBodyBytes = 64 * 1024

// Submitter é o caso de uso de submissão (application.ContactService).
type Submitter interface {
	Submit(ctx context.Context, meta domain.SubmissionMeta, p domain.SubmissionPayload) (domain.Lead, error)
}

// TokenIssuer emite o token do formulário (application.FormTokens).
type TokenIssuer interface {
	Issue() (string, error)
}

// StatsReader expõe os contadores por resultado.
type StatsReader interface {
	Totals(ctx context.Context) (map[string]int64, error)
}

type Options struct {
	Service Submitter
	Tokens  TokenIssuer
	Stats   StatsReader

	KeyFn        ratelimit.KeyFunc
	MaxBodyBytes int64
	// SpamSoftAccept responde como sucesso para spam, sem avisar o robô.
	SpamSoftAccept bool
	AdminToken     string
}

type Handler struct {
	opts Options
}

func NewHandler(opts Options) *Handler {
	if opts.KeyFn == nil {
		opts.KeyFn = ratelimit.DefaultKeyFunc("", false)
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	return &Handler{opts: opts}
}

// Register monta as rotas do formulário no router recebido (ex: sob /api).
func (h *Handler) Register(r chi.Router) {
	r.Post("/contact", h.submit)
	if h.opts.Tokens != nil {
		r.Get("/contact/token", h.token)
	}
	if h.opts.Stats != nil && h.opts.AdminToken != "" {
		r.Get("/contact/stats", h.stats)
	}
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())

	p, status, err := decodeSubmission(w, r, h.opts.MaxBodyBytes)
	if err != nil {
		logger.Info("bad contact body", "status", status, "err", err)
		writeError(w, status, bodyErrorCode(status))
		return
	}

	meta := domain.SubmissionMeta{
		ClientKey: domain.Key(h.opts.KeyFn(r)),
		UserAgent: r.UserAgent(),
		Referer:   r.Referer(),
	}

	lead, err := h.opts.Service.Submit(r.Context(), meta, p)
	if err == nil {
		writeJSON(w, http.StatusCreated, acceptedResponse{OK: true, ID: lead.ID.String()})
		return
	}

	var (
		verr *domain.ValidationError
		rerr *domain.RateLimitedError
	)
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, validationResponse{FieldErrors: verr.Fields})

	case errors.Is(err, domain.ErrSpamRejected):
		if h.opts.SpamSoftAccept {
			writeJSON(w, http.StatusCreated, acceptedResponse{OK: true, ID: uuid.NewString()})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "spam_detected"})

	case errors.As(err, &rerr):
		writeRateLimited(w, rerr)

	default:
		logger.Error("contact submission failed", "err", err)
		writeError(w, http.StatusInternalServerError, "submission_failed")
	}
}

func bodyErrorCode(status int) string {
	switch status {
	case http.StatusRequestEntityTooLarge:
		return "payload_too_large"
	case http.StatusUnsupportedMediaType:
		return "unsupported_media_type"
	default:
		return "bad_request"
	}
}

func writeRateLimited(w http.ResponseWriter, rerr *domain.RateLimitedError) {
	resp := rateLimitedResponse{Error: "rate_limited", ResetTime: rerr.ResetAt.UTC()}
	if !rerr.BlockedUntil.IsZero() {
		bu := rerr.BlockedUntil.UTC()
		resp.BlockedUntil = &bu
	}
	if rerr.RetryAfter > 0 {
		secs := int((rerr.RetryAfter + time.Second - 1) / time.Second)
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}
	writeJSON(w, http.StatusTooManyRequests, resp)
}

func (h *Handler) token(w http.ResponseWriter, r *http.Request) {
	tok, err := h.opts.Tokens.Issue()
	if err != nil {
		logging.FromContext(r.Context()).Error("issue form token", "err", err)
		writeError(w, http.StatusInternalServerError, "token_unavailable")
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, tokenResponse{Token: tok})
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	got := r.Header.Get("X-Admin-Token")
	if subtle.ConstantTimeCompare([]byte(got), []byte(h.opts.AdminToken)) != 1 {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	totals, err := h.opts.Stats.Totals(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("read contact stats", "err", err)
		writeError(w, http.StatusServiceUnavailable, "stats_unavailable")
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{Totals: totals})
}

package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

const contactBody = `{"name":"Mary O'Neil","email":"mary@example.com","phone":"+1 555 123 4567","message":"Looking for a manager for my duplex downtown."}`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T) (http.Handler, config) {
	t.Helper()
	cfg, err := readConfig()
	if err != nil {
		t.Fatalf("readConfig: %v", err)
	}
	a, err := newApp(context.Background(), cfg, testLogger())
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	t.Cleanup(a.close)
	return newRouter(cfg, a), cfg
}

func post(h http.Handler, body string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRouter_ContactLimitEndToEnd(t *testing.T) {
	h, _ := newTestServer(t)

	for i := 0; i < 5; i++ {
		rr := post(h, contactBody, nil)
		if rr.Code != http.StatusCreated {
			t.Fatalf("submission %d: expected 201, got %d body=%s", i+1, rr.Code, rr.Body.String())
		}
		if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Fatalf("expected security headers")
		}
	}

	rr := post(h, contactBody, nil)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After")
	}
}

func TestRouter_RedisBackedLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Setenv("REDIS_ADDR", mr.Addr())
	t.Setenv("ADMIN_TOKEN", "adm")

	h, _ := newTestServer(t)

	for i := 0; i < 5; i++ {
		if rr := post(h, contactBody, nil); rr.Code != http.StatusCreated {
			t.Fatalf("submission %d: expected 201, got %d", i+1, rr.Code)
		}
	}
	if rr := post(h, contactBody, nil); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if !mr.Exists("contact:ratelimit:192.0.2.1") {
		t.Fatalf("expected limiter state in redis, keys=%v", mr.Keys())
	}

	req := httptest.NewRequest(http.MethodGet, "/api/contact/stats", nil)
	req.Header.Set("X-Admin-Token", "adm")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected stats 200, got %d", rr.Code)
	}
	var resp struct {
		Totals map[string]int64 `json:"totals"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Totals["accepted"] != 5 || resp.Totals["rate_limited"] != 1 {
		t.Fatalf("unexpected totals %v", resp.Totals)
	}
}

func TestRouter_Healthz(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Setenv("REDIS_ADDR", mr.Addr())

	h, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var body struct {
		Status string            `json:"status"`
		Deps   map[string]string `json:"deps"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" || body.Deps["redis"] != "ok" {
		t.Fatalf("unexpected health %+v", body)
	}

	mr.Close()
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 with redis down, got %d", rr.Code)
	}
}

func TestRouter_CORS(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", "https://site.example")
	h, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/contact", nil)
	req.Header.Set("Origin", "https://site.example")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204 preflight, got %d", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "https://site.example" {
		t.Fatalf("expected allowed origin echoed")
	}

	req = httptest.NewRequest(http.MethodOptions, "/api/contact", nil)
	req.Header.Set("Origin", "https://evil.example")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("unexpected CORS header for unknown origin")
	}
}

func TestRouter_SiteThrottle(t *testing.T) {
	t.Setenv("RATE_RPS", "1")
	t.Setenv("RATE_BURST", "1")
	t.Setenv("ADMIN_TOKEN", "adm")
	h, _ := newTestServer(t)

	if rr := post(h, `{}`, nil); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected first request to reach the handler, got %d", rr.Code)
	}
	if rr := post(h, `{}`, nil); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected site throttle 429, got %d", rr.Code)
	}

	// healthz fica fora do throttle e mostra os contadores
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected healthz to skip throttle, got %d", rr.Code)
	}
	var health struct {
		Throttle struct {
			Allowed   int64 `json:"allowed"`
			Throttled int64 `json:"throttled"`
		} `json:"throttle"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &health); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if health.Throttle.Allowed != 1 || health.Throttle.Throttled != 1 {
		t.Fatalf("unexpected throttle counters %+v", health.Throttle)
	}
}

func TestRouter_ThrottleIsRecordedInStats(t *testing.T) {
	t.Setenv("RATE_RPS", "1")
	t.Setenv("RATE_BURST", "1")
	t.Setenv("ADMIN_TOKEN", "adm")
	t.Setenv("TRUST_XFF", "true")
	t.Setenv("RATE_KEY_HEADER", "X-Client-Key")
	t.Setenv("RATE_EXEMPT_KEYS", "monitor")
	h, _ := newTestServer(t)

	post(h, `{}`, nil)
	post(h, `{}`, nil)
	for i := 0; i < 3; i++ {
		if rr := post(h, `{}`, map[string]string{"X-Client-Key": "monitor"}); rr.Code == http.StatusTooManyRequests {
			t.Fatalf("exempt key must not be throttled")
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/contact/stats", nil)
	req.Header.Set("X-Admin-Token", "adm")
	req.Header.Set("X-Client-Key", "monitor")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	var resp struct {
		Totals map[string]int64 `json:"totals"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Totals["throttled"] != 1 {
		t.Fatalf("expected one throttled request in stats, got %v", resp.Totals)
	}
}

func TestRequestLogger_RecoversPanic(t *testing.T) {
	h := requestLogger(testLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 after panic, got %d", rr.Code)
	}
}

package ratelimit

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func okHandler(calls *int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			*calls++
		}
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok")
	})
}

func serve(h http.Handler, remote string, path string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodGet, "http://example"+path, nil)
	r.RemoteAddr = remote
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestMiddleware_AllowsThenRejectsSameKey(t *testing.T) {
	calls := 0
	h := Middleware(Options{
		Store:               NewBucketStore(0.02, 1),
		AddRateLimitHeaders: true,
	})(okHandler(&calls))

	w1 := serve(h, "10.0.0.1:1234", "/api/contact")
	if w1.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w1.Code)
	}
	if got := w1.Header().Get("X-RateLimit-Burst"); got != "1" {
		t.Fatalf("expected X-RateLimit-Burst=1, got %q", got)
	}
	if got := w1.Header().Get("X-RateLimit-RPS"); got != "0.02" {
		t.Fatalf("expected X-RateLimit-RPS=0.02, got %q", got)
	}

	// burst=1 e rps bem baixo: a segunda bloqueia
	w2 := serve(h, "10.0.0.1:1234", "/api/contact")
	if w2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w2.Code)
	}
	if !strings.Contains(w2.Body.String(), `"too_many_requests"`) {
		t.Fatalf("expected json error body, got %q", w2.Body.String())
	}
	if ct := w2.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected json content type, got %q", ct)
	}
	if calls != 1 {
		t.Fatalf("expected next handler to be called once, got %d", calls)
	}
}

func TestMiddleware_SeparateKeysHaveSeparateBuckets(t *testing.T) {
	h := Middleware(Options{Store: NewBucketStore(0.02, 1)})(okHandler(nil))

	if w := serve(h, "10.0.0.1:1234", "/"); w.Code != http.StatusOK {
		t.Fatalf("expected 200 for first client, got %d", w.Code)
	}
	if w := serve(h, "10.0.0.2:1234", "/"); w.Code != http.StatusOK {
		t.Fatalf("expected 200 for second client, got %d", w.Code)
	}
}

func TestMiddleware_RetryAfterRoundsUp(t *testing.T) {
	h := Middleware(Options{
		Store:      NewBucketStore(0.02, 1),
		RetryAfter: 2500 * time.Millisecond,
	})(okHandler(nil))

	serve(h, "10.0.0.1:1234", "/")
	w := serve(h, "10.0.0.1:1234", "/")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "3" {
		t.Fatalf("expected Retry-After=3, got %q", got)
	}
}

func TestMiddleware_SkipBypassesBucket(t *testing.T) {
	calls := 0
	h := Middleware(Options{
		Store: NewBucketStore(0.02, 1),
		Skip:  func(r *http.Request) bool { return r.URL.Path == "/healthz" },
	})(okHandler(&calls))

	for i := 0; i < 3; i++ {
		if w := serve(h, "10.0.0.1:1234", "/healthz"); w.Code != http.StatusOK {
			t.Fatalf("healthz request %d: expected 200, got %d", i, w.Code)
		}
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestMiddleware_NilStoreIsPassThrough(t *testing.T) {
	calls := 0
	h := Middleware(Options{})(okHandler(&calls))
	for i := 0; i < 5; i++ {
		serve(h, "10.0.0.1:1234", "/")
	}
	if calls != 5 {
		t.Fatalf("expected 5 calls, got %d", calls)
	}
}

func TestMiddleware_OnThrottleSeesRejectedKey(t *testing.T) {
	var got []string
	h := Middleware(Options{
		Store:      NewBucketStore(0.02, 1),
		OnThrottle: func(_ *http.Request, key string) { got = append(got, key) },
	})(okHandler(nil))

	serve(h, "10.0.0.5:1", "/api/contact")
	if len(got) != 0 {
		t.Fatalf("allowed request must not be reported, got %v", got)
	}
	serve(h, "10.0.0.5:1", "/api/contact")
	if len(got) != 1 || got[0] != "10.0.0.5" {
		t.Fatalf("expected throttled key reported once, got %v", got)
	}
}

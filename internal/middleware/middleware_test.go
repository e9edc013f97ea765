package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte(GetClientFromContext(r.Context())))
})

func TestAPIKeyAuth(t *testing.T) {
	h := APIKeyAuth(map[string]string{"desk": "secret"})(okHandler)

	tests := []struct {
		name   string
		header string
		value  string
		status int
		body   string
	}{
		{"missing", "", "", http.StatusUnauthorized, ""},
		{"wrong", "X-API-Key", "nope", http.StatusUnauthorized, ""},
		{"header", "X-API-Key", "secret", http.StatusOK, "desk"},
		{"bearer", "Authorization", "Bearer secret", http.StatusOK, "desk"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/sessions", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.body != "" && rec.Body.String() != tt.body {
				t.Fatalf("client = %q, want %q", rec.Body.String(), tt.body)
			}
		})
	}
}

func TestAPIKeyAuthDisabled(t *testing.T) {
	rec := httptest.NewRecorder()
	APIKeyAuth(nil)(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	h := RateLimitMiddleware(1, 2)(okHandler)

	codes := make([]int, 3)
	for i := range codes {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes[i] = rec.Code
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}

	// another client has its own bucket
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("second client status = %d", rec.Code)
	}
}

func TestRateLimiterSweep(t *testing.T) {
	rl := &RateLimiter{clients: make(map[string]*clientLimiter), limit: 1, burst: 1, idle: time.Minute}
	rl.Allow("a")
	rl.sweep(time.Now().Add(2 * time.Minute))
	if len(rl.clients) != 0 {
		t.Fatalf("clients = %d, want 0", len(rl.clients))
	}
}

func TestHealthHandler(t *testing.T) {
	checkers := map[string]HealthChecker{
		"storage": CheckerFunc(func(ctx context.Context) error { return nil }),
	}
	rec := httptest.NewRecorder()
	HealthHandler(checkers)(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	checkers["archive"] = CheckerFunc(func(ctx context.Context) error { return errors.New("down") })
	rec = httptest.NewRecorder()
	HealthHandler(checkers)(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
	var hs HealthStatus
	if err := json.NewDecoder(rec.Body).Decode(&hs); err != nil {
		t.Fatal(err)
	}
	if hs.Checks["archive"].Message != "down" || hs.Checks["storage"].Status != "healthy" {
		t.Fatalf("checks = %+v", hs.Checks)
	}
}

func TestRecorderCounts(t *testing.T) {
	before := atomic.LoadUint64(&globalMetrics.AnalysesFailed)
	var r Recorder
	r.AnalysisStarted()
	r.AnalysisFinished(errors.New("quota"))
	r.QuoteFailed()

	if got := atomic.LoadUint64(&globalMetrics.AnalysesFailed); got != before+1 {
		t.Fatalf("failed = %d, want %d", got, before+1)
	}
	m := GetMetrics()
	if _, ok := m["quotes_failed"]; !ok {
		t.Fatal("quotes_failed missing")
	}
}

func TestMetricsMiddlewareCountsFailures(t *testing.T) {
	before := atomic.LoadUint64(&globalMetrics.RequestsFailed)
	h := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if got := atomic.LoadUint64(&globalMetrics.RequestsFailed); got != before+1 {
		t.Fatalf("failed = %d, want %d", got, before+1)
	}
}

package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"resume-review/internal/analyses"
	"resume-review/internal/services/health"
	"resume-review/internal/shared/config"
	"resume-review/internal/shared/server/middleware"
)

func testConfig() config.Config {
	return config.Config{
		Env:               "dev",
		CORSAllowOrigin:   []string{"http://localhost:5173"},
		MaxUploadBytes:    1 << 20,
		AnalyzeRatePerMin: 60,
		AnalyzeBurst:      1,
	}
}

func do(t *testing.T, h http.Handler, method, path string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(""))
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func TestHealthReflectsChecks(t *testing.T) {
	hs := health.NewService()
	r := NewRouter(RouterDeps{Config: testConfig(), Health: hs})

	if resp := do(t, r, http.MethodGet, "/api/v1/health", nil); resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	hs.Register("db", func(context.Context) error { return errors.New("down") })
	resp := do(t, r, http.MethodGet, "/api/v1/health", nil)
	if resp.Code != http.StatusServiceUnavailable || !strings.Contains(resp.Body.String(), `"db":"down"`) {
		t.Fatalf("unexpected health response: %d %s", resp.Code, resp.Body.String())
	}
}

func TestMetricsAndMe(t *testing.T) {
	r := NewRouter(RouterDeps{Config: testConfig()})

	metrics := do(t, r, http.MethodGet, "/api/v1/metrics", nil)
	if metrics.Code != http.StatusOK || !strings.Contains(metrics.Body.String(), "pipeline_started_total") {
		t.Fatalf("unexpected metrics: %d %s", metrics.Code, metrics.Body.String())
	}

	if resp := do(t, r, http.MethodGet, "/api/v1/me", nil); resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity, got %d", resp.Code)
	}
	me := do(t, r, http.MethodGet, "/api/v1/me", map[string]string{"X-Guest-Id": "g1"})
	if me.Code != http.StatusOK || !strings.Contains(me.Body.String(), `"userId":"guest:g1","guest":true`) {
		t.Fatalf("unexpected me: %d %s", me.Code, me.Body.String())
	}
	if !strings.Contains(me.Body.String(), `"canReview":true`) {
		t.Fatalf("dev guests should be able to open reviews: %s", me.Body.String())
	}
}

func TestMeReportsReviewAccessOutsideDev(t *testing.T) {
	cfg := testConfig()
	cfg.Env = "production"
	r := NewRouter(RouterDeps{Config: cfg})

	me := do(t, r, http.MethodGet, "/api/v1/me", map[string]string{"X-Guest-Id": "g1"})
	if me.Code != http.StatusOK || !strings.Contains(me.Body.String(), `"canReview":false`) {
		t.Fatalf("guests must not open reviews in production: %d %s", me.Code, me.Body.String())
	}
}

func TestSubmitIsRateLimited(t *testing.T) {
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	r := NewRouter(RouterDeps{
		Config:          testConfig(),
		AnalysisHandler: &analyses.Handler{},
		Limiter:         middleware.NewRateLimiter(func() time.Time { return now }),
	})
	hdr := map[string]string{"X-Guest-Id": "g1", "Content-Type": "multipart/form-data; boundary=x"}

	// An empty multipart body has no file: the submission is a no-op.
	first := do(t, r, http.MethodPost, "/api/v1/resumes", hdr)
	if first.Code == http.StatusTooManyRequests {
		t.Fatalf("first submission must not be limited")
	}
	second := do(t, r, http.MethodPost, "/api/v1/resumes", hdr)
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", second.Code)
	}
	if resp := do(t, r, http.MethodGet, "/api/v1/health", hdr); resp.Code != http.StatusOK {
		t.Fatalf("other routes must not be limited, got %d", resp.Code)
	}
}

func TestAddr(t *testing.T) {
	t.Parallel()

	cases := map[string]string{"": ":8080", "9000": ":9000", ":7000": ":7000"}
	for in, want := range cases {
		if got := Addr(in); got != want {
			t.Fatalf("Addr(%q) = %q, want %q", in, got, want)
		}
	}
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/gheop3s/gheop3s/internal/platform/auth"
)

func newRateLimitedServer(cfg RateLimitConfig) *echo.Echo {
	e := echo.New()
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if user := c.Request().Header.Get("X-Test-User"); user != "" {
				c.SetRequest(c.Request().WithContext(auth.WithIdentity(c.Request().Context(), user, nil)))
			}
			return next(c)
		}
	})
	e.Use(RateLimit(cfg))
	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	return e
}

func get(e *echo.Echo, user, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	if ip != "" {
		req.RemoteAddr = ip + ":1234"
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRateLimit_RequestsWithinLimit(t *testing.T) {
	e := newRateLimitedServer(RateLimitConfig{RequestsPerSecond: 10, BurstSize: 5})

	for i := 0; i < 5; i++ {
		rec := get(e, "", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
		if got := rec.Header().Get("X-RateLimit-Limit"); got != "10" {
			t.Errorf("request %d: expected X-RateLimit-Limit '10', got %q", i+1, got)
		}
	}
}

func TestRateLimit_ExceedsLimit(t *testing.T) {
	e := newRateLimitedServer(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 2})

	for i := 0; i < 2; i++ {
		if rec := get(e, "", ""); rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}

	rec := get(e, "", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	retryAfter, err := strconv.Atoi(rec.Header().Get("Retry-After"))
	if err != nil || retryAfter < 1 {
		t.Errorf("expected Retry-After >= 1, got %q", rec.Header().Get("Retry-After"))
	}
	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Errorf("expected X-RateLimit-Remaining '0', got %q", got)
	}
}

func TestRateLimit_PerUserIsolation(t *testing.T) {
	e := newRateLimitedServer(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1})

	if rec := get(e, "alice", ""); rec.Code != http.StatusOK {
		t.Fatalf("alice first request: expected 200, got %d", rec.Code)
	}
	if rec := get(e, "alice", ""); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("alice second request: expected 429, got %d", rec.Code)
	}
	if rec := get(e, "bob", ""); rec.Code != http.StatusOK {
		t.Fatalf("bob first request: expected 200, got %d", rec.Code)
	}
}

func TestRateLimit_PerIPIsolation(t *testing.T) {
	e := newRateLimitedServer(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1})

	if rec := get(e, "", "10.0.0.1"); rec.Code != http.StatusOK {
		t.Fatalf("first client: expected 200, got %d", rec.Code)
	}
	if rec := get(e, "", "10.0.0.1"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("first client again: expected 429, got %d", rec.Code)
	}
	if rec := get(e, "", "10.0.0.2"); rec.Code != http.StatusOK {
		t.Fatalf("second client: expected 200, got %d", rec.Code)
	}
}

func TestRateLimit_DisabledWithZeroRate(t *testing.T) {
	e := newRateLimitedServer(RateLimitConfig{})
	for i := 0; i < 10; i++ {
		rec := get(e, "", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected no limiting, got %d", i+1, rec.Code)
		}
		if rec.Header().Get("X-RateLimit-Limit") != "" {
			t.Fatal("expected no rate limit headers when disabled")
		}
	}
}

func TestRateLimitKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:5555"

	key, _ := rateLimitKey(e.NewContext(req, httptest.NewRecorder()))
	if key != "192.0.2.7" {
		t.Errorf("expected ip key, got %q", key)
	}

	req = req.WithContext(auth.WithIdentity(req.Context(), "alice", nil))
	key, _ = rateLimitKey(e.NewContext(req, httptest.NewRecorder()))
	if key != "alice:192.0.2.7" {
		t.Errorf("expected user:ip key, got %q", key)
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	tests := []struct {
		rps  float64
		want int
	}{
		{100, 1},
		{1, 1},
		{0.5, 2},
		{0.1, 10},
	}
	for _, tt := range tests {
		if got := retryAfterSeconds(tt.rps); got != tt.want {
			t.Errorf("retryAfterSeconds(%v) = %d, want %d", tt.rps, got, tt.want)
		}
	}
}

func TestRateLimit_DefaultConfig(t *testing.T) {
	cfg := DefaultRateLimitConfig()
	if cfg.RequestsPerSecond != 100 || cfg.BurstSize != 200 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.ExpiresIn != 3*time.Minute {
		t.Errorf("expected idle buckets to expire after 3m, got %v", cfg.ExpiresIn)
	}
}

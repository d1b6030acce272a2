package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/gheop3s/gheop3s/internal/platform/auth"
)

// RateLimitConfig holds per-client token bucket settings. A non-positive
// RequestsPerSecond disables limiting. Buckets idle for longer than
// ExpiresIn are dropped.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
	ExpiresIn         time.Duration
}

// DefaultRateLimitConfig returns default rate limiting settings.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 100,
		BurstSize:         200,
		ExpiresIn:         3 * time.Minute,
	}
}

// rateLimitKey identifies a client by remote IP and, once authenticated,
// user id.
func rateLimitKey(c echo.Context) (string, error) {
	key := c.RealIP()
	if uid := auth.UserIDFromContext(c.Request().Context()); uid != "" {
		key = uid + ":" + key
	}
	return key, nil
}

// retryAfterSeconds is the time for one token to refill, at least a second.
func retryAfterSeconds(rps float64) int {
	return int(math.Max(1, math.Ceil(1/rps)))
}

// RateLimit limits requests per client with echo's in-memory limiter store.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	if cfg.RequestsPerSecond <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	if cfg.ExpiresIn <= 0 {
		cfg.ExpiresIn = DefaultRateLimitConfig().ExpiresIn
	}

	limit := strconv.FormatFloat(cfg.RequestsPerSecond, 'f', 0, 64)
	store := echomw.NewRateLimiterMemoryStoreWithConfig(echomw.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(cfg.RequestsPerSecond),
		Burst:     cfg.BurstSize,
		ExpiresIn: cfg.ExpiresIn,
	})

	return echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
		Store: store,
		BeforeFunc: func(c echo.Context) {
			c.Response().Header().Set("X-RateLimit-Limit", limit)
		},
		IdentifierExtractor: rateLimitKey,
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(cfg.RequestsPerSecond)))
			c.Response().Header().Set("X-RateLimit-Remaining", "0")
			return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
		},
	})
}

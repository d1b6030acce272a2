package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestTimeout sets a deadline on each request context. When the deadline
// passes before the handler returns, a 504 is written. Handlers that honour
// their context (screening, database access) stop early.
func RequestTimeout(timeout time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if timeout <= 0 {
				return next(c)
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))

			done := make(chan error, 1)
			panics := make(chan interface{}, 1)
			go func() {
				defer func() {
					if r := recover(); r != nil {
						panics <- r
					}
				}()
				done <- next(c)
			}()

			select {
			case err := <-done:
				return err
			case p := <-panics:
				// Re-raise on the request goroutine so Recovery sees it.
				panic(p)
			case <-ctx.Done():
				if errors.Is(ctx.Err(), context.DeadlineExceeded) {
					if !c.Response().Committed {
						return c.JSON(http.StatusGatewayTimeout,
							map[string]string{"message": "request processing exceeded the allowed time"})
					}
					return nil
				}
				return ctx.Err()
			}
		}
	}
}

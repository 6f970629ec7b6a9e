package middleware

import (
	"context"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// RequestIDHeader is the header used to propagate request ids.
const RequestIDHeader = "X-Request-ID"

type ctxKey struct{}

// RequestID assigns every request an id, reusing an inbound X-Request-ID when
// present. The id is stored on the echo context as "request_id" and on the
// request context for outbound calls.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rid := c.Request().Header.Get(RequestIDHeader)
			if rid == "" {
				rid = uuid.NewString()
			}
			c.Set("request_id", rid)
			c.Response().Header().Set(RequestIDHeader, rid)
			c.SetRequest(c.Request().WithContext(ContextWithRequestID(c.Request().Context(), rid)))
			return next(c)
		}
	}
}

// ContextWithRequestID returns a copy of ctx carrying rid.
func ContextWithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, ctxKey{}, rid)
}

// RequestIDFromContext returns the request id stored in ctx, or "".
func RequestIDFromContext(ctx context.Context) string {
	rid, _ := ctx.Value(ctxKey{}).(string)
	return rid
}

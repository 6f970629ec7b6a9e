package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// RequestTimeout returns middleware that sets a context deadline on each
// incoming request. The handler runs on the request goroutine and is expected
// to honour the deadline through its context; when it returns an error after
// the deadline has passed, a 504 Gateway Timeout is returned in its place.
//
// Requests matched by skip run without the deadline. Use it for handlers whose
// work must not be abandoned half way, such as a registry submission.
func RequestTimeout(timeout time.Duration, skip func(c echo.Context) bool) echo.MiddlewareFunc {
	if timeout <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	if skip == nil {
		skip = echomw.DefaultSkipper
	}
	return echomw.ContextTimeoutWithConfig(echomw.ContextTimeoutConfig{
		Skipper:      skip,
		Timeout:      timeout,
		ErrorHandler: timeoutErrorHandler,
	})
}

func timeoutErrorHandler(err error, c echo.Context) error {
	// Handlers often wrap the context error, or replace it with their own.
	expired := errors.Is(c.Request().Context().Err(), context.DeadlineExceeded)
	if !errors.Is(err, context.DeadlineExceeded) && !expired {
		return err
	}
	if c.Response().Committed {
		return nil
	}
	return echo.NewHTTPError(http.StatusGatewayTimeout, "request processing exceeded the allowed time limit").SetInternal(err)
}

package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Logger writes one line per request. Each line carries the surface the call
// came from so bedside terminal traffic can be filtered from staff tooling
// when reading ward logs.
func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			rid, _ := c.Get("request_id").(string)

			err := next(c)

			res := c.Response()
			evt := logger.Info()
			switch {
			case err != nil:
				evt = logger.Error().Err(err)
			case res.Status >= http.StatusBadRequest:
				evt = logger.Warn()
			}

			evt.
				Str("request_id", rid).
				Str("surface", surfaceFor(req.Method, req.URL.Path)).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", res.Status).
				Dur("latency", time.Since(start)).
				Str("remote_ip", c.RealIP()).
				Msg("request")

			return err
		}
	}
}

// surfaceFor buckets routes by caller: bedside terminals submit care requests,
// ward displays hold dashboard sockets, everything else is staff tooling.
func surfaceFor(method, path string) string {
	switch {
	case method == http.MethodPost && strings.HasPrefix(path, "/api/v1/requests"):
		return "bedside"
	case strings.HasPrefix(path, "/ws/"):
		return "dashboard"
	default:
		return "staff"
	}
}

package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"warehousepos/internal/common"
	"warehousepos/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// AuditMiddleware writes one structured log line per request.
type AuditMiddleware struct {
	log *logger.Logger
}

func NewAuditMiddleware(log *logger.Logger) *AuditMiddleware {
	return &AuditMiddleware{log: log}
}

// RequestContext puts the request id on the request's logger. It must run after echo's RequestID middleware.
func (m *AuditMiddleware) RequestContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Response().Header().Get(echo.HeaderXRequestID)
			if id == "" {
				id = c.Request().Header.Get(echo.HeaderXRequestID)
			}
			if id != "" {
				ctx := m.log.WithRequestID(c.Request().Context(), id)
				c.SetRequest(c.Request().WithContext(ctx))
			}
			return next(c)
		}
	}
}

// AuditRequest logs writes and failures at info or above. Successful reads and probes log at debug.
func (m *AuditMiddleware) AuditRequest() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				// let echo's error handler write the response so the status below is final
				c.Error(err)
			}

			req := c.Request()
			status := c.Response().Status
			ev := m.event(c, status)
			if ev == nil {
				return nil
			}

			ev = ev.
				Str("method", req.Method).
				Str("route", c.Path()).
				Str("path", req.URL.Path).
				Int("status", status).
				Dur("latency", time.Since(start)).
				Int64("bytes_out", c.Response().Size).
				Str("ip", c.RealIP())
			if cause := handlerError(c, err); cause != nil {
				ev = ev.Err(cause)
			}
			ev.Msg("http request")
			return nil
		}
	}
}

func (m *AuditMiddleware) event(c echo.Context, status int) *zerolog.Event {
	zl := m.log.Zerolog(c.Request().Context())
	switch {
	case status >= http.StatusInternalServerError:
		return zl.Error()
	case status >= http.StatusBadRequest:
		return zl.Warn()
	case isWrite(c.Request().Method) && !skipAudit(c.Path()):
		return zl.Info()
	default:
		return zl.Debug()
	}
}

func handlerError(c echo.Context, err error) error {
	if stored, ok := c.Get(common.ErrorContextKey).(error); ok && stored != nil {
		return stored
	}
	var he *echo.HTTPError
	if errors.As(err, &he) && he.Code < http.StatusInternalServerError {
		return nil
	}
	return err
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// skipAudit keeps high-frequency rider pings out of the info stream.
func skipAudit(route string) bool {
	return strings.HasSuffix(route, "/location")
}

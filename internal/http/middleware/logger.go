package middleware

import (
	"io"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel/trace"

	"entryapi/internal/logging"
)

// Logger logs each HTTP request as one JSON line on stdout in UTC.
func Logger() fiber.Handler {
	return LoggerWithWriter(os.Stdout, time.UTC)
}

// LoggerWithWriter logs each HTTP request as one JSON line on w.
// Fields: ts, level, msg, request_id (set by RequestID), method, path, status, latency (ms).
// trace_id is added when a sampled span is active, so register it after otelfiber.
func LoggerWithWriter(w io.Writer, loc *time.Location) fiber.Handler {
	logger := logging.Component(logging.New(w, "info", loc), "http")

	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		// Collected after the handler ran so the final status is known.
		rid, _ := c.Locals(RequestIDLocalKey).(string)
		status := c.Response().StatusCode()
		if err != nil {
			status = statusFromError(err)
		}

		args := []any{
			"request_id", rid,
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"latency", float64(time.Since(start).Microseconds()) / 1000,
		}
		if sc := trace.SpanContextFromContext(c.UserContext()); sc.IsValid() {
			args = append(args, "trace_id", sc.TraceID().String())
		}
		logger.Info("http_request", args...)

		return err
	}
}

package handler

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"entryapi/internal/apperror"
	"entryapi/internal/http/middleware"
	"entryapi/internal/logging"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(middleware.RequestIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// writeError writes a standardized JSON error response without leaking internal errors.
//
// Parameters:
// - status: HTTP status code to return
// - code: machine-readable short error code (e.g., "INVALID_ID", "NOT_FOUND", "INTERNAL_ERROR")
// - message: human-readable safe message (no internal details)
func writeError(c *fiber.Ctx, status int, code, message string) error {
	return writeErrorDetails(c, status, code, message, nil)
}

func writeErrorDetails(c *fiber.Ctx, status int, code, message string, details map[string]string) error {
	res := errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
	return c.Status(status).JSON(res)
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
// Typed service errors are rendered by kind; server-side failures are logged with their cause.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	logger = logging.Component(logger, "http")

	return func(c *fiber.Ctx, err error) error {
		var appErr *apperror.Error
		if errors.As(err, &appErr) {
			status := appErr.Kind.HTTPStatus()
			switch appErr.Kind {
			case apperror.KindValidation:
				return writeErrorDetails(c, status, "VALIDATION_ERROR", appErr.Message, appErr.Details)
			case apperror.KindNotFound:
				return writeError(c, status, "NOT_FOUND", appErr.Message)
			case apperror.KindConflict:
				return writeError(c, status, "CONFLICT", appErr.Message)
			default:
				logServerError(logger, c, status, err)
				return writeError(c, status, "INTERNAL_ERROR", "internal server error")
			}
		}

		status := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusUnauthorized:
			return writeError(c, status, "UNAUTHORIZED", "unauthorized")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		}
		if status < fiber.StatusInternalServerError {
			return writeError(c, status, "REQUEST_ERROR", fe.Message)
		}
		logServerError(logger, c, status, err)
		return writeError(c, status, "INTERNAL_ERROR", "internal server error")
	}
}

func logServerError(logger *slog.Logger, c *fiber.Ctx, status int, err error) {
	logger.Error("request failed",
		"request_id", requestIDFromCtx(c),
		"method", c.Method(),
		"path", c.Path(),
		"status", status,
		logging.KeyError, err,
	)
}

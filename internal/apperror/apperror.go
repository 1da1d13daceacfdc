// Package apperror defines the typed failures services return and the HTTP status each kind maps to.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Kind classifies a failure so the HTTP layer can pick a status without string matching.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindNotFound       Kind = "not_found"
	KindConflict       Kind = "conflict"
	KindInfrastructure Kind = "infrastructure"
)

// HTTPStatus is the response status for failures of this kind.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error is the typed failure value returned by services.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
	// Details holds per-field messages for validation failures.
	Details map[string]string
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Wrap builds an Error of the given kind around cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

func Infrastructure(message string, cause error) *Error {
	return &Error{Kind: KindInfrastructure, Message: message, Cause: cause}
}

// KindOf returns the kind of the first *Error in err's chain.
// Errors that carry no kind are treated as infrastructure failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInfrastructure
}

// FromValidator converts validator errors into a validation Error with one detail per field.
// Any other error is wrapped as a validation failure without details.
func FromValidator(err error) *Error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return Wrap(KindValidation, "invalid payload", err)
	}

	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			details[field] = field + " is required"
		case "max":
			details[field] = field + " must be at most " + fe.Param() + " characters"
		case "min":
			details[field] = field + " must be at least " + fe.Param() + " characters"
		case "uuid", "uuid4":
			details[field] = field + " must be a valid uuid"
		default:
			details[field] = field + " is invalid"
		}
	}
	return &Error{Kind: KindValidation, Message: "validation error", Cause: err, Details: details}
}

// Package httperr shapes every failed request into the same JSON payload:
// {"error": message, "code": category, "success": false}.
package httperr

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Error categories shared across handlers.
const (
	CodeBadRequest          = "bad_request"
	CodeNotFound            = "not_found"
	CodeDuplicateLogin      = "duplicate_login"
	CodeImmutableID         = "immutable_id"
	CodeInvalidCredentials  = "invalid_credentials"
	CodeMissingHandle       = "missing_handle"
	CodeMissingInput        = "missing_input"
	CodeDeliveryFailed      = "delivery_failed"
	CodeInvalidCode         = "invalid_code"
	CodeStorageFailure      = "storage_failure"
	CodeTooManyRequests     = "too_many_requests"
	CodeConflict            = "conflict"
	CodeIdempotencyMismatch = "idempotency_key_reused"
	CodeInternal            = "internal_error"
)

// Error is an HTTP-facing failure with a machine-checkable code.
type Error struct {
	Status  int
	Code    string
	Message string
	Err     error
}

// New builds an Error without an underlying cause.
func New(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

// Wrap builds an Error that keeps err for logging and errors.Is checks.
func Wrap(err error, status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Response is the failure body.
type Response struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Success bool   `json:"success"`
}

// Handler is the fiber ErrorHandler for the application.
func Handler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status, code, message := http.StatusInternalServerError, CodeInternal, "internal server error"

		var appErr *Error
		var fiberErr *fiber.Error
		switch {
		case errors.As(err, &appErr):
			status, code, message = appErr.Status, appErr.Code, appErr.Message
		case errors.As(err, &fiberErr):
			status, code, message = fiberErr.Code, codeForStatus(fiberErr.Code), fiberErr.Message
		}

		if status >= http.StatusInternalServerError && logger != nil {
			logger.Error("request failed", slog.String("path", c.Path()), slog.Int("status", status), slog.Any("error", err))
		}
		return c.Status(status).JSON(Response{Error: message, Code: code})
	}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return CodeBadRequest
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusUnauthorized:
		return CodeInvalidCredentials
	case http.StatusConflict:
		return CodeConflict
	case http.StatusTooManyRequests:
		return CodeTooManyRequests
	}
	if status >= http.StatusInternalServerError {
		return CodeInternal
	}
	return CodeBadRequest
}

// DecodeJSON decodes the request body into v with the app's JSON decoder. An
// empty body leaves v untouched.
func DecodeJSON(c *fiber.Ctx, v any) error {
	body := c.Body()
	if len(body) == 0 {
		return nil
	}
	if err := c.App().Config().JSONDecoder(body, v); err != nil {
		return Wrap(err, http.StatusBadRequest, CodeBadRequest, "invalid JSON body")
	}
	return nil
}

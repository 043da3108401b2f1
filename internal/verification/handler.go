package verification

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/student-portal/student_portal/internal/httperr"
)

// Handler exposes the send/verify code endpoints.
type Handler struct {
	coordinator *Coordinator
}

// NewHandler constructs a verification HTTP handler.
func NewHandler(coordinator *Coordinator) *Handler {
	return &Handler{coordinator: coordinator}
}

// codeRequest accepts "telegram" as an alias of "handle" for older clients.
type codeRequest struct {
	Handle   string     `json:"handle"`
	Telegram string     `json:"telegram"`
	Code     codeString `json:"code"`
}

func (r codeRequest) handle() string {
	if r.Handle != "" {
		return r.Handle
	}
	return r.Telegram
}

// codeString decodes a code sent either as a JSON string or a JSON number.
type codeString string

func (c *codeString) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = codeString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*c = codeString(n.String())
	return nil
}

type successResponse struct {
	Success bool `json:"success"`
}

// SendCode relays a code request for the supplied handle.
func (h *Handler) SendCode(c *fiber.Ctx) error {
	var req codeRequest
	if err := httperr.DecodeJSON(c, &req); err != nil {
		return err
	}
	if err := h.coordinator.RequestCode(c.UserContext(), req.handle()); err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(successResponse{Success: true})
}

// VerifyCode relays a code check for the supplied handle and code.
func (h *Handler) VerifyCode(c *fiber.Ctx) error {
	var req codeRequest
	if err := httperr.DecodeJSON(c, &req); err != nil {
		return err
	}
	if err := h.coordinator.VerifyCode(c.UserContext(), req.handle(), string(req.Code)); err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(successResponse{Success: true})
}

func toHTTPError(err error) error {
	message := err.Error()
	var verr *Error
	if errors.As(err, &verr) {
		message = verr.Message
	}
	switch {
	case errors.Is(err, ErrMissingHandle):
		return httperr.Wrap(err, http.StatusBadRequest, httperr.CodeMissingHandle, "Telegram username is required")
	case errors.Is(err, ErrMissingInput):
		return httperr.Wrap(err, http.StatusBadRequest, httperr.CodeMissingInput, "Telegram username and code are required")
	case errors.Is(err, ErrInvalidCode):
		return httperr.Wrap(err, http.StatusBadRequest, httperr.CodeInvalidCode, message)
	case errors.Is(err, ErrDeliveryFailed):
		return httperr.Wrap(err, http.StatusBadRequest, httperr.CodeDeliveryFailed, message)
	default:
		return httperr.Wrap(err, http.StatusInternalServerError, httperr.CodeInternal, message)
	}
}

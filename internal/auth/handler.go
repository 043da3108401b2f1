package auth

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/student-portal/student_portal/internal/httperr"
)

// Handler exposes the login endpoint.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// Login validates credentials and returns the student's profile.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := httperr.DecodeJSON(c, &req); err != nil {
		return err
	}
	profile, err := h.svc.Authenticate(c.UserContext(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return httperr.Wrap(err, http.StatusUnauthorized, httperr.CodeInvalidCredentials, "Invalid credentials")
		}
		return httperr.Wrap(err, http.StatusInternalServerError, httperr.CodeStorageFailure, "Authentication failed")
	}
	return c.Status(http.StatusOK).JSON(profile)
}

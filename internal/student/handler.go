package student

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/student-portal/student_portal/internal/httperr"
)

// Handler exposes student record endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a student HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type registerRequest struct {
	Login     scalar `json:"login"`
	Password  scalar `json:"password"`
	FullName  scalar `json:"fullName"`
	Phone     scalar `json:"phone"`
	StudentID scalar `json:"studentId"`
}

type messageResponse struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
}

// List returns every stored student.
func (h *Handler) List(c *fiber.Ctx) error {
	return c.Status(http.StatusOK).JSON(h.service.List(c.UserContext()))
}

// Get returns a single student by path id.
func (h *Handler) Get(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return toHTTPError(ErrNotFound, "")
	}
	st, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return toHTTPError(err, "Failed to fetch student")
	}
	return c.Status(http.StatusOK).JSON(st)
}

// Create stores a new student from a partial body.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req Patch
	if err := httperr.DecodeJSON(c, &req); err != nil {
		return err
	}
	st, err := h.service.Create(c.UserContext(), req)
	if err != nil {
		return toHTTPError(err, "Failed to create student")
	}
	return c.Status(http.StatusCreated).JSON(st)
}

// Update merges a partial body over the stored student.
func (h *Handler) Update(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return toHTTPError(ErrNotFound, "")
	}
	var req Patch
	if err := httperr.DecodeJSON(c, &req); err != nil {
		return err
	}
	st, err := h.service.Update(c.UserContext(), id, req)
	if err != nil {
		return toHTTPError(err, "Failed to update student")
	}
	return c.Status(http.StatusOK).JSON(st)
}

// Delete removes a student.
func (h *Handler) Delete(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return toHTTPError(ErrNotFound, "")
	}
	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return toHTTPError(err, "Failed to delete student")
	}
	return c.Status(http.StatusOK).JSON(messageResponse{Message: "Student deleted successfully", Success: true})
}

// Register handles account sign-up. The created record is not echoed back.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := httperr.DecodeJSON(c, &req); err != nil {
		return err
	}
	_, err := h.service.Register(c.UserContext(), RegisterInput{
		Login:     string(req.Login),
		Password:  string(req.Password),
		FullName:  string(req.FullName),
		Phone:     string(req.Phone),
		StudentID: string(req.StudentID),
	})
	if err != nil {
		return toHTTPError(err, "Failed to register student")
	}
	return c.Status(http.StatusCreated).JSON(messageResponse{Message: "Registration completed successfully", Success: true})
}

func toHTTPError(err error, storageMessage string) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return httperr.Wrap(err, http.StatusNotFound, httperr.CodeNotFound, "Student not found")
	case errors.Is(err, ErrDuplicateLogin):
		return httperr.Wrap(err, http.StatusBadRequest, httperr.CodeDuplicateLogin, "Login already exists")
	case errors.Is(err, ErrImmutableID):
		return httperr.Wrap(err, http.StatusBadRequest, httperr.CodeImmutableID, "Student id cannot be changed")
	case errors.Is(err, ErrStorage):
		return httperr.Wrap(err, http.StatusInternalServerError, httperr.CodeStorageFailure, storageMessage)
	default:
		return httperr.Wrap(err, http.StatusInternalServerError, httperr.CodeInternal, storageMessage)
	}
}

package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/student-portal/student_portal/internal/student"
)

// RegisterStudentRoutes wires record CRUD under /records, the /students alias
// used by the web frontend, and registration.
func RegisterStudentRoutes(r fiber.Router, h *student.Handler) {
	for _, prefix := range []string{"/records", "/students"} {
		group := r.Group(prefix)
		group.Get("/", h.List)
		group.Get("/:id", h.Get)
		group.Post("/", h.Create)
		group.Put("/:id", h.Update)
		group.Delete("/:id", h.Delete)
	}
	r.Post("/register", h.Register)
}

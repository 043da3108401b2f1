package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/student-portal/student_portal/internal/auth"
	"github.com/student-portal/student_portal/internal/verification"
)

// RegisterAuthRoutes wires login and the verification relay endpoints.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, v *verification.Handler, loginLimiter, sendLimiter fiber.Handler) {
	r.Post("/auth", withLimiter(loginLimiter, h.Login)...)

	group := r.Group("/auth")
	group.Post("/send-code", withLimiter(sendLimiter, v.SendCode)...)
	group.Post("/send-verification-code", withLimiter(sendLimiter, v.SendCode)...)
	group.Post("/verify-code", v.VerifyCode)
}

func withLimiter(limiter, h fiber.Handler) []fiber.Handler {
	if limiter == nil {
		return []fiber.Handler{h}
	}
	return []fiber.Handler{limiter, h}
}

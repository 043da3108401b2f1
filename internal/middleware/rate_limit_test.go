package middleware

import (
	"net/http/httptest"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/student-portal/student_portal/internal/httperr"
	"github.com/student-portal/student_portal/internal/logging"
)

func newRateLimitedApp(cache *redis.Client, limit int) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: httperr.Handler(logging.Discard())})
	app.Post("/auth", RateLimit(cache, "auth", limit, BodyField("login")), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func login(t *testing.T, app *fiber.App, body string) int {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/auth", strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

func TestRateLimitPerKey(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()
	app := newRateLimitedApp(cache, 2)

	for i := 0; i < 2; i++ {
		if status := login(t, app, `{"login":"ali"}`); status != fiber.StatusOK {
			t.Fatalf("attempt %d: expected 200 got %d", i+1, status)
		}
	}
	if status := login(t, app, `{"login":"ali"}`); status != fiber.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", status)
	}
	if status := login(t, app, `{"login":"vali"}`); status != fiber.StatusOK {
		t.Fatalf("other login should not be limited, got %d", status)
	}
}

func TestRateLimitWithoutRedisIsNoop(t *testing.T) {
	app := newRateLimitedApp(nil, 1)
	for i := 0; i < 3; i++ {
		if status := login(t, app, `{"login":"ali"}`); status != fiber.StatusOK {
			t.Fatalf("expected 200 got %d", status)
		}
	}
}

func TestRateLimitFailsOpen(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer cache.Close()
	app := newRateLimitedApp(cache, 1)
	mr.Close()

	for i := 0; i < 3; i++ {
		if status := login(t, app, `{"login":"ali"}`); status != fiber.StatusOK {
			t.Fatalf("expected fail-open 200 got %d", status)
		}
	}
}

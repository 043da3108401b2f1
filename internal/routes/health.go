package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// RegisterHealthRoutes adds a readiness endpoint probing storage and Redis.
func RegisterHealthRoutes(app *fiber.App, storage pinger, cache *redis.Client) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		storageStatus := "ok"
		redisStatus := "disabled"

		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := storage.Ping(ctx); err != nil {
			storageStatus = err.Error()
		}
		if cache != nil {
			redisStatus = "ok"
			if err := cache.Ping(ctx).Err(); err != nil {
				redisStatus = err.Error()
			}
		}

		status := http.StatusOK
		if storageStatus != "ok" || (redisStatus != "ok" && redisStatus != "disabled") {
			status = http.StatusServiceUnavailable
		}
		return c.Status(status).JSON(fiber.Map{
			"status":    fiber.Map{"storage": storageStatus, "redis": redisStatus},
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}

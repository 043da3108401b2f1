package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/student-portal/student_portal/internal/httperr"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	idempotencyPrefix    = "idempotency:v2:"
	inProgressMarker     = "__in_progress__"
	cacheOpTimeout       = 2 * time.Second
)

// replay is what gets stored under an idempotency key once the first request
// completes.
type replay struct {
	Fingerprint string            `json:"fingerprint"`
	Status      int               `json:"status"`
	Body        string            `json:"body"`
	Headers     map[string]string `json:"headers"`
}

// Idempotency replays the first response for unsafe requests that repeat an
// Idempotency-Key header on the same route. Reusing a key with a different
// body is rejected. Requests without the header pass through untouched, and
// 5xx responses are never stored so the client can retry them.
func Idempotency(cache *redis.Client, ttl time.Duration, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		switch strings.ToUpper(c.Method()) {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return c.Next()
		}
		key := c.Get(idempotencyKeyHeader)
		if key == "" {
			return c.Next()
		}

		cacheKey := idempotencyPrefix + c.Method() + ":" + c.Path() + ":" + key
		fingerprint := bodyFingerprint(c.Body())
		log := logger.With(slog.String("idempotency_key", key), slog.String("path", c.Path()))

		ctx, cancel := context.WithTimeout(context.Background(), cacheOpTimeout)
		defer cancel()

		if handled, err := replayStored(ctx, c, cache, cacheKey, fingerprint, log); handled || err != nil {
			return err
		}

		reserved, err := cache.SetNX(ctx, cacheKey, inProgressMarker, ttl).Result()
		if err != nil {
			log.Error("idempotency reservation failed", slog.Any("error", err))
			return httperr.Wrap(err, http.StatusInternalServerError, httperr.CodeInternal, "idempotency reservation failure")
		}
		if !reserved {
			return httperr.New(http.StatusConflict, httperr.CodeConflict, "duplicate request currently processing")
		}

		if err := c.Next(); err != nil {
			release(cache, cacheKey)
			return err
		}

		status := c.Response().StatusCode()
		if status >= http.StatusInternalServerError {
			release(cache, cacheKey)
			return nil
		}
		if err := store(cache, cacheKey, ttl, captureReplay(c, fingerprint)); err != nil {
			log.Error("failed to persist idempotent response", slog.Any("error", err))
			release(cache, cacheKey)
		}
		return nil
	}
}

// replayStored writes the cached response for cacheKey when one exists. It
// reports handled=false when the key is unseen and the request should run.
func replayStored(ctx context.Context, c *fiber.Ctx, cache *redis.Client, cacheKey, fingerprint string, log *slog.Logger) (bool, error) {
	cached, err := cache.Get(ctx, cacheKey).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		log.Error("idempotency lookup failed", slog.Any("error", err))
		return true, httperr.Wrap(err, http.StatusInternalServerError, httperr.CodeInternal, "idempotency store failure")
	}
	if cached == inProgressMarker {
		return true, httperr.New(http.StatusConflict, httperr.CodeConflict, "duplicate request currently processing")
	}

	var stored replay
	if err := json.Unmarshal([]byte(cached), &stored); err != nil {
		log.Warn("failed to decode stored idempotent response", slog.Any("error", err))
		return true, httperr.New(http.StatusConflict, httperr.CodeConflict, "duplicate request")
	}
	if stored.Fingerprint != fingerprint {
		return true, httperr.New(http.StatusUnprocessableEntity, httperr.CodeIdempotencyMismatch, "Idempotency-Key was already used with a different request body")
	}

	for header, value := range stored.Headers {
		if strings.EqualFold(header, fiber.HeaderContentLength) {
			continue
		}
		c.Set(header, value)
	}
	c.Set("Idempotent-Replayed", "true")
	return true, c.Status(stored.Status).SendString(stored.Body)
}

func captureReplay(c *fiber.Ctx, fingerprint string) replay {
	r := replay{
		Fingerprint: fingerprint,
		Status:      c.Response().StatusCode(),
		Body:        string(c.Response().Body()),
		Headers:     map[string]string{},
	}
	c.Response().Header.VisitAll(func(k, v []byte) {
		r.Headers[string(k)] = string(v)
	})
	return r
}

func store(cache *redis.Client, cacheKey string, ttl time.Duration, r replay) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), cacheOpTimeout)
	defer cancel()
	return cache.Set(ctx, cacheKey, payload, ttl).Err()
}

func release(cache *redis.Client, cacheKey string) {
	ctx, cancel := context.WithTimeout(context.Background(), cacheOpTimeout)
	defer cancel()
	cache.Del(ctx, cacheKey)
}

func bodyFingerprint(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

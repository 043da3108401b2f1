package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/student-portal/student_portal/internal/httperr"
)

// KeyFunc extracts the identity a request is throttled by. An empty result
// falls back to the client IP.
type KeyFunc func(c *fiber.Ctx) string

// RateLimit allows at most maxPerMin requests per key and minute using Redis
// counters. It is a no-op without Redis and fails open on cache errors.
func RateLimit(cache *redis.Client, prefix string, maxPerMin int, keyFn KeyFunc) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 5
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}
		id := ""
		if keyFn != nil {
			id = strings.TrimSpace(keyFn(c))
		}
		if id == "" {
			id = c.IP()
		}
		key := "rl:" + prefix + ":" + id
		cnt, err := cache.Incr(c.UserContext(), key).Result()
		if err != nil {
			return c.Next()
		}
		if cnt == 1 {
			cache.Expire(c.UserContext(), key, time.Minute)
		}
		if cnt > int64(maxPerMin) {
			if ttl, err := cache.TTL(c.UserContext(), key).Result(); err == nil && ttl > 0 {
				c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(ttl.Seconds())+1))
			}
			return httperr.New(http.StatusTooManyRequests, httperr.CodeTooManyRequests, "too many attempts, try again later")
		}
		return c.Next()
	}
}

// BodyField returns a KeyFunc reading the first non-empty string field of a
// JSON body among names.
func BodyField(names ...string) KeyFunc {
	return func(c *fiber.Ctx) string {
		var body map[string]any
		if err := c.App().Config().JSONDecoder(c.Body(), &body); err != nil {
			return ""
		}
		for _, name := range names {
			if v, ok := body[name].(string); ok && strings.TrimSpace(v) != "" {
				return v
			}
		}
		return ""
	}
}

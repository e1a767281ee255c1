package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets a default Cache-Control header on GET responses that
// did not set one themselves.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != fiber.MethodGet {
			return err
		}
		if c.GetRespHeader(fiber.HeaderCacheControl) != "" {
			return err
		}

		if ttl := cacheControlFor(c.Path(), c.Response().StatusCode()); ttl != "" {
			c.Set(fiber.HeaderCacheControl, ttl)
		}
		return err
	}
}

func cacheControlFor(path string, status int) string {
	switch {
	case path == "/metrics" || strings.HasPrefix(path, "/ws"):
		return "no-cache"
	case path == "/health" || path == "/v1/health" || path == "/v1/ready":
		return "no-cache"
	case strings.HasPrefix(path, "/docs"):
		return "public, max-age=3600"
	case status >= 400:
		return "no-store"
	case strings.HasPrefix(path, "/v1/digipin/"):
		// Successful lookups address a fixed grid.
		return immutableCache
	case strings.HasPrefix(path, "/v1/"):
		return "public, max-age=300"
	}
	return ""
}

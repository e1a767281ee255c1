package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/digipin/internal/adapters/valkey"
	"github.com/samirrijal/digipin/internal/core/usecases"
	"github.com/samirrijal/digipin/internal/pkg/config"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Digipin *usecases.DigipinService
	Agent   *usecases.AgentService

	// Optional infrastructure. Nil values are reported as "not configured".
	NATS  *nats.Conn
	Cache *valkey.Cache

	// Limiter backs the rate limiter. Nil keeps counters in process memory.
	Limiter     fiber.Storage
	RateLimit   config.RateLimitConfig
	CORSOrigins string
	Version     string
	// DocsPath is the OpenAPI document served at /docs/openapi.yaml.
	DocsPath string
}

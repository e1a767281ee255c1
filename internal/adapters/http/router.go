package http

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/digipin/internal/pkg/metrics"
)

const (
	apiVersion     = "1.0.0"
	requestTimeout = 15 * time.Second
	agentTimeout   = 60 * time.Second
)

// NewApp returns a Fiber app whose unhandled errors use the APIError envelope.
func NewApp(cfg fiber.Config) *fiber.App {
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = errorHandler
	}
	return fiber.New(cfg)
}

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	app.Use(recover.New())

	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	origins := deps.CORSOrigins
	if origins == "" {
		origins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, If-None-Match, X-Request-ID",
	}))

	// Request ID, propagated into the slog context
	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())

	// Access logs (structured HTTP request logging)
	app.Use(AccessLogMiddleware())

	// Rate limiting per IP; counters live in valkey when it is configured
	maxReq, window := deps.RateLimit.Max, time.Duration(deps.RateLimit.WindowSeconds)*time.Second
	if maxReq <= 0 {
		maxReq = 120
	}
	if window <= 0 {
		window = time.Minute
	}
	app.Use(limiter.New(limiter.Config{
		Max:        maxReq,
		Expiration: window,
		Storage:    deps.Limiter,
		Next: func(c *fiber.Ctx) bool {
			return isProbe(c.Path())
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(window.Seconds())))
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", apiVersion)
		return c.Next()
	})

	// ETag for conditional caching
	app.Use(ETagMiddleware())

	// Default Cache-Control headers
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	// REST API v1
	v1 := app.Group("/v1")
	dp := v1.Group("/digipin")
	dp.Post("/encode", timeout.NewWithContext(EncodeHandler(deps), requestTimeout))
	dp.Post("/decode", timeout.NewWithContext(DecodeHandler(deps), requestTimeout))
	dp.Post("/validate", timeout.NewWithContext(ValidateHandler(deps), requestTimeout))
	dp.Post("/distance", timeout.NewWithContext(DistanceHandler(deps), requestTimeout))
	dp.Post("/nearest", timeout.NewWithContext(NearestHandler(deps), requestTimeout))
	dp.Post("/batch/encode", timeout.NewWithContext(BatchEncodeHandler(deps), requestTimeout))
	dp.Post("/batch/decode", timeout.NewWithContext(BatchDecodeHandler(deps), requestTimeout))
	dp.Get("/:pin", timeout.NewWithContext(GetDigipinHandler(deps), requestTimeout))
	dp.Get("/:pin/geojson", timeout.NewWithContext(CellGeoJSONHandler(deps), requestTimeout))

	v1.Post("/agent/respond", timeout.NewWithContext(AgentRespondHandler(deps), agentTimeout))

	// Unversioned routes of the first release
	app.Use(DeprecationMiddleware(LegacyRoutes))
	app.Get("/health", HealthHandler(deps))
	app.Post("/api/digipin/encode", timeout.NewWithContext(EncodeHandler(deps), requestTimeout))
	app.Post("/api/digipin/decode", timeout.NewWithContext(DecodeHandler(deps), requestTimeout))
	app.Post("/api/digipin/distance", timeout.NewWithContext(LegacyDistanceHandler(deps), requestTimeout))
	app.Post("/api/digipin/nearest", timeout.NewWithContext(NearestHandler(deps), requestTimeout))
	app.Post("/api/agent/respond", timeout.NewWithContext(AgentRespondHandler(deps), agentTimeout))

	// GraphQL
	app.Post("/graphql", timeout.NewWithContext(GraphQLHandler(deps), requestTimeout))

	// API documentation (Swagger UI)
	SetupDocs(app, deps.DocsPath)

	// WebSocket
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/agent", websocket.New(AgentWebSocketHandler(deps.Agent)))
}

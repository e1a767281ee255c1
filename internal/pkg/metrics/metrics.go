package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "digipin",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "digipin",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "digipin",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Codec metrics
	CodecOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "digipin",
		Subsystem: "codec",
		Name:      "operations_total",
		Help:      "Total codec operations by outcome",
	}, []string{"op", "outcome"})

	CodecBatchSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "digipin",
		Subsystem: "codec",
		Name:      "batch_size",
		Help:      "Number of items per batch request",
		Buckets:   []float64{1, 10, 50, 100, 250, 500, 1000},
	}, []string{"op"})

	// Agent metrics
	AgentToolCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "digipin",
		Subsystem: "agent",
		Name:      "tool_calls_total",
		Help:      "Total tool invocations requested by the language model",
	}, []string{"tool", "outcome"})

	AgentTurnDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "digipin",
		Subsystem: "agent",
		Name:      "turn_duration_seconds",
		Help:      "Duration of a full agent turn including tool rounds",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"outcome"})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "digipin",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "digipin",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "digipin",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	// Responder metrics
	ResponderRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "digipin",
		Subsystem: "nats",
		Name:      "requests_total",
		Help:      "Total NATS request/reply messages handled",
	}, []string{"subject", "outcome"})
)

// Outcome labels.
const (
	OutcomeOK      = "ok"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}

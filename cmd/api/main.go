package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"

	"github.com/samirrijal/digipin/internal/adapters/gemini"
	"github.com/samirrijal/digipin/internal/adapters/http"
	natsadapter "github.com/samirrijal/digipin/internal/adapters/nats"
	"github.com/samirrijal/digipin/internal/adapters/valkey"
	"github.com/samirrijal/digipin/internal/core/ports"
	"github.com/samirrijal/digipin/internal/core/usecases"
	"github.com/samirrijal/digipin/internal/pkg/config"
	"github.com/samirrijal/digipin/internal/pkg/logging"
	"github.com/samirrijal/digipin/internal/pkg/telemetry"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load("digipin-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	deps := &http.Dependencies{
		RateLimit:   cfg.RateLimit,
		CORSOrigins: cfg.Server.CORSOrigins,
		Version:     version,
	}

	// Cache (optional): agent replies and rate limiter counters
	var replyCache ports.CacheService
	if cfg.Valkey.Addr != "" {
		cache, err := valkey.New(cfg.Valkey.Addr)
		if err != nil {
			slog.Warn("valkey unavailable", "addr", cfg.Valkey.Addr, "error", err)
		} else {
			defer cache.Close()
			replyCache = cache
			deps.Cache = cache
			deps.Limiter = valkey.NewStorage(cache, "digipin:ratelimit:")
		}
	}

	// NATS (optional): agent turn events
	var events ports.EventPublisher
	if cfg.NATS.URL != "" {
		nc, err := natsadapter.Connect(cfg.NATS.URL, "digipin-api")
		if err != nil {
			slog.Warn("nats unavailable", "url", cfg.NATS.URL, "error", err)
		} else {
			defer func() { _ = nc.Drain() }()
			deps.NATS = nc
			pub, err := natsadapter.NewPublisher(nc, cfg.NATS.SubjectPrefix)
			if err != nil {
				slog.Warn("agent turn events disabled", "error", err)
			} else {
				events = pub
			}
		}
	}

	// Language model (optional)
	var model ports.LanguageModel
	if cfg.Agent.Enabled() {
		client, err := gemini.New(gemini.Config{
			APIKey:  cfg.Agent.APIKey,
			Model:   cfg.Agent.Model,
			BaseURL: cfg.Agent.BaseURL,
			Timeout: time.Duration(cfg.Agent.TimeoutSeconds) * time.Second,
		})
		if err != nil {
			slog.Warn("agent disabled", "error", err)
		} else {
			model = client
			slog.Info("agent enabled", "model", client.Model())
		}
	} else {
		slog.Info("agent disabled: no API key configured")
	}

	// Use cases
	digipinSvc := usecases.NewDigipinService(nil)
	deps.Digipin = digipinSvc
	deps.Agent = usecases.NewAgentService(model, digipinSvc, replyCache, events, usecases.AgentOptions{
		MaxToolRounds:   cfg.Agent.MaxToolRounds,
		CacheTTLSeconds: cfg.Agent.CacheTTLSeconds,
	})

	// Fiber
	app := http.NewApp(fiber.Config{
		ReadTimeout:           time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:          time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:             cfg.Server.BodyLimit,
		AppName:               "DIGIPIN API",
		DisableStartupMessage: true,
	})
	http.SetupRoutes(app, deps)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "version", version)
		if err := app.Listen(addr); err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received, draining connections...")

		// Give in-flight requests up to 10s to complete
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

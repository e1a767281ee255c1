package main

import (
	"context"
	"log"
	"log/slog"
	"os/signal"
	"syscall"

	natsadapter "github.com/samirrijal/digipin/internal/adapters/nats"
	"github.com/samirrijal/digipin/internal/core/usecases"
	"github.com/samirrijal/digipin/internal/pkg/config"
	"github.com/samirrijal/digipin/internal/pkg/logging"
	"github.com/samirrijal/digipin/internal/pkg/telemetry"
)

// The responder answers codec requests published on <prefix>.<operation>.
// Replicas share the load through a NATS queue group.
func main() {
	cfg, err := config.Load("digipin-responder")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	if cfg.NATS.URL == "" {
		log.Fatal("nats.url is required (set DIGIPIN_NATS_URL)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	nc, err := natsadapter.Connect(cfg.NATS.URL, "digipin-responder")
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer func() { _ = nc.Drain() }()

	responder := natsadapter.NewResponder(nc, usecases.NewDigipinService(nil), cfg.NATS.SubjectPrefix)
	if err := responder.Start(ctx); err != nil {
		log.Fatalf("start responder: %v", err)
	}

	<-ctx.Done()
	slog.Info("shutdown signal received, draining subscription...")
	if err := responder.Stop(); err != nil {
		slog.Error("drain subscription", "error", err)
	}
	slog.Info("responder stopped")
}

// Standalone outbox relay for deployments that scale event dispatch
// separately from the API. The claim lease keeps concurrent relay
// instances off each other's records.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	portsevents "github.com/wekeza-tech/coopcore/internal/core/ports/events"
	"github.com/wekeza-tech/coopcore/internal/core/worker"
	"github.com/wekeza-tech/coopcore/internal/platform/config"
	"github.com/wekeza-tech/coopcore/internal/platform/events"
	"github.com/wekeza-tech/coopcore/internal/repositories/database/pgsql"
	"github.com/wekeza-tech/coopcore/pkg/database"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := database.NewPgxPool(ctx, cfg.DatabaseURL, cfg.EnableDBCheck)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer dbPool.Close()

	var bus portsevents.EventBus
	if cfg.EventBus == "rabbitmq" {
		bus, err = events.NewRabbitBus(cfg.RabbitMQURL, logger)
		if err != nil {
			logger.Error("Failed to connect event bus", slog.String("error", err.Error()))
			os.Exit(1)
		}
	} else {
		// A memory bus in a standalone relay has no subscribers; this mode
		// only makes sense against a broker.
		logger.Warn("EVENT_BUS is not rabbitmq; records will dispatch to an empty in-process bus")
		bus = events.NewMemoryBus(logger)
	}
	defer bus.Close()

	repos := pgsql.NewRepositoryProvider(dbPool)

	relay, err := worker.NewRelay(cfg, repos.OutboxRepo, repos.ProcessedRepo, repos.SagaRepo, bus, logger)
	if err != nil {
		logger.Error("Failed to build outbox relay", slog.String("error", err.Error()))
		os.Exit(1)
	}

	relay.Run(ctx)
}

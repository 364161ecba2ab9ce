package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"

	portsevents "github.com/wekeza-tech/coopcore/internal/core/ports/events"
	"github.com/wekeza-tech/coopcore/internal/core/services"
	"github.com/wekeza-tech/coopcore/internal/core/worker"
	"github.com/wekeza-tech/coopcore/internal/handlers"
	"github.com/wekeza-tech/coopcore/internal/middleware"
	"github.com/wekeza-tech/coopcore/internal/platform/config"
	"github.com/wekeza-tech/coopcore/internal/platform/events"
	"github.com/wekeza-tech/coopcore/internal/repositories/database/pgsql"
	"github.com/wekeza-tech/coopcore/pkg/database"
)

// @title CoopCore API
// @version 1.0
// @description Cooperative finance ledger core: members, accounts, double-entry postings, loans, and workflow operations.

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @security BearerAuth
func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database connection pool (for application use)
	dbPool, err := database.NewPgxPool(ctx, cfg.DatabaseURL, cfg.EnableDBCheck)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer dbPool.Close()
	logger.Info("Database connection pool established.")

	if err := runMigrations(cfg.DatabaseURL, logger); err != nil {
		logger.Error("Failed to run migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Wire repositories and services.
	repos := pgsql.NewRepositoryProvider(dbPool)
	container, err := services.NewServiceContainer(cfg, repos)
	if err != nil {
		logger.Error("Failed to build service container", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Event bus: rabbitmq for multi-process deployments, memory otherwise.
	bus, err := newEventBus(cfg, logger)
	if err != nil {
		logger.Error("Failed to connect event bus", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer bus.Close()

	// Background workers: outbox relay, inbound consumer, deadline sweeper.
	consumer := worker.NewConsumer(bus, container.Schema, container.Saga, repos.ProcessedRepo, logger)
	if err := consumer.Start(ctx); err != nil {
		logger.Error("Failed to start event consumer", slog.String("error", err.Error()))
		os.Exit(1)
	}

	relay, err := worker.NewRelay(cfg, repos.OutboxRepo, repos.ProcessedRepo, repos.SagaRepo, bus, logger)
	if err != nil {
		logger.Error("Failed to build outbox relay", slog.String("error", err.Error()))
		os.Exit(1)
	}
	go relay.Run(ctx)

	sweeper := worker.NewSweeper(cfg, container.Saga, logger)
	go sweeper.Run(ctx)

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware (logging, recovery)
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery())

	if err := r.SetTrustedProxies(nil); err != nil {
		logger.Error("Failed to set trusted proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := handlers.RegisterRoutes(r, cfg, container, dbPool); err != nil {
		logger.Error("Failed to register routes", slog.String("error", err.Error()))
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		logger.Info("Server starting", slog.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed to run", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", slog.String("error", err.Error()))
	}
	logger.Info("Server stopped")
}

// newEventBus builds the configured bus adapter.
func newEventBus(cfg *config.Config, logger *slog.Logger) (portsevents.EventBus, error) {
	if cfg.EventBus == "rabbitmq" {
		return events.NewRabbitBus(cfg.RabbitMQURL, logger)
	}
	return events.NewMemoryBus(logger), nil
}

// runMigrations applies all pending "up" migrations before the server takes
// traffic. A separate database/sql connection is used because golang-migrate
// drives the stdlib interface, not pgx pools.
func runMigrations(databaseURL string, logger *slog.Logger) error {
	logger.Info("Running database migrations...")

	migrationDB, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := migrationDB.Close(); cerr != nil {
			logger.Error("Error closing migration DB connection", slog.String("error", cerr.Error()))
		}
	}()

	if err := migrationDB.Ping(); err != nil {
		return err
	}

	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithDatabaseInstance("file://migrations", "postgres", driver)
	if err != nil {
		return err
	}

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	sourceErr, dbErr := m.Close()
	if sourceErr != nil {
		return sourceErr
	}
	if dbErr != nil {
		return dbErr
	}

	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("No new migrations to apply.")
	} else {
		logger.Info("Database migrations applied successfully.")
	}
	return nil
}

package worker

import (
	"context"
	"log/slog"
	"time"

	portssvc "github.com/wekeza-tech/coopcore/internal/core/ports/services"
	"github.com/wekeza-tech/coopcore/internal/middleware"
	"github.com/wekeza-tech/coopcore/internal/platform/config"
)

// Sweeper periodically fails workflow instances whose deadline passed without
// the event they were waiting for. The sweep is what guarantees no instance
// waits forever; everything else about timeouts hangs off it.
type Sweeper struct {
	sagaSvc   portssvc.SagaCoordinatorSvc
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

// NewSweeper creates the workflow deadline sweeper.
func NewSweeper(cfg *config.Config, sagaSvc portssvc.SagaCoordinatorSvc, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		sagaSvc:   sagaSvc,
		logger:    logger,
		interval:  cfg.SagaSweepInterval,
		batchSize: cfg.SagaSweepBatchSize,
	}
}

// Run loops sweep cycles until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info("Workflow deadline sweeper started", slog.Duration("interval", s.interval))
	defer s.logger.Info("Workflow deadline sweeper stopped")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	ctx = middleware.WithLogger(ctx, s.logger)

	swept, err := s.sagaSvc.SweepExpired(ctx, time.Now().UTC(), s.batchSize)
	if err != nil {
		s.logger.Error("Deadline sweep failed", slog.String("error", err.Error()))
		return
	}
	if swept > 0 {
		s.logger.Info("Expired workflow instances swept", slog.Int("count", swept))
	}
}

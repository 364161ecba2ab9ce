package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/wekeza-tech/coopcore/internal/apperrors"
	"github.com/wekeza-tech/coopcore/internal/core/domain"
	portsrepo "github.com/wekeza-tech/coopcore/internal/core/ports/repositories"
	portssvc "github.com/wekeza-tech/coopcore/internal/core/ports/services"
	"github.com/wekeza-tech/coopcore/internal/middleware"
)

const defaultAdminListLimit = 50

// outboxAdminService is the operator surface over stuck messages: dead-lettered
// outbox records and quarantined payloads.
type outboxAdminService struct {
	outboxRepo     portsrepo.OutboxAdminSupport
	quarantineRepo portsrepo.QuarantineRepository
}

// NewOutboxAdminService creates a new OutboxAdminService.
func NewOutboxAdminService(outboxRepo portsrepo.OutboxAdminSupport, quarantineRepo portsrepo.QuarantineRepository) portssvc.OutboxAdminSvc {
	return &outboxAdminService{
		outboxRepo:     outboxRepo,
		quarantineRepo: quarantineRepo,
	}
}

// Ensure outboxAdminService implements the portssvc.OutboxAdminSvc interface
var _ portssvc.OutboxAdminSvc = (*outboxAdminService)(nil)

// ListDeadLetter retrieves dead-lettered outbox records, oldest first.
func (s *outboxAdminService) ListDeadLetter(ctx context.Context, limit int) ([]domain.OutboxRecord, error) {
	if limit <= 0 {
		limit = defaultAdminListLimit
	}
	records, err := s.outboxRepo.ListDeadLetter(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list dead-lettered records: %w", err)
	}
	return records, nil
}

// RequeueDeadLetter returns a dead-lettered record to PENDING for another
// round of dispatch attempts.
func (s *outboxAdminService) RequeueDeadLetter(ctx context.Context, recordID string) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	record, err := s.outboxRepo.FindRecordByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NewNotFoundError("outbox record " + recordID + " not found")
		}
		return fmt.Errorf("failed to find outbox record %s: %w", recordID, err)
	}
	if record.Status != domain.OutboxStatusDeadLetter {
		return apperrors.NewConflictError("outbox record " + recordID + " is " + string(record.Status) + ", only DEAD_LETTER records can be requeued")
	}

	if err := s.outboxRepo.RequeueDeadLetter(ctx, recordID); err != nil {
		return fmt.Errorf("failed to requeue outbox record %s: %w", recordID, err)
	}

	logger.Info("Dead-lettered record requeued",
		slog.String("record_id", recordID),
		slog.String("event_type", record.EventType),
		slog.String("last_error", record.LastError),
	)
	return nil
}

// ListQuarantined retrieves payloads rejected by schema validation.
func (s *outboxAdminService) ListQuarantined(ctx context.Context, limit int) ([]domain.QuarantinedEvent, error) {
	if limit <= 0 {
		limit = defaultAdminListLimit
	}
	events, err := s.quarantineRepo.ListQuarantined(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list quarantined payloads: %w", err)
	}
	return events, nil
}

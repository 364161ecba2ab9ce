package services

import (
	"context"

	"github.com/wekeza-tech/coopcore/internal/core/domain"
)

// OutboxAdminSvc is the operator surface over stuck messages. Dead-lettered
// records are never dropped; they wait here for inspection and requeue.
type OutboxAdminSvc interface {
	// ListDeadLetter retrieves dead-lettered outbox records, oldest first.
	ListDeadLetter(ctx context.Context, limit int) ([]domain.OutboxRecord, error)

	// RequeueDeadLetter returns a dead-lettered record to PENDING for another
	// round of dispatch attempts.
	RequeueDeadLetter(ctx context.Context, recordID string) error

	// ListQuarantined retrieves payloads rejected by schema validation.
	ListQuarantined(ctx context.Context, limit int) ([]domain.QuarantinedEvent, error)
}

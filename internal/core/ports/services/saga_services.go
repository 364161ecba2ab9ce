package services

import (
	"context"
	"time"

	"github.com/wekeza-tech/coopcore/internal/core/domain"
)

// SagaCoordinatorSvc drives multi-step workflows with asynchronous events.
// Concurrent handling of one correlation id is serialized by an optimistic
// version check; callers retry on ErrVersionConflict.
type SagaCoordinatorSvc interface {
	// StartWorkflow creates a workflow instance and emits its first outbound
	// command through the outbox, atomically.
	StartWorkflow(ctx context.Context, workflowType domain.WorkflowType, initialContext map[string]string, creatorUserID string) (*domain.SagaInstance, error)

	// HandleEvent applies the transition for (currentState, event.Type). Unknown
	// pairs and events for terminal instances are logged no-ops so replays and
	// out-of-order delivery stay harmless.
	HandleEvent(ctx context.Context, correlationID string, event domain.EventEnvelope) error

	// GetStatus retrieves the workflow instance.
	GetStatus(ctx context.Context, correlationID string) (*domain.SagaInstance, error)

	// SweepExpired drives instances past their deadline to the compensating
	// transition. Returns the number of instances transitioned.
	SweepExpired(ctx context.Context, now time.Time, limit int) (int, error)
}

package repositories

import (
	"context"
	"time"

	"github.com/wekeza-tech/coopcore/internal/core/domain"
)

// SagaReader defines read operations for workflow instances
type SagaReader interface {
	// FindByCorrelationID retrieves a workflow instance.
	FindByCorrelationID(ctx context.Context, correlationID string) (*domain.SagaInstance, error)

	// ListExpired retrieves non-terminal instances whose deadline passed before now,
	// oldest deadline first, skipping rows locked by a concurrent sweep.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]domain.SagaInstance, error)
}

// SagaWriter defines write operations for workflow instances. Writes that
// emit events take the outbox records so instance and events commit together.
type SagaWriter interface {
	// CreateInstance persists a new instance and its initial outbound events atomically.
	CreateInstance(ctx context.Context, instance domain.SagaInstance, records []domain.OutboxRecord) error

	// UpdateInstanceVersioned persists a transition guarded by the optimistic
	// version check: the row is updated only where version equals expectedVersion.
	// Returns apperrors.ErrVersionConflict when another writer got there first.
	UpdateInstanceVersioned(ctx context.Context, instance domain.SagaInstance, expectedVersion int64, records []domain.OutboxRecord) error

	// PurgeTerminalBefore deletes terminal instances not updated since cutoff and
	// returns the number removed.
	PurgeTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// SagaPurgeSupport is the narrow retention surface the relay's purge pass uses.
type SagaPurgeSupport interface {
	// PurgeTerminalBefore deletes terminal instances not updated since cutoff.
	PurgeTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// SagaRepositoryFacade combines all workflow-instance repository interfaces
type SagaRepositoryFacade interface {
	SagaReader
	SagaWriter
}

// SagaRepositoryWithTx extends SagaRepositoryFacade with transaction capabilities
type SagaRepositoryWithTx interface {
	SagaRepositoryFacade
	TransactionManager
}

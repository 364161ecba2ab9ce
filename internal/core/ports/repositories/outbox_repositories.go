package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/wekeza-tech/coopcore/internal/core/domain"
)

// OutboxWriter defines write operations available to committing components.
// Records are only ever created inside the transaction that commits the fact
// they describe.
type OutboxWriter interface {
	// CreateRecordsInTx inserts outbox records within a caller-owned transaction.
	CreateRecordsInTx(ctx context.Context, tx pgx.Tx, records []domain.OutboxRecord) error
}

// OutboxRelaySupport defines the operations the relay worker drives the
// record lifecycle with. Claiming uses a lease so concurrent workers never
// double-publish; expired leases are reclaimed on the next cycle.
type OutboxRelaySupport interface {
	// ClaimBatch moves up to batchSize records to PROCESSING under a lease and
	// returns them ordered by (created_at, record_id). Records whose lease has
	// expired are eligible for reclaim.
	ClaimBatch(ctx context.Context, batchSize int, lease time.Duration) ([]domain.OutboxRecord, error)

	// MarkPublished flips a record to PUBLISHED. Idempotent: re-running after a
	// crash between publish and mark is safe.
	MarkPublished(ctx context.Context, recordID string, publishedAt time.Time) error

	// MarkFailed records a failed publish attempt. The record returns to PENDING
	// for a later cycle, or moves to DEAD_LETTER once attempts reach maxAttempts.
	MarkFailed(ctx context.Context, recordID string, errMsg string, maxAttempts int) error

	// PurgePublishedBefore deletes PUBLISHED records older than cutoff and
	// returns the number removed. Retention is explicit configuration.
	PurgePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// OutboxAdminSupport defines the operator surface over dead-lettered records.
type OutboxAdminSupport interface {
	// FindRecordByID retrieves a single outbox record.
	FindRecordByID(ctx context.Context, recordID string) (*domain.OutboxRecord, error)

	// ListDeadLetter retrieves dead-lettered records, oldest first.
	ListDeadLetter(ctx context.Context, limit int) ([]domain.OutboxRecord, error)

	// RequeueDeadLetter moves a dead-lettered record back to PENDING with a
	// cleared attempt count.
	RequeueDeadLetter(ctx context.Context, recordID string) error
}

// OutboxRepositoryFacade combines all outbox repository interfaces
type OutboxRepositoryFacade interface {
	OutboxWriter
	OutboxRelaySupport
	OutboxAdminSupport
}

// OutboxRepositoryWithTx extends OutboxRepositoryFacade with transaction capabilities
type OutboxRepositoryWithTx interface {
	OutboxRepositoryFacade
	TransactionManager
}

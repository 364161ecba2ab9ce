package pgsql

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wekeza-tech/coopcore/internal/apperrors"
	"github.com/wekeza-tech/coopcore/internal/core/domain"
	portsrepo "github.com/wekeza-tech/coopcore/internal/core/ports/repositories"
	"github.com/wekeza-tech/coopcore/internal/models"
	"github.com/wekeza-tech/coopcore/internal/utils/mapping"
)

const outboxColumns = `record_id, topic, event_type, schema_version, payload, transaction_id, correlation_id, partition_key, status, attempt_count, last_error, claimed_until, created_at, published_at`

type PgxOutboxRepository struct {
	BaseRepository
}

// newPgxOutboxRepository creates a new repository for outbox records.
func newPgxOutboxRepository(pool *pgxpool.Pool) portsrepo.OutboxRepositoryWithTx {
	return &PgxOutboxRepository{BaseRepository: BaseRepository{Pool: pool}}
}

// Ensure PgxOutboxRepository implements portsrepo.OutboxRepositoryWithTx
var _ portsrepo.OutboxRepositoryWithTx = (*PgxOutboxRepository)(nil)

// scanOutboxRow scans one outbox_records row.
func scanOutboxRow(row pgx.Row) (models.OutboxRecord, error) {
	var m models.OutboxRecord
	err := row.Scan(
		&m.RecordID,
		&m.Topic,
		&m.EventType,
		&m.SchemaVersion,
		&m.Payload,
		&m.TransactionID,
		&m.CorrelationID,
		&m.PartitionKey,
		&m.Status,
		&m.AttemptCount,
		&m.LastError,
		&m.ClaimedUntil,
		&m.CreatedAt,
		&m.PublishedAt,
	)
	if err != nil {
		return models.OutboxRecord{}, err
	}
	return m, nil
}

// CreateRecordsInTx inserts outbox records within a caller-owned transaction.
// This is the only write path for new records: a record outside the
// transaction that commits its fact would break at-least-once delivery.
func (r *PgxOutboxRepository) CreateRecordsInTx(ctx context.Context, tx pgx.Tx, records []domain.OutboxRecord) error {
	if len(records) == 0 {
		return nil
	}

	query := `
		INSERT INTO outbox_records (record_id, topic, event_type, schema_version, payload, transaction_id, correlation_id, partition_key, status, attempt_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
	`

	batch := &pgx.Batch{}
	for _, record := range records {
		m := mapping.ToModelOutboxRecord(record)
		status := m.Status
		if status == "" {
			status = string(domain.OutboxStatusPending)
		}
		batch.Queue(query,
			m.RecordID,
			m.Topic,
			m.EventType,
			m.SchemaVersion,
			m.Payload,
			m.TransactionID,
			m.CorrelationID,
			m.PartitionKey,
			status,
			m.AttemptCount,
			m.CreatedAt,
		)
	}

	br := tx.SendBatch(ctx, batch)
	if err := br.Close(); err != nil {
		return apperrors.NewAppError(500, "failed to insert outbox records", err)
	}

	return nil
}

// ClaimBatch moves up to batchSize records to PROCESSING under a lease and
// returns them oldest first. PENDING records are always claimable; PROCESSING
// records only once their lease expired, which is how work abandoned by a
// crashed relay gets picked up again. SKIP LOCKED keeps concurrent relays off
// each other's rows.
func (r *PgxOutboxRepository) ClaimBatch(ctx context.Context, batchSize int, lease time.Duration) ([]domain.OutboxRecord, error) {
	if batchSize <= 0 {
		return nil, apperrors.NewValidationError("claim batch size must be positive")
	}

	now := time.Now().UTC()
	claimedUntil := now.Add(lease)

	query := `
		UPDATE outbox_records
		SET status = $1, claimed_until = $2
		WHERE record_id IN (
			SELECT record_id
			FROM outbox_records
			WHERE status = $3
			   OR (status = $1 AND claimed_until <= $4)
			ORDER BY created_at, record_id
			LIMIT $5
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + outboxColumns + `;
	`

	rows, err := r.Pool.Query(ctx, query,
		string(domain.OutboxStatusProcessing),
		claimedUntil,
		string(domain.OutboxStatusPending),
		now,
		batchSize,
	)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to claim outbox batch", err)
	}
	defer rows.Close()

	claimed := []models.OutboxRecord{}
	for rows.Next() {
		m, err := scanOutboxRow(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan claimed outbox row", err)
		}
		claimed = append(claimed, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating claimed outbox rows", err)
	}

	// RETURNING order is not guaranteed; restore dispatch order.
	records := mapping.ToDomainOutboxRecordSlice(claimed)
	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.Before(records[j].CreatedAt)
		}
		return records[i].RecordID < records[j].RecordID
	})
	return records, nil
}

// MarkPublished flips a claimed record to PUBLISHED. Idempotent: a relay that
// crashed between publish and mark may call this again after the record was
// already finalized.
func (r *PgxOutboxRepository) MarkPublished(ctx context.Context, recordID string, publishedAt time.Time) error {
	query := `
		UPDATE outbox_records
		SET status = $2, published_at = $3, claimed_until = NULL, last_error = NULL
		WHERE record_id = $1 AND status <> $2;
	`
	cmdTag, err := r.Pool.Exec(ctx, query, recordID, string(domain.OutboxStatusPublished), publishedAt)
	if err != nil {
		return apperrors.NewAppError(500, "failed to mark outbox record published: "+recordID, err)
	}

	if cmdTag.RowsAffected() == 0 {
		// Already published, or the record doesn't exist.
		if _, findErr := r.FindRecordByID(ctx, recordID); findErr != nil {
			return findErr
		}
		return nil
	}

	return nil
}

// MarkFailed records a failed publish attempt. The record returns to PENDING
// for a later relay cycle, or dead-letters once attempts reach maxAttempts.
func (r *PgxOutboxRepository) MarkFailed(ctx context.Context, recordID string, errMsg string, maxAttempts int) error {
	query := `
		UPDATE outbox_records
		SET attempt_count = attempt_count + 1,
		    last_error = $2,
		    claimed_until = NULL,
		    status = CASE WHEN attempt_count + 1 >= $3 THEN $4 ELSE $5 END
		WHERE record_id = $1 AND status = $6;
	`
	cmdTag, err := r.Pool.Exec(ctx, query,
		recordID,
		errMsg,
		maxAttempts,
		string(domain.OutboxStatusDeadLetter),
		string(domain.OutboxStatusPending),
		string(domain.OutboxStatusProcessing),
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to mark outbox record failed: "+recordID, err)
	}

	if cmdTag.RowsAffected() == 0 {
		// The record left PROCESSING some other way (lease expiry and reclaim,
		// or a concurrent publish). Nothing to record.
		if _, findErr := r.FindRecordByID(ctx, recordID); findErr != nil {
			return findErr
		}
		return nil
	}

	return nil
}

// PurgePublishedBefore deletes PUBLISHED records older than cutoff and returns
// the number removed. Unpublished and dead-lettered records are never purged.
func (r *PgxOutboxRepository) PurgePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM outbox_records
		WHERE status = $1 AND published_at < $2;
	`
	cmdTag, err := r.Pool.Exec(ctx, query, string(domain.OutboxStatusPublished), cutoff)
	if err != nil {
		return 0, apperrors.NewAppError(500, "failed to purge published outbox records", err)
	}
	return cmdTag.RowsAffected(), nil
}

// FindRecordByID retrieves a single outbox record.
func (r *PgxOutboxRepository) FindRecordByID(ctx context.Context, recordID string) (*domain.OutboxRecord, error) {
	query := `
		SELECT ` + outboxColumns + `
		FROM outbox_records
		WHERE record_id = $1;
	`
	m, err := scanOutboxRow(r.Pool.QueryRow(ctx, query, recordID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find outbox record "+recordID, err)
	}

	d := mapping.ToDomainOutboxRecord(m)
	return &d, nil
}

// ListDeadLetter retrieves dead-lettered records, oldest first.
func (r *PgxOutboxRepository) ListDeadLetter(ctx context.Context, limit int) ([]domain.OutboxRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT ` + outboxColumns + `
		FROM outbox_records
		WHERE status = $1
		ORDER BY created_at, record_id
		LIMIT $2;
	`
	rows, err := r.Pool.Query(ctx, query, string(domain.OutboxStatusDeadLetter), limit)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query dead-lettered outbox records", err)
	}
	defer rows.Close()

	deadLettered := []models.OutboxRecord{}
	for rows.Next() {
		m, err := scanOutboxRow(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan dead-lettered outbox row", err)
		}
		deadLettered = append(deadLettered, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating dead-lettered outbox rows", err)
	}

	return mapping.ToDomainOutboxRecordSlice(deadLettered), nil
}

// RequeueDeadLetter moves a dead-lettered record back to PENDING with a fresh
// attempt budget. Only operators call this, through the admin surface.
func (r *PgxOutboxRepository) RequeueDeadLetter(ctx context.Context, recordID string) error {
	query := `
		UPDATE outbox_records
		SET status = $2, attempt_count = 0, last_error = NULL, claimed_until = NULL
		WHERE record_id = $1 AND status = $3;
	`
	cmdTag, err := r.Pool.Exec(ctx, query,
		recordID,
		string(domain.OutboxStatusPending),
		string(domain.OutboxStatusDeadLetter),
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to requeue outbox record "+recordID, err)
	}

	if cmdTag.RowsAffected() == 0 {
		if _, findErr := r.FindRecordByID(ctx, recordID); findErr != nil {
			return findErr
		}
		return apperrors.NewConflictError("outbox record " + recordID + " is not dead-lettered")
	}

	return nil
}

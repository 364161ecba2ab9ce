package pgsql

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wekeza-tech/coopcore/internal/apperrors"
	"github.com/wekeza-tech/coopcore/internal/core/domain"
	portsrepo "github.com/wekeza-tech/coopcore/internal/core/ports/repositories"
	"github.com/wekeza-tech/coopcore/internal/models"
	"github.com/wekeza-tech/coopcore/internal/utils/mapping"
)

type PgxProcessedEventRepository struct {
	pool *pgxpool.Pool
}

// newPgxProcessedEventRepository creates a new repository for consumer dedup rows.
func newPgxProcessedEventRepository(pool *pgxpool.Pool) portsrepo.ProcessedEventRepository {
	return &PgxProcessedEventRepository{pool: pool}
}

// Ensure PgxProcessedEventRepository implements portsrepo.ProcessedEventRepository
var _ portsrepo.ProcessedEventRepository = (*PgxProcessedEventRepository)(nil)

// MarkProcessed records that consumerGroup handled eventID. Delivery is
// at-least-once, so duplicates are expected: the insert silently does nothing
// and the method reports false so the consumer skips its handler.
func (r *PgxProcessedEventRepository) MarkProcessed(ctx context.Context, eventID string, consumerGroup string, now time.Time) (bool, error) {
	query := `
		INSERT INTO processed_events (event_id, consumer_group, processed_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (event_id, consumer_group) DO NOTHING;
	`
	cmdTag, err := r.pool.Exec(ctx, query, eventID, consumerGroup, now)
	if err != nil {
		return false, apperrors.NewAppError(500, "failed to record processed event "+eventID, err)
	}
	return cmdTag.RowsAffected() > 0, nil
}

// PurgeProcessedBefore deletes dedup rows older than cutoff.
func (r *PgxProcessedEventRepository) PurgeProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM processed_events
		WHERE processed_at < $1;
	`
	cmdTag, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, apperrors.NewAppError(500, "failed to purge processed events", err)
	}
	return cmdTag.RowsAffected(), nil
}

type PgxQuarantineRepository struct {
	pool *pgxpool.Pool
}

// newPgxQuarantineRepository creates a new repository for quarantined payloads.
func newPgxQuarantineRepository(pool *pgxpool.Pool) portsrepo.QuarantineRepository {
	return &PgxQuarantineRepository{pool: pool}
}

// Ensure PgxQuarantineRepository implements portsrepo.QuarantineRepository
var _ portsrepo.QuarantineRepository = (*PgxQuarantineRepository)(nil)

// SaveQuarantined persists a payload that failed schema validation.
func (r *PgxQuarantineRepository) SaveQuarantined(ctx context.Context, q domain.QuarantinedEvent) error {
	m := mapping.ToModelQuarantinedEvent(q)

	query := `
		INSERT INTO quarantined_events (quarantine_id, direction, topic, event_type, schema_version, payload, violation, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
	`
	_, err := r.pool.Exec(ctx, query,
		m.QuarantineID,
		m.Direction,
		m.Topic,
		m.EventType,
		m.SchemaVersion,
		m.Payload,
		m.Violation,
		m.ReceivedAt,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to save quarantined event "+m.QuarantineID, err)
	}
	return nil
}

// ListQuarantined retrieves quarantined payloads, newest first.
func (r *PgxQuarantineRepository) ListQuarantined(ctx context.Context, limit int) ([]domain.QuarantinedEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT quarantine_id, direction, topic, event_type, schema_version, payload, violation, received_at
		FROM quarantined_events
		ORDER BY received_at DESC, quarantine_id
		LIMIT $1;
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query quarantined events", err)
	}
	defer rows.Close()

	quarantined := []models.QuarantinedEvent{}
	for rows.Next() {
		var m models.QuarantinedEvent
		err := rows.Scan(
			&m.QuarantineID,
			&m.Direction,
			&m.Topic,
			&m.EventType,
			&m.SchemaVersion,
			&m.Payload,
			&m.Violation,
			&m.ReceivedAt,
		)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan quarantined event row", err)
		}
		quarantined = append(quarantined, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating quarantined event rows", err)
	}

	return mapping.ToDomainQuarantinedEventSlice(quarantined), nil
}

package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wekeza-tech/coopcore/internal/apperrors"
	"github.com/wekeza-tech/coopcore/internal/core/domain"
	portsrepo "github.com/wekeza-tech/coopcore/internal/core/ports/repositories"
	"github.com/wekeza-tech/coopcore/internal/models"
	"github.com/wekeza-tech/coopcore/internal/utils/mapping"
)

const sagaColumns = `correlation_id, workflow_type, current_state, context, version, deadline, created_at, updated_at`

type PgxSagaRepository struct {
	BaseRepository
	outboxRepo portsrepo.OutboxWriter
}

// newPgxSagaRepository creates a new repository for workflow instances. The
// outbox repository rides along so a state transition and the events it emits
// commit in the same transaction.
func newPgxSagaRepository(pool *pgxpool.Pool, outboxRepo portsrepo.OutboxWriter) portsrepo.SagaRepositoryWithTx {
	return &PgxSagaRepository{
		BaseRepository: BaseRepository{Pool: pool},
		outboxRepo:     outboxRepo,
	}
}

// Ensure PgxSagaRepository implements portsrepo.SagaRepositoryWithTx
var _ portsrepo.SagaRepositoryWithTx = (*PgxSagaRepository)(nil)

// scanSagaRow scans one saga_instances row.
func scanSagaRow(row pgx.Row) (models.SagaInstance, error) {
	var m models.SagaInstance
	err := row.Scan(
		&m.CorrelationID,
		&m.WorkflowType,
		&m.CurrentState,
		&m.Context,
		&m.Version,
		&m.Deadline,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return models.SagaInstance{}, err
	}
	return m, nil
}

func terminalStateStrings() []string {
	states := domain.TerminalStates()
	out := make([]string, len(states))
	for i, s := range states {
		out[i] = string(s)
	}
	return out
}

// FindByCorrelationID retrieves a workflow instance.
func (r *PgxSagaRepository) FindByCorrelationID(ctx context.Context, correlationID string) (*domain.SagaInstance, error) {
	query := `
		SELECT ` + sagaColumns + `
		FROM saga_instances
		WHERE correlation_id = $1;
	`
	m, err := scanSagaRow(r.Pool.QueryRow(ctx, query, correlationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find workflow instance "+correlationID, err)
	}

	d, err := mapping.ToDomainSagaInstance(m)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to decode workflow instance "+correlationID, err)
	}
	return &d, nil
}

// ListExpired retrieves non-terminal instances whose deadline passed before
// now, oldest deadline first. The query runs in autocommit, so the row locks
// it takes release at statement end; SKIP LOCKED only trims rows another
// statement holds at read time. What serializes the sweep against concurrent
// transitions is the instance version check, not these locks.
func (r *PgxSagaRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]domain.SagaInstance, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT ` + sagaColumns + `
		FROM saga_instances
		WHERE deadline IS NOT NULL
		  AND deadline < $1
		  AND current_state <> ALL($2)
		ORDER BY deadline
		LIMIT $3
		FOR UPDATE SKIP LOCKED;
	`
	rows, err := r.Pool.Query(ctx, query, now, terminalStateStrings(), limit)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query expired workflow instances", err)
	}
	defer rows.Close()

	expired := []domain.SagaInstance{}
	for rows.Next() {
		m, err := scanSagaRow(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan expired workflow row", err)
		}
		d, err := mapping.ToDomainSagaInstance(m)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to decode expired workflow instance "+m.CorrelationID, err)
		}
		expired = append(expired, d)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating expired workflow rows", err)
	}

	return expired, nil
}

// CreateInstance persists a new instance and its initial outbound events in
// one transaction.
func (r *PgxSagaRepository) CreateInstance(ctx context.Context, instance domain.SagaInstance, records []domain.OutboxRecord) error {
	m, err := mapping.ToModelSagaInstance(instance)
	if err != nil {
		return apperrors.NewAppError(500, "failed to encode workflow instance "+instance.CorrelationID, err)
	}

	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	query := `
		INSERT INTO saga_instances (` + sagaColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
	`
	_, err = tx.Exec(ctx, query,
		m.CorrelationID,
		m.WorkflowType,
		m.CurrentState,
		m.Context,
		m.Version,
		m.Deadline,
		m.CreatedAt,
		m.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // Unique violation
			return fmt.Errorf("%w: workflow instance %s already exists", apperrors.ErrDuplicate, m.CorrelationID)
		}
		return apperrors.NewAppError(500, "failed to insert workflow instance "+m.CorrelationID, err)
	}

	if err := r.outboxRepo.CreateRecordsInTx(ctx, tx, records); err != nil {
		return apperrors.NewAppError(500, "failed to queue outbox records for workflow "+m.CorrelationID, err)
	}

	return r.Commit(ctx, tx)
}

// UpdateInstanceVersioned persists a transition guarded by the optimistic
// version check, together with the events the transition emits. The stored
// version becomes expectedVersion+1; a row whose version moved on rejects the
// write with ErrVersionConflict and no events are queued.
func (r *PgxSagaRepository) UpdateInstanceVersioned(ctx context.Context, instance domain.SagaInstance, expectedVersion int64, records []domain.OutboxRecord) error {
	m, err := mapping.ToModelSagaInstance(instance)
	if err != nil {
		return apperrors.NewAppError(500, "failed to encode workflow instance "+instance.CorrelationID, err)
	}

	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	query := `
		UPDATE saga_instances
		SET current_state = $2, context = $3, version = $4, deadline = $5, updated_at = $6
		WHERE correlation_id = $1 AND version = $7;
	`
	cmdTag, err := tx.Exec(ctx, query,
		m.CorrelationID,
		m.CurrentState,
		m.Context,
		expectedVersion+1,
		m.Deadline,
		m.UpdatedAt,
		expectedVersion,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update workflow instance "+m.CorrelationID, err)
	}

	if cmdTag.RowsAffected() == 0 {
		// Distinguish a lost race from a missing instance.
		var currentVersion int64
		checkErr := tx.QueryRow(ctx, `SELECT version FROM saga_instances WHERE correlation_id = $1;`, m.CorrelationID).Scan(&currentVersion)
		if checkErr != nil {
			if errors.Is(checkErr, pgx.ErrNoRows) {
				return apperrors.ErrNotFound
			}
			return apperrors.NewAppError(500, "failed to check workflow instance version for "+m.CorrelationID, checkErr)
		}
		return fmt.Errorf("%w: workflow %s is at version %d, expected %d", apperrors.ErrVersionConflict, m.CorrelationID, currentVersion, expectedVersion)
	}

	if err := r.outboxRepo.CreateRecordsInTx(ctx, tx, records); err != nil {
		return apperrors.NewAppError(500, "failed to queue outbox records for workflow "+m.CorrelationID, err)
	}

	return r.Commit(ctx, tx)
}

// PurgeTerminalBefore deletes terminal instances not updated since cutoff and
// returns the number removed.
func (r *PgxSagaRepository) PurgeTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM saga_instances
		WHERE updated_at < $1 AND current_state = ANY($2);
	`
	cmdTag, err := r.Pool.Exec(ctx, query, cutoff, terminalStateStrings())
	if err != nil {
		return 0, apperrors.NewAppError(500, "failed to purge terminal workflow instances", err)
	}
	return cmdTag.RowsAffected(), nil
}

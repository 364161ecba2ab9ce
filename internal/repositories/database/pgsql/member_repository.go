package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wekeza-tech/coopcore/internal/apperrors"
	"github.com/wekeza-tech/coopcore/internal/core/domain"
	portsrepo "github.com/wekeza-tech/coopcore/internal/core/ports/repositories"
	"github.com/wekeza-tech/coopcore/internal/models"
	"github.com/wekeza-tech/coopcore/internal/utils/mapping"
)

const memberColumns = `member_id, name, email, status, created_at, created_by, last_updated_at, last_updated_by`

type PgxMemberRepository struct {
	BaseRepository
	outboxRepo portsrepo.OutboxWriter
}

// newPgxMemberRepository creates a new repository for member data.
func newPgxMemberRepository(pool *pgxpool.Pool, outboxRepo portsrepo.OutboxWriter) portsrepo.MemberRepositoryFacade {
	return &PgxMemberRepository{
		BaseRepository: BaseRepository{Pool: pool},
		outboxRepo:     outboxRepo,
	}
}

// Ensure PgxMemberRepository implements portsrepo.MemberRepositoryFacade
var _ portsrepo.MemberRepositoryFacade = (*PgxMemberRepository)(nil)

// scanMemberRow scans one members row.
func scanMemberRow(row pgx.Row) (models.Member, error) {
	var m models.Member
	err := row.Scan(
		&m.MemberID,
		&m.Name,
		&m.Email,
		&m.Status,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	if err != nil {
		return models.Member{}, err
	}
	return m, nil
}

// CreateMemberWithAccount persists the member, their initial savings account,
// and the onboarding outbox records in one transaction. A member without a
// savings account cannot exist.
func (r *PgxMemberRepository) CreateMemberWithAccount(ctx context.Context, member domain.Member, account domain.Account, records []domain.OutboxRecord) error {
	m := mapping.ToModelMember(member)

	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	query := `
		INSERT INTO members (` + memberColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
	`
	_, err = tx.Exec(ctx, query,
		m.MemberID,
		m.Name,
		m.Email,
		m.Status,
		m.CreatedAt,
		m.CreatedBy,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // Unique violation
			return fmt.Errorf("%w: member with email %s already exists", apperrors.ErrDuplicate, m.Email)
		}
		return apperrors.NewAppError(500, "failed to insert member "+m.MemberID, err)
	}

	if err := insertAccount(ctx, tx, account); err != nil {
		return err
	}

	if err := r.outboxRepo.CreateRecordsInTx(ctx, tx, records); err != nil {
		return apperrors.NewAppError(500, "failed to queue outbox records for member "+m.MemberID, err)
	}

	return r.Commit(ctx, tx)
}

// FindMemberByID retrieves a member by their ID.
func (r *PgxMemberRepository) FindMemberByID(ctx context.Context, memberID string) (*domain.Member, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM members
		WHERE member_id = $1;
	`
	m, err := scanMemberRow(r.Pool.QueryRow(ctx, query, memberID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find member "+memberID, err)
	}

	d := mapping.ToDomainMember(m)
	return &d, nil
}

// FindMemberByEmail retrieves a member by their unique email.
func (r *PgxMemberRepository) FindMemberByEmail(ctx context.Context, email string) (*domain.Member, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM members
		WHERE email = $1;
	`
	m, err := scanMemberRow(r.Pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find member by email", err)
	}

	d := mapping.ToDomainMember(m)
	return &d, nil
}

// UpdateMember updates a member's name and status.
func (r *PgxMemberRepository) UpdateMember(ctx context.Context, member domain.Member) error {
	m := mapping.ToModelMember(member)

	query := `
		UPDATE members
		SET name = $2, status = $3, last_updated_at = $4, last_updated_by = $5
		WHERE member_id = $1;
	`
	cmdTag, err := r.Pool.Exec(ctx, query,
		m.MemberID,
		m.Name,
		m.Status,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update member "+m.MemberID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("member " + m.MemberID + " not found")
	}
	return nil
}

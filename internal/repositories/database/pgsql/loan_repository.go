package pgsql

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/wekeza-tech/coopcore/internal/apperrors"
	"github.com/wekeza-tech/coopcore/internal/core/domain"
	portsrepo "github.com/wekeza-tech/coopcore/internal/core/ports/repositories"
	"github.com/wekeza-tech/coopcore/internal/models"
	"github.com/wekeza-tech/coopcore/internal/utils/mapping"
)

const loanColumns = `loan_id, member_id, account_id, loan_account_id, principal, interest_rate, term_months, status, correlation_id, created_at, created_by, last_updated_at, last_updated_by`

const scheduleColumns = `schedule_id, loan_id, installment_number, due_date, principal, interest, total_due, paid_amount, penalty, status, created_at, created_by, last_updated_at, last_updated_by`

type PgxLoanRepository struct {
	BaseRepository
	accountRepo portsrepo.AccountRepositoryFacade
	txnRepo     portsrepo.TransactionRepositoryFacade
	outboxRepo  portsrepo.OutboxWriter
}

// newPgxLoanRepository creates a new repository for loans and repayment
// schedules. Disbursement and repayment writes compose the account, entry,
// and outbox repositories into one transaction.
func newPgxLoanRepository(pool *pgxpool.Pool, accountRepo portsrepo.AccountRepositoryFacade, txnRepo portsrepo.TransactionRepositoryFacade, outboxRepo portsrepo.OutboxWriter) portsrepo.LoanRepositoryWithTx {
	return &PgxLoanRepository{
		BaseRepository: BaseRepository{Pool: pool},
		accountRepo:    accountRepo,
		txnRepo:        txnRepo,
		outboxRepo:     outboxRepo,
	}
}

// Ensure PgxLoanRepository implements portsrepo.LoanRepositoryWithTx
var _ portsrepo.LoanRepositoryWithTx = (*PgxLoanRepository)(nil)

// scanLoanRow scans one loans row.
func scanLoanRow(row pgx.Row) (models.Loan, error) {
	var m models.Loan
	err := row.Scan(
		&m.LoanID,
		&m.MemberID,
		&m.AccountID,
		&m.LoanAccountID,
		&m.Principal,
		&m.InterestRate,
		&m.TermMonths,
		&m.Status,
		&m.CorrelationID,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	if err != nil {
		return models.Loan{}, err
	}
	return m, nil
}

// scanScheduleRow scans one repayment_schedules row.
func scanScheduleRow(row pgx.Row) (models.ScheduleEntry, error) {
	var m models.ScheduleEntry
	err := row.Scan(
		&m.ScheduleID,
		&m.LoanID,
		&m.InstallmentNumber,
		&m.DueDate,
		&m.Principal,
		&m.Interest,
		&m.TotalDue,
		&m.PaidAmount,
		&m.Penalty,
		&m.Status,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	if err != nil {
		return models.ScheduleEntry{}, err
	}
	return m, nil
}

// SaveLoan inserts a new loan.
func (r *PgxLoanRepository) SaveLoan(ctx context.Context, loan domain.Loan) error {
	m := mapping.ToModelLoan(loan)

	query := `
		INSERT INTO loans (` + loanColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);
	`
	_, err := r.Pool.Exec(ctx, query,
		m.LoanID,
		m.MemberID,
		m.AccountID,
		m.LoanAccountID,
		m.Principal,
		m.InterestRate,
		m.TermMonths,
		m.Status,
		m.CorrelationID,
		m.CreatedAt,
		m.CreatedBy,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // Unique violation
			return fmt.Errorf("%w: loan %s already exists", apperrors.ErrDuplicate, m.LoanID)
		}
		return apperrors.NewAppError(500, "failed to save loan "+m.LoanID, err)
	}
	return nil
}

// FindLoanByID retrieves a loan by its ID.
func (r *PgxLoanRepository) FindLoanByID(ctx context.Context, loanID string) (*domain.Loan, error) {
	query := `
		SELECT ` + loanColumns + `
		FROM loans
		WHERE loan_id = $1;
	`
	m, err := scanLoanRow(r.Pool.QueryRow(ctx, query, loanID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find loan "+loanID, err)
	}

	d := mapping.ToDomainLoan(m)
	return &d, nil
}

// FindLoanByCorrelationID retrieves the loan tied to a workflow instance.
func (r *PgxLoanRepository) FindLoanByCorrelationID(ctx context.Context, correlationID string) (*domain.Loan, error) {
	query := `
		SELECT ` + loanColumns + `
		FROM loans
		WHERE correlation_id = $1;
	`
	m, err := scanLoanRow(r.Pool.QueryRow(ctx, query, correlationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find loan for workflow "+correlationID, err)
	}

	d := mapping.ToDomainLoan(m)
	return &d, nil
}

// ListScheduleByLoanID retrieves the repayment schedule ordered by installment number.
func (r *PgxLoanRepository) ListScheduleByLoanID(ctx context.Context, loanID string) ([]domain.ScheduleEntry, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM repayment_schedules
		WHERE loan_id = $1
		ORDER BY installment_number;
	`
	rows, err := r.Pool.Query(ctx, query, loanID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query schedule for loan "+loanID, err)
	}
	defer rows.Close()

	entries := []models.ScheduleEntry{}
	for rows.Next() {
		m, err := scanScheduleRow(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan schedule row for loan "+loanID, err)
		}
		entries = append(entries, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating schedule rows for loan "+loanID, err)
	}

	return mapping.ToDomainScheduleSlice(entries), nil
}

// UpdateLoanStatus moves a loan through its lifecycle.
func (r *PgxLoanRepository) UpdateLoanStatus(ctx context.Context, loanID string, status domain.LoanStatus, userID string, now time.Time) error {
	query := `
		UPDATE loans
		SET status = $2, last_updated_at = $3, last_updated_by = $4
		WHERE loan_id = $1;
	`
	cmdTag, err := r.Pool.Exec(ctx, query, loanID, string(status), now, userID)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update status of loan "+loanID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("loan " + loanID + " not found")
	}
	return nil
}

// MarkDisbursed flips an APPROVED loan to DISBURSED and writes its repayment
// schedule and outbox records in one transaction. The status guard makes the
// write once-only: a replayed disbursement finds the loan already DISBURSED
// and fails with a conflict instead of writing a second schedule.
func (r *PgxLoanRepository) MarkDisbursed(ctx context.Context, loanID string, schedule []domain.ScheduleEntry, records []domain.OutboxRecord, userID string, now time.Time) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	statusQuery := `
		UPDATE loans
		SET status = $2, last_updated_at = $3, last_updated_by = $4
		WHERE loan_id = $1 AND status = $5;
	`
	cmdTag, err := tx.Exec(ctx, statusQuery,
		loanID,
		string(domain.LoanStatusDisbursed),
		now,
		userID,
		string(domain.LoanStatusApproved),
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to mark loan disbursed: "+loanID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		if _, findErr := r.FindLoanByID(ctx, loanID); findErr != nil {
			return findErr
		}
		return apperrors.NewConflictError("loan " + loanID + " is not awaiting disbursement")
	}

	scheduleQuery := `
		INSERT INTO repayment_schedules (` + scheduleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14);
	`
	batch := &pgx.Batch{}
	for _, entry := range schedule {
		m := mapping.ToModelScheduleEntry(entry)
		batch.Queue(scheduleQuery,
			m.ScheduleID,
			m.LoanID,
			m.InstallmentNumber,
			m.DueDate,
			m.Principal,
			m.Interest,
			m.TotalDue,
			m.PaidAmount,
			m.Penalty,
			m.Status,
			m.CreatedAt,
			m.CreatedBy,
			m.LastUpdatedAt,
			m.LastUpdatedBy,
		)
	}
	br := tx.SendBatch(ctx, batch)
	if err := br.Close(); err != nil {
		return apperrors.NewAppError(500, "failed to insert schedule for loan "+loanID, err)
	}

	if err := r.outboxRepo.CreateRecordsInTx(ctx, tx, records); err != nil {
		return apperrors.NewAppError(500, "failed to queue outbox records for loan "+loanID, err)
	}

	return r.Commit(ctx, tx)
}

// ApplyRepayment persists the repayment ledger entries, balance deltas,
// updated installment rows, and outbox records in one transaction.
func (r *PgxLoanRepository) ApplyRepayment(ctx context.Context, txns []domain.Transaction, balanceChanges map[string]decimal.Decimal, schedule []domain.ScheduleEntry, records []domain.OutboxRecord) error {
	if len(txns) == 0 {
		return apperrors.NewValidationError("repayment requires at least one ledger entry")
	}

	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	now := txns[0].CreatedAt
	userID := txns[0].CreatedBy

	accountIDs := make([]string, 0, len(balanceChanges))
	for accID := range balanceChanges {
		accountIDs = append(accountIDs, accID)
	}
	sort.Strings(accountIDs)

	lockedAccounts, err := r.accountRepo.FindAccountsByIDsForUpdate(ctx, tx, accountIDs)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return err
		}
		return apperrors.NewAppError(500, "failed to lock accounts for repayment", err)
	}

	// Re-check the debit against the locked balances. The service's funds
	// check ran on a read snapshot; only this check is race-free.
	for _, accID := range accountIDs {
		acc := lockedAccounts[accID]
		if !acc.IsActive() {
			return apperrors.NewConflictError("account " + accID + " is closed and cannot accept postings")
		}
		if acc.AccountType == domain.AccountTypeSavings {
			newBalance := acc.AvailableBalance.Add(balanceChanges[accID])
			if newBalance.IsNegative() {
				return apperrors.NewAppError(422, "insufficient funds in account "+accID, apperrors.ErrInsufficientFunds)
			}
		}
	}

	if err := r.accountRepo.UpdateAccountBalancesInTx(ctx, tx, balanceChanges, userID, now); err != nil {
		return apperrors.NewAppError(500, "failed to update account balances for repayment", err)
	}

	if _, err := r.txnRepo.InsertTransactionsInTx(ctx, tx, txns, lockedAccounts); err != nil {
		return err
	}

	if err := r.UpdateScheduleEntriesInTx(ctx, tx, schedule); err != nil {
		return err
	}

	if err := r.outboxRepo.CreateRecordsInTx(ctx, tx, records); err != nil {
		return apperrors.NewAppError(500, "failed to queue outbox records for repayment", err)
	}

	return r.Commit(ctx, tx)
}

// UpdateScheduleEntriesInTx updates installment rows within tx.
func (r *PgxLoanRepository) UpdateScheduleEntriesInTx(ctx context.Context, tx pgx.Tx, entries []domain.ScheduleEntry) error {
	if len(entries) == 0 {
		return nil
	}

	query := `
		UPDATE repayment_schedules
		SET paid_amount = $2, penalty = $3, status = $4, last_updated_at = $5, last_updated_by = $6
		WHERE schedule_id = $1;
	`
	batch := &pgx.Batch{}
	scheduleIDs := make([]string, 0, len(entries))
	for _, entry := range entries {
		m := mapping.ToModelScheduleEntry(entry)
		batch.Queue(query,
			m.ScheduleID,
			m.PaidAmount,
			m.Penalty,
			m.Status,
			m.LastUpdatedAt,
			m.LastUpdatedBy,
		)
		scheduleIDs = append(scheduleIDs, m.ScheduleID)
	}

	br := tx.SendBatch(ctx, batch)
	var batchErr error
	for i := 0; i < batch.Len(); i++ {
		ct, err := br.Exec()
		if err != nil {
			if batchErr == nil {
				batchErr = fmt.Errorf("failed to update installment %s: %w", scheduleIDs[i], err)
			}
		} else if ct.RowsAffected() == 0 {
			if batchErr == nil {
				batchErr = fmt.Errorf("%w: installment %s not found during schedule update", apperrors.ErrNotFound, scheduleIDs[i])
			}
		}
	}

	if err := br.Close(); err != nil && batchErr == nil {
		batchErr = fmt.Errorf("failed to close schedule update batch: %w", err)
	}

	return batchErr
}

package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/wekeza-tech/coopcore/internal/core/domain"
)

// LoanReader defines read operations for loans and repayment schedules
type LoanReader interface {
	// FindLoanByID retrieves a specific loan.
	FindLoanByID(ctx context.Context, loanID string) (*domain.Loan, error)

	// FindLoanByCorrelationID retrieves the loan tied to a workflow instance.
	FindLoanByCorrelationID(ctx context.Context, correlationID string) (*domain.Loan, error)

	// ListScheduleByLoanID retrieves the repayment schedule ordered by installment number.
	ListScheduleByLoanID(ctx context.Context, loanID string) ([]domain.ScheduleEntry, error)
}

// LoanWriter defines write operations for loans
type LoanWriter interface {
	// SaveLoan persists a new loan.
	SaveLoan(ctx context.Context, loan domain.Loan) error

	// UpdateLoanStatus moves a loan through its lifecycle.
	UpdateLoanStatus(ctx context.Context, loanID string, status domain.LoanStatus, userID string, now time.Time) error

	// MarkDisbursed flips the loan to DISBURSED and persists its generated
	// repayment schedule and outbox records in one transaction. The schedule is
	// written exactly once; a second call fails with a conflict.
	MarkDisbursed(ctx context.Context, loanID string, schedule []domain.ScheduleEntry, records []domain.OutboxRecord, userID string, now time.Time) error

	// ApplyRepayment persists the repayment ledger entries, balance deltas,
	// updated schedule rows, and outbox records atomically.
	ApplyRepayment(ctx context.Context, txns []domain.Transaction, balanceChanges map[string]decimal.Decimal, schedule []domain.ScheduleEntry, records []domain.OutboxRecord) error
}

// ScheduleTxSupport exposes schedule writes that join a caller-owned transaction.
type ScheduleTxSupport interface {
	// UpdateScheduleEntriesInTx updates installment rows within tx.
	UpdateScheduleEntriesInTx(ctx context.Context, tx pgx.Tx, entries []domain.ScheduleEntry) error
}

// LoanRepositoryFacade combines all loan-related repository interfaces
type LoanRepositoryFacade interface {
	LoanReader
	LoanWriter
	ScheduleTxSupport
}

// LoanRepositoryWithTx extends LoanRepositoryFacade with transaction capabilities
type LoanRepositoryWithTx interface {
	LoanRepositoryFacade
	TransactionManager
}

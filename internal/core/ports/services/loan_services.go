package services

import (
	"context"

	"github.com/wekeza-tech/coopcore/internal/core/domain"
	"github.com/wekeza-tech/coopcore/internal/dto"
)

// LoanReaderSvc defines read operations for loans
type LoanReaderSvc interface {
	// GetLoanByID retrieves a specific loan.
	GetLoanByID(ctx context.Context, loanID string) (*domain.Loan, error)

	// GetRepaymentSchedule retrieves the loan's schedule ordered by installment.
	GetRepaymentSchedule(ctx context.Context, loanID string) ([]domain.ScheduleEntry, error)
}

// LoanWriterSvc defines the member-facing loan operations.
type LoanWriterSvc interface {
	// RequestLoan records the loan and starts its origination workflow; the
	// returned loan carries the workflow correlation id.
	RequestLoan(ctx context.Context, req dto.RequestLoanRequest, creatorUserID string) (*domain.Loan, error)

	// PostRepayment debits the member's savings account, credits the loan and
	// interest accounts, and applies the payment to the oldest unpaid
	// installments, all atomically.
	PostRepayment(ctx context.Context, loanID string, req dto.PostRepaymentRequest, userID string) ([]domain.Transaction, error)
}

// LoanWorkflowSvc defines the transitions the origination workflow drives.
// These are invoked by the saga coordinator as transition side effects.
type LoanWorkflowSvc interface {
	// ApproveLoan marks the loan APPROVED.
	ApproveLoan(ctx context.Context, loanID string, userID string) error

	// RejectLoan marks the loan REJECTED.
	RejectLoan(ctx context.Context, loanID string, userID string) error

	// DisburseLoan marks the loan DISBURSED, generates its repayment schedule
	// once, and emits loan.disbursed, atomically.
	DisburseLoan(ctx context.Context, loanID string, userID string) error
}

// LoanSvcFacade combines all loan-related service interfaces
type LoanSvcFacade interface {
	LoanReaderSvc
	LoanWriterSvc
	LoanWorkflowSvc
}

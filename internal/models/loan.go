package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Loan is the persistence model for the loans table.
type Loan struct {
	LoanID        string          `db:"loan_id"`
	MemberID      string          `db:"member_id"`
	AccountID     string          `db:"account_id"`
	LoanAccountID string          `db:"loan_account_id"`
	Principal     decimal.Decimal `db:"principal"`
	InterestRate  decimal.Decimal `db:"interest_rate"`
	TermMonths    int             `db:"term_months"`
	Status        string          `db:"status"`
	CorrelationID string          `db:"correlation_id"`
	AuditFields
}

// ScheduleEntry is the persistence model for the repayment_schedules table.
type ScheduleEntry struct {
	ScheduleID        string          `db:"schedule_id"`
	LoanID            string          `db:"loan_id"`
	InstallmentNumber int             `db:"installment_number"`
	DueDate           time.Time       `db:"due_date"`
	Principal         decimal.Decimal `db:"principal"`
	Interest          decimal.Decimal `db:"interest"`
	TotalDue          decimal.Decimal `db:"total_due"`
	PaidAmount        decimal.Decimal `db:"paid_amount"`
	Penalty           decimal.Decimal `db:"penalty"`
	Status            string          `db:"status"`
	AuditFields
}

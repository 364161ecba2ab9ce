package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LoanStatus indicates where a loan stands in its lifecycle.
type LoanStatus string

const (
	LoanStatusRequested LoanStatus = "REQUESTED"
	LoanStatusApproved  LoanStatus = "APPROVED"
	LoanStatusRejected  LoanStatus = "REJECTED"
	LoanStatusDisbursed LoanStatus = "DISBURSED"
	LoanStatusClosed    LoanStatus = "CLOSED"
)

// Loan represents a member loan driven through the origination workflow.
type Loan struct {
	LoanID        string          `json:"loanID"`        // Primary Key (UUID)
	MemberID      string          `json:"memberID"`      // FK -> members.member_id
	AccountID     string          `json:"accountID"`     // Savings account receiving the disbursement
	LoanAccountID string          `json:"loanAccountID"` // Debit-normal control account carrying the outstanding principal
	Principal     decimal.Decimal `json:"principal"`
	InterestRate  decimal.Decimal `json:"interestRate"` // Annual percentage, e.g. 12.5
	TermMonths    int             `json:"termMonths"`
	Status        LoanStatus      `json:"status"`
	CorrelationID string          `json:"correlationID"` // Origination workflow instance
	AuditFields
}

// ScheduleStatus indicates the state of a repayment installment.
type ScheduleStatus string

const (
	ScheduleStatusPending ScheduleStatus = "PENDING"
	ScheduleStatusPaid    ScheduleStatus = "PAID"
	ScheduleStatusOverdue ScheduleStatus = "OVERDUE"
	ScheduleStatusWaived  ScheduleStatus = "WAIVED"
)

// ScheduleEntry is one installment of a loan's repayment schedule.
// The schedule is generated once at disbursement and mutated only by
// repayment postings; TotalDue always equals Principal plus Interest.
type ScheduleEntry struct {
	ScheduleID        string          `json:"scheduleID"` // Primary Key (UUID)
	LoanID            string          `json:"loanID"`     // FK -> loans.loan_id
	InstallmentNumber int             `json:"installmentNumber"`
	DueDate           time.Time       `json:"dueDate"`
	Principal         decimal.Decimal `json:"principal"`
	Interest          decimal.Decimal `json:"interest"`
	TotalDue          decimal.Decimal `json:"totalDue"`
	PaidAmount        decimal.Decimal `json:"paidAmount"` // Never exceeds TotalDue plus Penalty
	Penalty           decimal.Decimal `json:"penalty"`
	Status            ScheduleStatus  `json:"status"`
	AuditFields
}

// Outstanding returns the unpaid remainder of the installment.
func (s *ScheduleEntry) Outstanding() decimal.Decimal {
	return s.TotalDue.Add(s.Penalty).Sub(s.PaidAmount)
}

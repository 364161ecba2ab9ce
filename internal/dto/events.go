package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event payloads carried inside domain.EventEnvelope. Shapes here are the
// version-1 contracts registered with the schema gate; changing a field means
// registering a new schema version, not editing these in place.

// MemberOnboardedPayload announces a new member and their savings account.
type MemberOnboardedPayload struct {
	MemberID     string `json:"memberID"`
	AccountID    string `json:"accountID"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	CurrencyCode string `json:"currencyCode"`
}

// TransactionEventPayload announces a committed single-account ledger fact
// (deposit.completed, withdrawal.processed, fee.applied, interest.accrued,
// repayment.received).
type TransactionEventPayload struct {
	TransactionID   string          `json:"transactionID"`
	AccountID       string          `json:"accountID"`
	TransactionType string          `json:"transactionType"`
	EntrySide       string          `json:"entrySide"`
	Amount          decimal.Decimal `json:"amount"`
	CurrencyCode    string          `json:"currencyCode"`
	RunningBalance  decimal.Decimal `json:"runningBalance"`
	TransactionDate time.Time       `json:"transactionDate"`
	Description     string          `json:"description,omitempty"`
}

// TransferCompletedPayload announces both legs of a committed transfer.
type TransferCompletedPayload struct {
	TransferID          string          `json:"transferID"`
	DebitTransactionID  string          `json:"debitTransactionID"`
	CreditTransactionID string          `json:"creditTransactionID"`
	FromAccountID       string          `json:"fromAccountID"`
	ToAccountID         string          `json:"toAccountID"`
	Amount              decimal.Decimal `json:"amount"`
	CurrencyCode        string          `json:"currencyCode"`
}

// TransactionReversedPayload announces a reversal referencing its original.
type TransactionReversedPayload struct {
	OriginalTransactionID string          `json:"originalTransactionID"`
	ReversalTransactionID string          `json:"reversalTransactionID"`
	AccountID             string          `json:"accountID"`
	Amount                decimal.Decimal `json:"amount"`
	Reason                string          `json:"reason,omitempty"`
}

// LoanEventPayload announces loan lifecycle facts (credit_check.requested,
// approved, rejected, disbursed, cancelled).
type LoanEventPayload struct {
	LoanID       string          `json:"loanID"`
	MemberID     string          `json:"memberID"`
	AccountID    string          `json:"accountID"`
	Principal    decimal.Decimal `json:"principal"`
	InterestRate decimal.Decimal `json:"interestRate"`
	TermMonths   int             `json:"termMonths"`
	Reason       string          `json:"reason,omitempty"`
}

// CreditCheckResultPayload is the inbound verdict from the risk service
// (loan.credit_check.passed / loan.credit_check.failed).
type CreditCheckResultPayload struct {
	LoanID string `json:"loanID"`
	Score  int    `json:"score,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// RepaymentReceivedPayload announces a repayment applied to a schedule.
type RepaymentReceivedPayload struct {
	LoanID              string          `json:"loanID"`
	TransactionID       string          `json:"transactionID"`
	Amount              decimal.Decimal `json:"amount"`
	InstallmentsSettled []int           `json:"installmentsSettled,omitempty"`
}

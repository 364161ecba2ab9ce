package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntrySide indicates whether a ledger entry is a Debit or a Credit.
type EntrySide string

const (
	Debit  EntrySide = "DEBIT"
	Credit EntrySide = "CREDIT"
)

// TransactionType names the business fact a ledger entry records.
type TransactionType string

const (
	TransactionTypeDeposit      TransactionType = "DEPOSIT"
	TransactionTypeWithdrawal   TransactionType = "WITHDRAWAL"
	TransactionTypeTransfer     TransactionType = "TRANSFER"
	TransactionTypeFee          TransactionType = "FEE"
	TransactionTypeInterest     TransactionType = "INTEREST"
	TransactionTypeDisbursement TransactionType = "DISBURSEMENT"
	TransactionTypeRepayment    TransactionType = "REPAYMENT"
)

// TransactionStatus indicates the state of a ledger entry.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
	TransactionStatusReversed  TransactionStatus = "REVERSED"
)

// Transaction represents a single ledger entry against one account.
// A COMPLETED entry is immutable; corrections are recorded as new reversing
// entries that reference the original.
type Transaction struct {
	TransactionID         string            `json:"transactionID"` // Primary Key (UUID)
	AccountID             string            `json:"accountID"`     // FK -> accounts.account_id
	TransactionType       TransactionType   `json:"transactionType"`
	EntrySide             EntrySide         `json:"entrySide"`
	Amount                decimal.Decimal   `json:"amount"` // Always positive; sign comes from EntrySide
	CurrencyCode          string            `json:"currencyCode"`
	RunningBalance        decimal.Decimal   `json:"runningBalance"` // Account balance after this entry committed
	Status                TransactionStatus `json:"status"`
	TransactionDate       time.Time         `json:"transactionDate"`
	ValueDate             time.Time         `json:"valueDate"`
	TransferID            string            `json:"transferID,omitempty"`            // Groups the paired entries of a transfer
	OriginalTransactionID string            `json:"originalTransactionID,omitempty"` // Set on reversal entries
	Description           string            `json:"description,omitempty"`
	AuditFields
}

// IsReversal reports whether this entry corrects an earlier one.
func (t *Transaction) IsReversal() bool {
	return t.OriginalTransactionID != ""
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is the persistence model for the ledger_transactions table.
type Transaction struct {
	TransactionID         string          `db:"transaction_id"`
	AccountID             string          `db:"account_id"`
	TransactionType       string          `db:"transaction_type"`
	EntrySide             string          `db:"entry_side"`
	Amount                decimal.Decimal `db:"amount"`
	CurrencyCode          string          `db:"currency_code"`
	RunningBalance        decimal.Decimal `db:"running_balance"`
	Status                string          `db:"status"`
	TransactionDate       time.Time       `db:"transaction_date"`
	ValueDate             time.Time       `db:"value_date"`
	TransferID            *string         `db:"transfer_id"`             // Nullable
	OriginalTransactionID *string         `db:"original_transaction_id"` // Nullable
	Description           string          `db:"description"`
	AuditFields
}

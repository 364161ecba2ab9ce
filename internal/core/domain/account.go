package domain

import (
	"github.com/shopspring/decimal"
)

// AccountType classifies an account within the cooperative's books.
type AccountType string

const (
	AccountTypeSavings  AccountType = "SAVINGS"     // member deposits, credit-normal
	AccountTypeLoan     AccountType = "LOAN"        // outstanding loan principal, debit-normal
	AccountTypeGLCash   AccountType = "GL_CASH"     // cooperative cash position, debit-normal
	AccountTypeGLIncome AccountType = "GL_INTEREST" // interest income, credit-normal
	AccountTypeGLFees   AccountType = "GL_FEES"     // fee income, credit-normal
)

// DebitNormal reports whether debits increase the balance of this account type.
func (t AccountType) DebitNormal() bool {
	switch t {
	case AccountTypeLoan, AccountTypeGLCash:
		return true
	default:
		return false
	}
}

// AccountStatus indicates whether an account accepts postings.
type AccountStatus string

const (
	AccountStatusActive AccountStatus = "ACTIVE"
	AccountStatusClosed AccountStatus = "CLOSED" // soft-closed, rows are never deleted
)

// Account represents a financial account within the core domain.
// This is the primary representation used by services; balances are mutated
// only through ledger postings.
type Account struct {
	AccountID        string          `json:"accountID"`    // Primary Key (UUID)
	MemberID         string          `json:"memberID"`     // FK -> members.member_id; empty for GL accounts
	Name             string          `json:"name"`         // Display name
	AccountType      AccountType     `json:"accountType"`  // SAVINGS, LOAN, GL_*
	CurrencyCode     string          `json:"currencyCode"` // ISO 4217
	CurrentBalance   decimal.Decimal `json:"currentBalance"`
	AvailableBalance decimal.Decimal `json:"availableBalance"` // currentBalance minus holds; never exceeds currentBalance
	Status           AccountStatus   `json:"status"`
	AuditFields
}

// IsActive reports whether the account accepts postings.
func (a *Account) IsActive() bool {
	return a.Status == AccountStatusActive
}

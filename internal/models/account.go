package models

import (
	"github.com/shopspring/decimal"
)

// Account is the persistence model for the accounts table.
type Account struct {
	AccountID        string          `db:"account_id"`
	MemberID         string          `db:"member_id"` // Empty for GL accounts
	Name             string          `db:"name"`
	AccountType      string          `db:"account_type"`
	CurrencyCode     string          `db:"currency_code"`
	CurrentBalance   decimal.Decimal `db:"current_balance"`
	AvailableBalance decimal.Decimal `db:"available_balance"`
	Status           string          `db:"status"`
	AuditFields
}

package dto

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/wekeza-tech/coopcore/internal/core/domain"
)

// CreateAccountRequest defines the data needed to open a new account.
type CreateAccountRequest struct {
	MemberID     string             `json:"memberID" binding:"required"`
	Name         string             `json:"name" binding:"required"`
	AccountType  domain.AccountType `json:"accountType" binding:"required,oneof=SAVINGS LOAN GL_CASH GL_INTEREST GL_FEES"`
	CurrencyCode string             `json:"currencyCode" binding:"required,len=3"`
}

// AccountResponse defines the data returned for an account.
// Mirrors domain.Account.
type AccountResponse struct {
	AccountID        string             `json:"accountID"`
	MemberID         string             `json:"memberID,omitempty"`
	Name             string             `json:"name"`
	AccountType      domain.AccountType `json:"accountType"`
	CurrencyCode     string             `json:"currencyCode"`
	CurrentBalance   decimal.Decimal    `json:"currentBalance"`
	AvailableBalance decimal.Decimal    `json:"availableBalance"`
	Status           string             `json:"status"`
	CreatedAt        time.Time          `json:"createdAt"`
	CreatedBy        string             `json:"createdBy"`
	LastUpdatedAt    time.Time          `json:"lastUpdatedAt"`
	LastUpdatedBy    string             `json:"lastUpdatedBy"`
}

// ToAccountResponse converts a domain.Account to AccountResponse DTO
func ToAccountResponse(acc *domain.Account) AccountResponse {
	return AccountResponse{
		AccountID:        acc.AccountID,
		MemberID:         acc.MemberID,
		Name:             acc.Name,
		AccountType:      acc.AccountType,
		CurrencyCode:     acc.CurrencyCode,
		CurrentBalance:   acc.CurrentBalance,
		AvailableBalance: acc.AvailableBalance,
		Status:           string(acc.Status),
		CreatedAt:        acc.CreatedAt,
		CreatedBy:        acc.CreatedBy,
		LastUpdatedAt:    acc.LastUpdatedAt,
		LastUpdatedBy:    acc.LastUpdatedBy,
	}
}

// ToListAccountResponse converts a slice of domain.Account to a slice of AccountResponse DTOs
func ToListAccountResponse(accounts []domain.Account) []AccountResponse {
	res := make([]AccountResponse, len(accounts))
	for i, acc := range accounts {
		res[i] = ToAccountResponse(&acc)
	}
	return res
}

// ListAccountsResponse wraps the list of accounts.
type ListAccountsResponse struct {
	Accounts []AccountResponse `json:"accounts"`
}

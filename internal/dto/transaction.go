package dto

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/wekeza-tech/coopcore/internal/core/domain"
)

// PostTransactionRequest defines the data needed to post a ledger movement.
// With a contra account the posting commits as a balanced double-entry pair,
// the opposite side booked against the contra; without one it is a
// single-account movement.
type PostTransactionRequest struct {
	AccountID       string                 `json:"accountID" binding:"required"`
	ContraAccountID string                 `json:"contraAccountID"` // Optional opposite leg of the pair
	TransactionType domain.TransactionType `json:"transactionType" binding:"required,oneof=DEPOSIT WITHDRAWAL FEE INTEREST DISBURSEMENT"`
	Amount          decimal.Decimal        `json:"amount" binding:"required"`
	Description     string                 `json:"description"`
	ValueDate       *time.Time             `json:"valueDate"`     // Defaults to the transaction date
	CorrelationID   string                 `json:"correlationID"` // Workflow instance, when the posting is a command effect
}

// TransferRequest defines the data needed for a paired member-to-member transfer.
type TransferRequest struct {
	FromAccountID string          `json:"fromAccountID" binding:"required"`
	ToAccountID   string          `json:"toAccountID" binding:"required,nefield=FromAccountID"`
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	Description   string          `json:"description"`
}

// ReverseTransactionRequest carries the reason recorded on the reversing entry.
type ReverseTransactionRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// TransactionResponse defines the data returned for a ledger entry.
type TransactionResponse struct {
	TransactionID         string          `json:"transactionID"`
	AccountID             string          `json:"accountID"`
	TransactionType       string          `json:"transactionType"`
	EntrySide             string          `json:"entrySide"`
	Amount                decimal.Decimal `json:"amount"`
	CurrencyCode          string          `json:"currencyCode"`
	RunningBalance        decimal.Decimal `json:"runningBalance"`
	Status                string          `json:"status"`
	TransactionDate       time.Time       `json:"transactionDate"`
	ValueDate             time.Time       `json:"valueDate"`
	TransferID            string          `json:"transferID,omitempty"`
	OriginalTransactionID string          `json:"originalTransactionID,omitempty"`
	Description           string          `json:"description,omitempty"`
	CreatedAt             time.Time       `json:"createdAt"`
	CreatedBy             string          `json:"createdBy"`
}

// ToTransactionResponse converts a domain.Transaction to TransactionResponse DTO.
func ToTransactionResponse(txn *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		TransactionID:         txn.TransactionID,
		AccountID:             txn.AccountID,
		TransactionType:       string(txn.TransactionType),
		EntrySide:             string(txn.EntrySide),
		Amount:                txn.Amount,
		CurrencyCode:          txn.CurrencyCode,
		RunningBalance:        txn.RunningBalance,
		Status:                string(txn.Status),
		TransactionDate:       txn.TransactionDate,
		ValueDate:             txn.ValueDate,
		TransferID:            txn.TransferID,
		OriginalTransactionID: txn.OriginalTransactionID,
		Description:           txn.Description,
		CreatedAt:             txn.CreatedAt,
		CreatedBy:             txn.CreatedBy,
	}
}

// ToTransactionResponses converts a slice of domain.Transaction to []TransactionResponse.
func ToTransactionResponses(txns []domain.Transaction) []TransactionResponse {
	responses := make([]TransactionResponse, len(txns))
	for i, txn := range txns {
		responses[i] = ToTransactionResponse(&txn)
	}
	return responses
}

// ListTransactionsParams defines query parameters for listing an account's entries.
type ListTransactionsParams struct {
	Limit     int     `form:"limit,default=20" binding:"omitempty,min=1,max=100"`
	NextToken *string `form:"nextToken"`
}

// ListTransactionsResponse wraps a page of entries with the token for the next page.
type ListTransactionsResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	NextToken    *string               `json:"nextToken,omitempty"`
}

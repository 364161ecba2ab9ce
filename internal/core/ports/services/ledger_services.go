package services

import (
	"context"

	"github.com/wekeza-tech/coopcore/internal/core/domain"
	"github.com/wekeza-tech/coopcore/internal/dto"
)

// LedgerWriterSvc defines the posting operations. Every write commits the
// ledger entries, balance updates, and outbox records as one atomic unit.
// Failures are returned to the caller; nothing is retried internally.
type LedgerWriterSvc interface {
	// PostTransaction validates and commits a single-account posting together
	// with its double-entry GL counterpart.
	PostTransaction(ctx context.Context, req dto.PostTransactionRequest, creatorUserID string) (*domain.Transaction, error)

	// Transfer commits the paired debit and credit entries between two member
	// accounts; the signed amounts sum to zero.
	Transfer(ctx context.Context, req dto.TransferRequest, creatorUserID string) ([]domain.Transaction, error)

	// ReverseTransaction creates inverted entries referencing the original and
	// marks it REVERSED. Fails with ErrAlreadyReversed when a reversal exists.
	ReverseTransaction(ctx context.Context, transactionID string, reason string, userID string) (*domain.Transaction, error)
}

// LedgerReaderSvc defines read operations over committed ledger state
type LedgerReaderSvc interface {
	// GetTransactionByID retrieves a single committed entry.
	GetTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error)

	// ListTransactionsByAccount retrieves an account's entries, newest first,
	// with token-based pagination.
	ListTransactionsByAccount(ctx context.Context, accountID string, params dto.ListTransactionsParams) (*dto.ListTransactionsResponse, error)
}

// LedgerSvcFacade combines all ledger service interfaces
type LedgerSvcFacade interface {
	LedgerWriterSvc
	LedgerReaderSvc
}

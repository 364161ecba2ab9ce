package services

import (
	"context"

	"github.com/wekeza-tech/coopcore/internal/core/domain"
	"github.com/wekeza-tech/coopcore/internal/dto"
)

// AccountReaderSvc defines read operations for account data
type AccountReaderSvc interface {
	// GetAccountByID retrieves a specific account by its unique identifier.
	GetAccountByID(ctx context.Context, accountID string) (*domain.Account, error)

	// ListAccountsByMember retrieves all accounts owned by a member.
	ListAccountsByMember(ctx context.Context, memberID string) ([]domain.Account, error)
}

// AccountWriterSvc defines write operations for account data
type AccountWriterSvc interface {
	// CreateAccount persists a new account for a member.
	CreateAccount(ctx context.Context, req dto.CreateAccountRequest, creatorUserID string) (*domain.Account, error)

	// CloseAccount soft-closes an account. Fails with a conflict while the
	// account still carries a balance.
	CloseAccount(ctx context.Context, accountID string, userID string) error
}

// AccountSvcFacade combines all account-related service interfaces
type AccountSvcFacade interface {
	AccountReaderSvc
	AccountWriterSvc
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wekeza-tech/coopcore/internal/apperrors"
	"github.com/wekeza-tech/coopcore/internal/core/domain"
	portsrepo "github.com/wekeza-tech/coopcore/internal/core/ports/repositories"
	portssvc "github.com/wekeza-tech/coopcore/internal/core/ports/services"
	"github.com/wekeza-tech/coopcore/internal/dto"
	"github.com/wekeza-tech/coopcore/internal/middleware"
)

// accountService provides account lifecycle operations. Balances are never
// mutated here; only ledger postings move money.
type accountService struct {
	accountRepo portsrepo.AccountRepositoryFacade
	memberRepo  portsrepo.MemberReader
}

// NewAccountService creates a new AccountService.
func NewAccountService(accountRepo portsrepo.AccountRepositoryFacade, memberRepo portsrepo.MemberReader) portssvc.AccountSvcFacade {
	return &accountService{
		accountRepo: accountRepo,
		memberRepo:  memberRepo,
	}
}

// Ensure accountService implements the portssvc.AccountSvcFacade interface
var _ portssvc.AccountSvcFacade = (*accountService)(nil)

// CreateAccount persists a new account with zero balances for an existing member.
func (s *accountService) CreateAccount(ctx context.Context, req dto.CreateAccountRequest, creatorUserID string) (*domain.Account, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	member, err := s.memberRepo.FindMemberByID(ctx, req.MemberID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("member " + req.MemberID + " not found")
		}
		return nil, fmt.Errorf("failed to find member %s: %w", req.MemberID, err)
	}
	if member.Status != domain.MemberStatusActive {
		return nil, apperrors.NewConflictError("member " + req.MemberID + " is not active")
	}

	now := time.Now().UTC()
	account := domain.Account{
		AccountID:        uuid.NewString(),
		MemberID:         req.MemberID,
		Name:             req.Name,
		AccountType:      req.AccountType,
		CurrencyCode:     req.CurrencyCode,
		CurrentBalance:   decimal.Zero,
		AvailableBalance: decimal.Zero,
		Status:           domain.AccountStatusActive,
		AuditFields:      domain.NewAuditFields(creatorUserID, now),
	}

	if err := s.accountRepo.SaveAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to save account: %w", err)
	}

	logger.Info("Account created",
		slog.String("account_id", account.AccountID),
		slog.String("member_id", account.MemberID),
		slog.String("account_type", string(account.AccountType)),
	)
	return &account, nil
}

// GetAccountByID retrieves a specific account.
func (s *accountService) GetAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	account, err := s.accountRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("account " + accountID + " not found")
		}
		return nil, fmt.Errorf("failed to find account %s: %w", accountID, err)
	}
	return account, nil
}

// ListAccountsByMember retrieves all accounts owned by a member.
func (s *accountService) ListAccountsByMember(ctx context.Context, memberID string) ([]domain.Account, error) {
	accounts, err := s.accountRepo.ListAccountsByMember(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts for member %s: %w", memberID, err)
	}
	return accounts, nil
}

// CloseAccount soft-closes an account. An account still carrying a balance
// cannot be closed; the money has to move somewhere first.
func (s *accountService) CloseAccount(ctx context.Context, accountID string, userID string) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	account, err := s.accountRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NewNotFoundError("account " + accountID + " not found")
		}
		return fmt.Errorf("failed to find account %s: %w", accountID, err)
	}

	if !account.IsActive() {
		return apperrors.NewConflictError("account " + accountID + " is already closed")
	}
	if !account.CurrentBalance.IsZero() {
		return apperrors.NewConflictError("account " + accountID + " still carries a balance and cannot be closed")
	}

	if err := s.accountRepo.CloseAccount(ctx, accountID, userID, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to close account %s: %w", accountID, err)
	}

	logger.Info("Account closed", slog.String("account_id", accountID))
	return nil
}

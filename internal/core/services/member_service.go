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

// memberService handles member onboarding and lookup. Onboarding is the one
// write: member row, savings account, and the member.onboarded outbox record
// commit together.
type memberService struct {
	memberRepo portsrepo.MemberRepositoryFacade
	schemaSvc  portssvc.SchemaValidatorSvc
}

// NewMemberService creates a new MemberService.
func NewMemberService(memberRepo portsrepo.MemberRepositoryFacade, schemaSvc portssvc.SchemaValidatorSvc) portssvc.MemberSvcFacade {
	return &memberService{
		memberRepo: memberRepo,
		schemaSvc:  schemaSvc,
	}
}

// Ensure memberService implements the portssvc.MemberSvcFacade interface
var _ portssvc.MemberSvcFacade = (*memberService)(nil)

// OnboardMember creates the member, their initial savings account, and the
// member.onboarded outbox record in one transaction.
func (s *memberService) OnboardMember(ctx context.Context, req dto.OnboardMemberRequest, creatorUserID string) (*domain.Member, *domain.Account, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if existing, err := s.memberRepo.FindMemberByEmail(ctx, req.Email); err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil, fmt.Errorf("failed to check member email %s: %w", req.Email, err)
	} else if existing != nil {
		return nil, nil, apperrors.NewConflictError("a member with email " + req.Email + " already exists")
	}

	now := time.Now().UTC()
	member := domain.Member{
		MemberID:    uuid.NewString(),
		Name:        req.Name,
		Email:       req.Email,
		Status:      domain.MemberStatusActive,
		AuditFields: domain.NewAuditFields(creatorUserID, now),
	}
	account := domain.Account{
		AccountID:        uuid.NewString(),
		MemberID:         member.MemberID,
		Name:             req.Name + " savings",
		AccountType:      domain.AccountTypeSavings,
		CurrencyCode:     req.CurrencyCode,
		CurrentBalance:   decimal.Zero,
		AvailableBalance: decimal.Zero,
		Status:           domain.AccountStatusActive,
		AuditFields:      domain.NewAuditFields(creatorUserID, now),
	}

	record, err := newOutboxRecord(ctx, s.schemaSvc, domain.EventMemberOnboarded, dto.MemberOnboardedPayload{
		MemberID:     member.MemberID,
		AccountID:    account.AccountID,
		Name:         member.Name,
		Email:        member.Email,
		CurrencyCode: account.CurrencyCode,
	}, "", "", account.AccountID, now)
	if err != nil {
		return nil, nil, err
	}

	if err := s.memberRepo.CreateMemberWithAccount(ctx, member, account, []domain.OutboxRecord{record}); err != nil {
		return nil, nil, fmt.Errorf("failed to onboard member: %w", err)
	}

	logger.Info("Member onboarded",
		slog.String("member_id", member.MemberID),
		slog.String("account_id", account.AccountID),
	)
	return &member, &account, nil
}

// GetMemberByID retrieves a specific member.
func (s *memberService) GetMemberByID(ctx context.Context, memberID string) (*domain.Member, error) {
	member, err := s.memberRepo.FindMemberByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("member " + memberID + " not found")
		}
		return nil, fmt.Errorf("failed to find member %s: %w", memberID, err)
	}
	return member, nil
}

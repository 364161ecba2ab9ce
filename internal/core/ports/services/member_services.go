package services

import (
	"context"

	"github.com/wekeza-tech/coopcore/internal/core/domain"
	"github.com/wekeza-tech/coopcore/internal/dto"
)

// MemberSvcFacade defines member onboarding and lookup operations.
type MemberSvcFacade interface {
	// OnboardMember creates the member, their initial savings account, and the
	// member.onboarded outbox record in one transaction.
	OnboardMember(ctx context.Context, req dto.OnboardMemberRequest, creatorUserID string) (*domain.Member, *domain.Account, error)

	// GetMemberByID retrieves a specific member.
	GetMemberByID(ctx context.Context, memberID string) (*domain.Member, error)
}

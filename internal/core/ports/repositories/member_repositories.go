package repositories

import (
	"context"

	"github.com/wekeza-tech/coopcore/internal/core/domain"
)

// MemberReader defines read operations for member data
type MemberReader interface {
	// FindMemberByID retrieves a specific member by their unique identifier.
	FindMemberByID(ctx context.Context, memberID string) (*domain.Member, error)

	// FindMemberByEmail retrieves a member by their unique email.
	FindMemberByEmail(ctx context.Context, email string) (*domain.Member, error)
}

// MemberWriter defines write operations for member data
type MemberWriter interface {
	// CreateMemberWithAccount persists the member, their initial savings account,
	// and the onboarding outbox records in one transaction.
	CreateMemberWithAccount(ctx context.Context, member domain.Member, account domain.Account, records []domain.OutboxRecord) error

	// UpdateMember updates a member's details.
	UpdateMember(ctx context.Context, member domain.Member) error
}

// MemberRepositoryFacade combines all member-related repository interfaces
type MemberRepositoryFacade interface {
	MemberReader
	MemberWriter
}

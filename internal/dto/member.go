package dto

import (
	"time"

	"github.com/wekeza-tech/coopcore/internal/core/domain"
)

// OnboardMemberRequest defines the data needed to onboard a new member.
type OnboardMemberRequest struct {
	Name         string `json:"name" binding:"required"`
	Email        string `json:"email" binding:"required,email"`
	CurrencyCode string `json:"currencyCode" binding:"required,len=3"`
}

// MemberResponse defines the data returned for a member.
type MemberResponse struct {
	MemberID      string    `json:"memberID"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
}

// OnboardMemberResponse couples the new member with their initial savings account.
type OnboardMemberResponse struct {
	Member  MemberResponse  `json:"member"`
	Account AccountResponse `json:"account"`
}

// ToMemberResponse converts a domain.Member to MemberResponse DTO.
func ToMemberResponse(m *domain.Member) MemberResponse {
	return MemberResponse{
		MemberID:      m.MemberID,
		Name:          m.Name,
		Email:         m.Email,
		Status:        string(m.Status),
		CreatedAt:     m.CreatedAt,
		LastUpdatedAt: m.LastUpdatedAt,
	}
}

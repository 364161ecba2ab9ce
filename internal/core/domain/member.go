package domain

// MemberStatus indicates a member's standing in the cooperative.
type MemberStatus string

const (
	MemberStatusActive    MemberStatus = "ACTIVE"
	MemberStatusSuspended MemberStatus = "SUSPENDED"
	MemberStatusExited    MemberStatus = "EXITED"
)

// Member represents a cooperative member who owns accounts and loans.
type Member struct {
	MemberID string       `json:"memberID"` // Primary Key (UUID)
	Name     string       `json:"name"`
	Email    string       `json:"email"` // Unique
	Status   MemberStatus `json:"status"`
	AuditFields
}

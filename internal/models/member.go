package models

// Member is the persistence model for the members table.
type Member struct {
	MemberID string `db:"member_id"`
	Name     string `db:"name"`
	Email    string `db:"email"`
	Status   string `db:"status"`
	AuditFields
}

package mapping

import (
	"github.com/wekeza-tech/coopcore/internal/core/domain"
	"github.com/wekeza-tech/coopcore/internal/models"
)

// ToModelMember converts a domain Member to a model Member
func ToModelMember(d domain.Member) models.Member {
	return models.Member{
		MemberID:    d.MemberID,
		Name:        d.Name,
		Email:       d.Email,
		Status:      string(d.Status),
		AuditFields: ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainMember converts a model Member to a domain Member
func ToDomainMember(m models.Member) domain.Member {
	return domain.Member{
		MemberID:    m.MemberID,
		Name:        m.Name,
		Email:       m.Email,
		Status:      domain.MemberStatus(m.Status),
		AuditFields: ToDomainAuditFields(m.AuditFields),
	}
}

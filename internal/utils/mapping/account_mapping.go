package mapping

import (
	"github.com/wekeza-tech/coopcore/internal/core/domain"
	"github.com/wekeza-tech/coopcore/internal/models"
)

// ToModelAccount converts a domain Account to a model Account
func ToModelAccount(d domain.Account) models.Account {
	return models.Account{
		AccountID:        d.AccountID,
		MemberID:         d.MemberID,
		Name:             d.Name,
		AccountType:      string(d.AccountType),
		CurrencyCode:     d.CurrencyCode,
		CurrentBalance:   d.CurrentBalance,
		AvailableBalance: d.AvailableBalance,
		Status:           string(d.Status),
		AuditFields:      ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainAccount converts a model Account to a domain Account
func ToDomainAccount(m models.Account) domain.Account {
	return domain.Account{
		AccountID:        m.AccountID,
		MemberID:         m.MemberID,
		Name:             m.Name,
		AccountType:      domain.AccountType(m.AccountType),
		CurrencyCode:     m.CurrencyCode,
		CurrentBalance:   m.CurrentBalance,
		AvailableBalance: m.AvailableBalance,
		Status:           domain.AccountStatus(m.Status),
		AuditFields:      ToDomainAuditFields(m.AuditFields),
	}
}

// ToDomainAccountSlice converts a slice of model Accounts to a slice of domain Accounts
func ToDomainAccountSlice(ms []models.Account) []domain.Account {
	ds := make([]domain.Account, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainAccount(m)
	}
	return ds
}

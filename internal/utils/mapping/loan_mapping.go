package mapping

import (
	"github.com/wekeza-tech/coopcore/internal/core/domain"
	"github.com/wekeza-tech/coopcore/internal/models"
)

// ToModelLoan converts a domain Loan to a model Loan
func ToModelLoan(d domain.Loan) models.Loan {
	return models.Loan{
		LoanID:        d.LoanID,
		MemberID:      d.MemberID,
		AccountID:     d.AccountID,
		LoanAccountID: d.LoanAccountID,
		Principal:     d.Principal,
		InterestRate:  d.InterestRate,
		TermMonths:    d.TermMonths,
		Status:        string(d.Status),
		CorrelationID: d.CorrelationID,
		AuditFields:   ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainLoan converts a model Loan to a domain Loan
func ToDomainLoan(m models.Loan) domain.Loan {
	return domain.Loan{
		LoanID:        m.LoanID,
		MemberID:      m.MemberID,
		AccountID:     m.AccountID,
		LoanAccountID: m.LoanAccountID,
		Principal:     m.Principal,
		InterestRate:  m.InterestRate,
		TermMonths:    m.TermMonths,
		Status:        domain.LoanStatus(m.Status),
		CorrelationID: m.CorrelationID,
		AuditFields:   ToDomainAuditFields(m.AuditFields),
	}
}

// ToModelScheduleEntry converts a domain ScheduleEntry to a model ScheduleEntry
func ToModelScheduleEntry(d domain.ScheduleEntry) models.ScheduleEntry {
	return models.ScheduleEntry{
		ScheduleID:        d.ScheduleID,
		LoanID:            d.LoanID,
		InstallmentNumber: d.InstallmentNumber,
		DueDate:           d.DueDate,
		Principal:         d.Principal,
		Interest:          d.Interest,
		TotalDue:          d.TotalDue,
		PaidAmount:        d.PaidAmount,
		Penalty:           d.Penalty,
		Status:            string(d.Status),
		AuditFields:       ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainScheduleEntry converts a model ScheduleEntry to a domain ScheduleEntry
func ToDomainScheduleEntry(m models.ScheduleEntry) domain.ScheduleEntry {
	return domain.ScheduleEntry{
		ScheduleID:        m.ScheduleID,
		LoanID:            m.LoanID,
		InstallmentNumber: m.InstallmentNumber,
		DueDate:           m.DueDate,
		Principal:         m.Principal,
		Interest:          m.Interest,
		TotalDue:          m.TotalDue,
		PaidAmount:        m.PaidAmount,
		Penalty:           m.Penalty,
		Status:            domain.ScheduleStatus(m.Status),
		AuditFields:       ToDomainAuditFields(m.AuditFields),
	}
}

// ToDomainScheduleSlice converts model ScheduleEntries to domain ScheduleEntries
func ToDomainScheduleSlice(ms []models.ScheduleEntry) []domain.ScheduleEntry {
	ds := make([]domain.ScheduleEntry, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainScheduleEntry(m)
	}
	return ds
}

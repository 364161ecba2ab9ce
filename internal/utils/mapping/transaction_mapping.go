package mapping

import (
	"github.com/wekeza-tech/coopcore/internal/core/domain"
	"github.com/wekeza-tech/coopcore/internal/models"
)

// ToModelTransaction converts a domain Transaction to a model Transaction
func ToModelTransaction(d domain.Transaction) models.Transaction {
	m := models.Transaction{
		TransactionID:   d.TransactionID,
		AccountID:       d.AccountID,
		TransactionType: string(d.TransactionType),
		EntrySide:       string(d.EntrySide),
		Amount:          d.Amount,
		CurrencyCode:    d.CurrencyCode,
		RunningBalance:  d.RunningBalance,
		Status:          string(d.Status),
		TransactionDate: d.TransactionDate,
		ValueDate:       d.ValueDate,
		Description:     d.Description,
		AuditFields:     ToModelAuditFields(d.AuditFields),
	}
	if d.TransferID != "" {
		m.TransferID = &d.TransferID
	}
	if d.OriginalTransactionID != "" {
		m.OriginalTransactionID = &d.OriginalTransactionID
	}
	return m
}

// ToDomainTransaction converts a model Transaction to a domain Transaction
func ToDomainTransaction(m models.Transaction) domain.Transaction {
	d := domain.Transaction{
		TransactionID:   m.TransactionID,
		AccountID:       m.AccountID,
		TransactionType: domain.TransactionType(m.TransactionType),
		EntrySide:       domain.EntrySide(m.EntrySide),
		Amount:          m.Amount,
		CurrencyCode:    m.CurrencyCode,
		RunningBalance:  m.RunningBalance,
		Status:          domain.TransactionStatus(m.Status),
		TransactionDate: m.TransactionDate,
		ValueDate:       m.ValueDate,
		Description:     m.Description,
		AuditFields:     ToDomainAuditFields(m.AuditFields),
	}
	if m.TransferID != nil {
		d.TransferID = *m.TransferID
	}
	if m.OriginalTransactionID != nil {
		d.OriginalTransactionID = *m.OriginalTransactionID
	}
	return d
}

// ToDomainTransactionSlice converts a slice of model Transactions to domain Transactions
func ToDomainTransactionSlice(ms []models.Transaction) []domain.Transaction {
	ds := make([]domain.Transaction, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainTransaction(m)
	}
	return ds
}

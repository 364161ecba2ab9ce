package mapping

import (
	"github.com/wekeza-tech/coopcore/internal/core/domain"
	"github.com/wekeza-tech/coopcore/internal/models"
)

// ToModelOutboxRecord converts a domain OutboxRecord to a model OutboxRecord
func ToModelOutboxRecord(d domain.OutboxRecord) models.OutboxRecord {
	m := models.OutboxRecord{
		RecordID:      d.RecordID,
		Topic:         d.Topic,
		EventType:     d.EventType,
		SchemaVersion: d.SchemaVersion,
		Payload:       []byte(d.Payload),
		PartitionKey:  d.PartitionKey,
		Status:        string(d.Status),
		AttemptCount:  d.AttemptCount,
		ClaimedUntil:  d.ClaimedUntil,
		CreatedAt:     d.CreatedAt,
		PublishedAt:   d.PublishedAt,
	}
	if d.TransactionID != "" {
		m.TransactionID = &d.TransactionID
	}
	if d.CorrelationID != "" {
		m.CorrelationID = &d.CorrelationID
	}
	if d.LastError != "" {
		m.LastError = &d.LastError
	}
	return m
}

// ToDomainOutboxRecord converts a model OutboxRecord to a domain OutboxRecord
func ToDomainOutboxRecord(m models.OutboxRecord) domain.OutboxRecord {
	d := domain.OutboxRecord{
		RecordID:      m.RecordID,
		Topic:         m.Topic,
		EventType:     m.EventType,
		SchemaVersion: m.SchemaVersion,
		Payload:       m.Payload,
		PartitionKey:  m.PartitionKey,
		Status:        domain.OutboxStatus(m.Status),
		AttemptCount:  m.AttemptCount,
		ClaimedUntil:  m.ClaimedUntil,
		CreatedAt:     m.CreatedAt,
		PublishedAt:   m.PublishedAt,
	}
	if m.TransactionID != nil {
		d.TransactionID = *m.TransactionID
	}
	if m.CorrelationID != nil {
		d.CorrelationID = *m.CorrelationID
	}
	if m.LastError != nil {
		d.LastError = *m.LastError
	}
	return d
}

// ToDomainOutboxRecordSlice converts model OutboxRecords to domain OutboxRecords
func ToDomainOutboxRecordSlice(ms []models.OutboxRecord) []domain.OutboxRecord {
	ds := make([]domain.OutboxRecord, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainOutboxRecord(m)
	}
	return ds
}

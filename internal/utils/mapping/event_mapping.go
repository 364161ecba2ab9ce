package mapping

import (
	"github.com/wekeza-tech/coopcore/internal/core/domain"
	"github.com/wekeza-tech/coopcore/internal/models"
)

// ToModelQuarantinedEvent converts a domain QuarantinedEvent to its model
func ToModelQuarantinedEvent(d domain.QuarantinedEvent) models.QuarantinedEvent {
	return models.QuarantinedEvent{
		QuarantineID:  d.QuarantineID,
		Direction:     string(d.Direction),
		Topic:         d.Topic,
		EventType:     d.EventType,
		SchemaVersion: d.SchemaVersion,
		Payload:       []byte(d.Payload),
		Violation:     d.Violation,
		ReceivedAt:    d.ReceivedAt,
	}
}

// ToDomainQuarantinedEvent converts a model QuarantinedEvent to its domain form
func ToDomainQuarantinedEvent(m models.QuarantinedEvent) domain.QuarantinedEvent {
	return domain.QuarantinedEvent{
		QuarantineID:  m.QuarantineID,
		Direction:     domain.QuarantineDirection(m.Direction),
		Topic:         m.Topic,
		EventType:     m.EventType,
		SchemaVersion: m.SchemaVersion,
		Payload:       m.Payload,
		Violation:     m.Violation,
		ReceivedAt:    m.ReceivedAt,
	}
}

// ToDomainQuarantinedEventSlice converts model QuarantinedEvents to domain form
func ToDomainQuarantinedEventSlice(ms []models.QuarantinedEvent) []domain.QuarantinedEvent {
	ds := make([]domain.QuarantinedEvent, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainQuarantinedEvent(m)
	}
	return ds
}

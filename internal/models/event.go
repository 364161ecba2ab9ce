package models

import "time"

// ProcessedEvent is the persistence model for the processed_events dedup table.
type ProcessedEvent struct {
	EventID       string    `db:"event_id"`
	ConsumerGroup string    `db:"consumer_group"`
	ProcessedAt   time.Time `db:"processed_at"`
}

// QuarantinedEvent is the persistence model for the quarantined_events table.
type QuarantinedEvent struct {
	QuarantineID  string    `db:"quarantine_id"`
	Direction     string    `db:"direction"`
	Topic         string    `db:"topic"`
	EventType     string    `db:"event_type"`
	SchemaVersion int       `db:"schema_version"`
	Payload       []byte    `db:"payload"` // JSONB
	Violation     string    `db:"violation"`
	ReceivedAt    time.Time `db:"received_at"`
}

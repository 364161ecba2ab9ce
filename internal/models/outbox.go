package models

import "time"

// OutboxRecord is the persistence model for the outbox_records table.
type OutboxRecord struct {
	RecordID      string     `db:"record_id"`
	Topic         string     `db:"topic"`
	EventType     string     `db:"event_type"`
	SchemaVersion int        `db:"schema_version"`
	Payload       []byte     `db:"payload"` // JSONB
	TransactionID *string    `db:"transaction_id"`
	CorrelationID *string    `db:"correlation_id"`
	PartitionKey  string     `db:"partition_key"`
	Status        string     `db:"status"`
	AttemptCount  int        `db:"attempt_count"`
	LastError     *string    `db:"last_error"`
	ClaimedUntil  *time.Time `db:"claimed_until"`
	CreatedAt     time.Time  `db:"created_at"`
	PublishedAt   *time.Time `db:"published_at"`
}

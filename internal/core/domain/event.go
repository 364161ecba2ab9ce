package domain

import (
	"encoding/json"
	"time"
)

// Topics, namespaced by domain. Routing keys on the bus match the event type.
const (
	TopicMember      = "member"
	TopicTransaction = "transaction"
	TopicLoan        = "loan"
	TopicPayment     = "payment"
)

// Event types crossing the boundary. The type string doubles as the schema
// registry key together with the schema version.
const (
	EventMemberOnboarded        = "member.onboarded"
	EventDepositCompleted       = "deposit.completed"
	EventWithdrawalProcessed    = "withdrawal.processed"
	EventTransferCompleted      = "transfer.completed"
	EventFeeApplied             = "fee.applied"
	EventInterestAccrued        = "interest.accrued"
	EventTransactionReversed    = "transaction.reversed"
	EventRepaymentReceived      = "repayment.received"
	EventLoanCreditCheckRequest = "loan.credit_check.requested"
	EventLoanCreditCheckPassed  = "loan.credit_check.passed"
	EventLoanCreditCheckFailed  = "loan.credit_check.failed"
	EventLoanApproved           = "loan.approved"
	EventLoanRejected           = "loan.rejected"
	EventLoanDisbursed          = "loan.disbursed"
	EventLoanDisburseFailed     = "loan.disbursement.failed"
	EventLoanCancelRequested    = "loan.cancellation.requested"
	EventLoanCancelled          = "loan.cancelled"
)

// EventEnvelope is the wire shape of every message on the bus. ID is the
// outbox record id and the consumer dedup key; consumers must tolerate
// duplicate delivery of the same ID.
type EventEnvelope struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	SchemaVersion int             `json:"schema_version"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// TopicForEvent maps an event type to its namespace topic.
func TopicForEvent(eventType string) string {
	switch eventType {
	case EventMemberOnboarded:
		return TopicMember
	case EventDepositCompleted, EventWithdrawalProcessed, EventTransferCompleted,
		EventFeeApplied, EventInterestAccrued, EventTransactionReversed:
		return TopicTransaction
	case EventRepaymentReceived:
		return TopicPayment
	default:
		return TopicLoan
	}
}

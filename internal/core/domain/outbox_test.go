package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/wekeza-tech/coopcore/internal/core/domain"
)

func TestOutboxStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from domain.OutboxStatus
		to   domain.OutboxStatus
		want bool
	}{
		{name: "pending to processing on claim", from: domain.OutboxStatusPending, to: domain.OutboxStatusProcessing, want: true},
		{name: "pending cannot skip to published", from: domain.OutboxStatusPending, to: domain.OutboxStatusPublished, want: false},
		{name: "processing to published on confirm", from: domain.OutboxStatusProcessing, to: domain.OutboxStatusPublished, want: true},
		{name: "processing back to pending on failure", from: domain.OutboxStatusProcessing, to: domain.OutboxStatusPending, want: true},
		{name: "processing to dead letter after exhausted attempts", from: domain.OutboxStatusProcessing, to: domain.OutboxStatusDeadLetter, want: true},
		{name: "published is terminal", from: domain.OutboxStatusPublished, to: domain.OutboxStatusPending, want: false},
		{name: "dead letter requeues to pending", from: domain.OutboxStatusDeadLetter, to: domain.OutboxStatusPending, want: true},
		{name: "dead letter cannot jump to published", from: domain.OutboxStatusDeadLetter, to: domain.OutboxStatusPublished, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestOutboxStatus_IsValid(t *testing.T) {
	for _, s := range []domain.OutboxStatus{
		domain.OutboxStatusPending,
		domain.OutboxStatusProcessing,
		domain.OutboxStatusPublished,
		domain.OutboxStatusDeadLetter,
	} {
		assert.True(t, s.IsValid(), "expected %s to be valid", s)
	}
	assert.False(t, domain.OutboxStatus("ARCHIVED").IsValid())
}

func TestSagaState_IsTerminal(t *testing.T) {
	terminal := []domain.SagaState{domain.StateRejected, domain.StateDisbursed, domain.StateFailed}
	for _, s := range terminal {
		assert.True(t, s.IsTerminal(), "expected %s to be terminal", s)
	}

	open := []domain.SagaState{domain.StateSubmitted, domain.StateCreditCheckPending, domain.StateApproved}
	for _, s := range open {
		assert.False(t, s.IsTerminal(), "expected %s to be non-terminal", s)
	}
}

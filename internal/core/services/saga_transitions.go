package services

import (
	"github.com/wekeza-tech/coopcore/internal/core/domain"
)

// eventDeadlineExpired is the synthetic event type the timeout sweep feeds
// the transition table. It never travels on the bus.
const eventDeadlineExpired = "workflow.deadline.expired"

// Saga context keys. The initial facts arrive with StartWorkflow; the rest
// accumulate as events are consumed.
const (
	ctxKeyLoanID        = "loanID"
	ctxKeyMemberID      = "memberID"
	ctxKeyAccountID     = "accountID"
	ctxKeyLoanAccountID = "loanAccountID"
	ctxKeyPrincipal     = "principal"
	ctxKeyInterestRate  = "interestRate"
	ctxKeyTermMonths    = "termMonths"
	ctxKeyCreditScore   = "creditScore"
	ctxKeyFailureReason = "failureReason"
	ctxKeyDisbursedTxn  = "disbursementTransactionID"
)

// sagaEffect is a side effect a transition instructs the coordinator to run
// after the state change is committed. Effects must be idempotent: a crash
// between commit and execution is recovered by the deadline sweep, not by
// replaying the consumed event.
type sagaEffect int

const (
	effectApproveLoan sagaEffect = iota + 1
	effectRejectLoan
	effectCommandDisbursement
	effectDisburseLoan
)

// transitionResult is the outcome of the pure transition function: the next
// state, the events to emit atomically with it, and the effects to run after.
type transitionResult struct {
	NewState domain.SagaState

	// EmitEvents are written to the outbox in the same transaction as the
	// version-checked state update.
	EmitEvents []string

	// Effects run after the update commits, in order.
	Effects []sagaEffect

	// KeepDeadline renews the current deadline window for the new state.
	// Terminal states always clear it regardless.
	KeepDeadline bool
}

// loanOriginationTransition is the dispatch table for the loan origination
// workflow, keyed by (currentState, eventType). It is a pure function: no
// I/O, no clock, so every row is testable without a bus or a store. A false
// second return means the pair is unknown and the event is a no-op.
//
// States: Submitted -> CreditCheckPending -> {Approved -> {Disbursed, Failed},
// Rejected, Failed}. Rejected, Disbursed and Failed are terminal.
func loanOriginationTransition(state domain.SagaState, eventType string) (transitionResult, bool) {
	// External cancellation is a normal inbound event, valid from any
	// non-terminal state; there is no fiat abort path.
	if eventType == domain.EventLoanCancelRequested && !state.IsTerminal() {
		return transitionResult{
			NewState:   domain.StateFailed,
			EmitEvents: []string{domain.EventLoanCancelled},
			Effects:    []sagaEffect{effectRejectLoan},
		}, true
	}

	switch state {
	case domain.StateCreditCheckPending:
		switch eventType {
		case domain.EventLoanCreditCheckPassed:
			return transitionResult{
				NewState:     domain.StateApproved,
				EmitEvents:   []string{domain.EventLoanApproved},
				Effects:      []sagaEffect{effectApproveLoan, effectCommandDisbursement},
				KeepDeadline: true,
			}, true
		case domain.EventLoanCreditCheckFailed:
			return transitionResult{
				NewState:   domain.StateRejected,
				EmitEvents: []string{domain.EventLoanRejected},
				Effects:    []sagaEffect{effectRejectLoan},
			}, true
		case eventDeadlineExpired:
			return transitionResult{
				NewState:   domain.StateFailed,
				EmitEvents: []string{domain.EventLoanCancelled},
				Effects:    []sagaEffect{effectRejectLoan},
			}, true
		}

	case domain.StateApproved:
		switch eventType {
		case domain.EventDepositCompleted:
			// The disbursement posting committed; the schedule is generated and
			// loan.disbursed emitted by the disburse effect.
			return transitionResult{
				NewState: domain.StateDisbursed,
				Effects:  []sagaEffect{effectDisburseLoan},
			}, true
		case domain.EventLoanDisburseFailed, eventDeadlineExpired:
			// Compensate: the approval is withdrawn and the cancellation fact
			// published so earmarked funds downstream are released.
			return transitionResult{
				NewState:   domain.StateFailed,
				EmitEvents: []string{domain.EventLoanCancelled},
				Effects:    []sagaEffect{effectRejectLoan},
			}, true
		}

	case domain.StateSubmitted:
		if eventType == eventDeadlineExpired {
			return transitionResult{
				NewState:   domain.StateFailed,
				EmitEvents: []string{domain.EventLoanCancelled},
			}, true
		}
	}

	return transitionResult{}, false
}

// transitionFor routes to the workflow's dispatch table.
func transitionFor(workflowType domain.WorkflowType, state domain.SagaState, eventType string) (transitionResult, bool) {
	switch workflowType {
	case domain.WorkflowLoanOrigination:
		return loanOriginationTransition(state, eventType)
	default:
		return transitionResult{}, false
	}
}

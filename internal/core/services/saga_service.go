package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wekeza-tech/coopcore/internal/apperrors"
	"github.com/wekeza-tech/coopcore/internal/core/domain"
	portsrepo "github.com/wekeza-tech/coopcore/internal/core/ports/repositories"
	portssvc "github.com/wekeza-tech/coopcore/internal/core/ports/services"
	"github.com/wekeza-tech/coopcore/internal/dto"
	"github.com/wekeza-tech/coopcore/internal/middleware"
)

// systemActorID is stamped on rows written by workflow effects and sweeps,
// where no authenticated caller exists.
const systemActorID = "system"

// sagaService drives multi-step workflows with asynchronous events. The
// transition tables are pure functions; this service loads the instance,
// commits the version-checked state change together with the events it emits,
// and then runs the transition's side effects. Concurrent handling of one
// correlation id is serialized by the version check: the losing writer gets
// ErrVersionConflict and its caller retries against the fresh state.
type sagaService struct {
	sagaRepo       portsrepo.SagaRepositoryFacade
	loanSvc        portssvc.LoanWorkflowSvc
	ledgerSvc      portssvc.LedgerWriterSvc
	schemaSvc      portssvc.SchemaValidatorSvc
	defaultTimeout time.Duration
}

// NewSagaService creates a new SagaCoordinatorSvc.
func NewSagaService(
	sagaRepo portsrepo.SagaRepositoryFacade,
	loanSvc portssvc.LoanWorkflowSvc,
	ledgerSvc portssvc.LedgerWriterSvc,
	schemaSvc portssvc.SchemaValidatorSvc,
	defaultTimeout time.Duration,
) portssvc.SagaCoordinatorSvc {
	if defaultTimeout <= 0 {
		defaultTimeout = 24 * time.Hour
	}
	return &sagaService{
		sagaRepo:       sagaRepo,
		loanSvc:        loanSvc,
		ledgerSvc:      ledgerSvc,
		schemaSvc:      schemaSvc,
		defaultTimeout: defaultTimeout,
	}
}

// Ensure sagaService implements the portssvc.SagaCoordinatorSvc interface
var _ portssvc.SagaCoordinatorSvc = (*sagaService)(nil)

// StartWorkflow creates the instance and emits its first outbound command in
// one transaction. Loan origination opens in CreditCheckPending with a
// deadline: the credit check either answers in time or the sweep fails the
// workflow.
func (s *sagaService) StartWorkflow(ctx context.Context, workflowType domain.WorkflowType, initialContext map[string]string, creatorUserID string) (*domain.SagaInstance, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if workflowType != domain.WorkflowLoanOrigination {
		return nil, apperrors.NewValidationError("unsupported workflow type " + string(workflowType))
	}
	if initialContext[ctxKeyLoanID] == "" {
		return nil, apperrors.NewValidationError("loan origination requires a loanID in the initial context")
	}

	now := time.Now().UTC()
	deadline := now.Add(s.defaultTimeout)

	instance := domain.SagaInstance{
		CorrelationID: uuid.NewString(),
		WorkflowType:  workflowType,
		CurrentState:  domain.StateCreditCheckPending,
		Context:       cloneContext(initialContext),
		Version:       1,
		Deadline:      &deadline,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	record, err := newOutboxRecord(ctx, s.schemaSvc, domain.EventLoanCreditCheckRequest,
		loanPayloadFromContext(instance.Context), "", instance.CorrelationID, instance.CorrelationID, now)
	if err != nil {
		return nil, err
	}

	if err := s.sagaRepo.CreateInstance(ctx, instance, []domain.OutboxRecord{record}); err != nil {
		return nil, fmt.Errorf("failed to create workflow instance: %w", err)
	}

	logger.Info("Workflow started",
		slog.String("correlation_id", instance.CorrelationID),
		slog.String("workflow_type", string(workflowType)),
		slog.String("state", string(instance.CurrentState)),
		slog.Time("deadline", deadline),
	)
	return &instance, nil
}

// HandleEvent applies the transition for (currentState, event.Type). Unknown
// correlation ids, terminal instances, and unknown pairs are logged no-ops so
// replays and out-of-order delivery stay harmless.
func (s *sagaService) HandleEvent(ctx context.Context, correlationID string, event domain.EventEnvelope) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	instance, err := s.sagaRepo.FindByCorrelationID(ctx, correlationID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// Purged instance replay or traffic correlated to a workflow this
			// coordinator never owned. Both are harmless.
			logger.Warn("Event for unknown workflow ignored",
				slog.String("correlation_id", correlationID),
				slog.String("event_type", event.Type),
			)
			return nil
		}
		return fmt.Errorf("failed to load workflow %s: %w", correlationID, err)
	}

	return s.applyTransition(ctx, instance, event)
}

// applyTransition runs one event through the transition table and commits the
// outcome. Shared by HandleEvent and the timeout sweep.
func (s *sagaService) applyTransition(ctx context.Context, instance *domain.SagaInstance, event domain.EventEnvelope) error {
	logger := middleware.GetLoggerFromCtx(ctx).With(
		slog.String("correlation_id", instance.CorrelationID),
		slog.String("event_type", event.Type),
		slog.String("state", string(instance.CurrentState)),
	)

	if instance.CurrentState.IsTerminal() {
		logger.Debug("Event for terminal workflow ignored")
		return nil
	}

	result, ok := transitionFor(instance.WorkflowType, instance.CurrentState, event.Type)
	if !ok {
		logger.Info("No transition for event, ignoring")
		return nil
	}

	now := time.Now().UTC()
	updated := *instance
	updated.CurrentState = result.NewState
	updated.Context = mergeEventFacts(cloneContext(instance.Context), event)
	updated.UpdatedAt = now
	updated.Version = instance.Version + 1

	switch {
	case result.NewState.IsTerminal():
		updated.Deadline = nil
	case result.KeepDeadline:
		deadline := now.Add(s.defaultTimeout)
		updated.Deadline = &deadline
	}

	records := make([]domain.OutboxRecord, 0, len(result.EmitEvents))
	for _, eventType := range result.EmitEvents {
		record, err := newOutboxRecord(ctx, s.schemaSvc, eventType,
			loanPayloadFromContext(updated.Context), "", instance.CorrelationID, instance.CorrelationID, now)
		if err != nil {
			return err
		}
		records = append(records, record)
	}

	if err := s.sagaRepo.UpdateInstanceVersioned(ctx, updated, instance.Version, records); err != nil {
		if errors.Is(err, apperrors.ErrVersionConflict) {
			// Lost the race for this version; the caller retries against the
			// state the winner left behind.
			return err
		}
		return fmt.Errorf("failed to persist transition for workflow %s: %w", instance.CorrelationID, err)
	}

	logger.Info("Workflow transitioned", slog.String("new_state", string(result.NewState)))

	s.runEffects(ctx, &updated, result.Effects)
	return nil
}

// runEffects executes a committed transition's side effects. An effect
// failure cannot roll the transition back; it is logged, and for the
// disbursement command it is converted into the compensating
// loan.disbursement.failed event so the workflow still terminates cleanly.
func (s *sagaService) runEffects(ctx context.Context, instance *domain.SagaInstance, effects []sagaEffect) {
	logger := middleware.GetLoggerFromCtx(ctx).With(slog.String("correlation_id", instance.CorrelationID))
	loanID := instance.ContextValue(ctxKeyLoanID)

	for _, effect := range effects {
		var err error
		switch effect {
		case effectApproveLoan:
			err = s.loanSvc.ApproveLoan(ctx, loanID, systemActorID)
		case effectRejectLoan:
			err = s.loanSvc.RejectLoan(ctx, loanID, systemActorID)
		case effectDisburseLoan:
			err = s.loanSvc.DisburseLoan(ctx, loanID, systemActorID)
		case effectCommandDisbursement:
			err = s.commandDisbursement(ctx, instance)
		}
		if err != nil {
			logger.Error("Workflow effect failed",
				slog.Int("effect", int(effect)),
				slog.String("loan_id", loanID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// commandDisbursement posts the loan principal as a balanced pair: a credit
// into the member's savings account against a debit on the loan's control
// account, which then carries the outstanding principal. The committed
// deposit.completed fact flows back through the outbox and the bus, and moves
// the workflow Approved -> Disbursed. A posting failure is fed back into the
// state machine as loan.disbursement.failed.
func (s *sagaService) commandDisbursement(ctx context.Context, instance *domain.SagaInstance) error {
	principal, err := decimal.NewFromString(instance.ContextValue(ctxKeyPrincipal))
	if err != nil {
		principal = decimal.Zero
	}

	_, err = s.ledgerSvc.PostTransaction(ctx, dto.PostTransactionRequest{
		AccountID:       instance.ContextValue(ctxKeyAccountID),
		ContraAccountID: instance.ContextValue(ctxKeyLoanAccountID),
		TransactionType: domain.TransactionTypeDisbursement,
		Amount:          principal,
		Description:     "loan disbursement " + instance.ContextValue(ctxKeyLoanID),
		CorrelationID:   instance.CorrelationID,
	}, systemActorID)
	if err == nil {
		return nil
	}

	failure := domain.EventEnvelope{
		ID:            uuid.NewString(),
		Type:          domain.EventLoanDisburseFailed,
		SchemaVersion: eventSchemaVersion,
		Timestamp:     time.Now().UTC(),
		CorrelationID: instance.CorrelationID,
		Payload:       mustMarshalLoanFailure(instance, err),
	}
	if handleErr := s.HandleEvent(ctx, instance.CorrelationID, failure); handleErr != nil {
		return fmt.Errorf("disbursement failed (%w) and compensation dispatch failed: %v", err, handleErr)
	}
	return fmt.Errorf("disbursement failed, compensation dispatched: %w", err)
}

// GetStatus retrieves the workflow instance.
func (s *sagaService) GetStatus(ctx context.Context, correlationID string) (*domain.SagaInstance, error) {
	instance, err := s.sagaRepo.FindByCorrelationID(ctx, correlationID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("workflow " + correlationID + " not found")
		}
		return nil, fmt.Errorf("failed to find workflow %s: %w", correlationID, err)
	}
	return instance, nil
}

// SweepExpired drives instances past their deadline to the compensating
// transition. Each transition goes through the same version check as event
// handling, so a sweep racing a concurrent completing event loses cleanly:
// the version conflict means the instance moved, and the sweep skips it. The
// cancellation event is therefore emitted exactly once.
func (s *sagaService) SweepExpired(ctx context.Context, now time.Time, limit int) (int, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	expired, err := s.sagaRepo.ListExpired(ctx, now, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list expired workflows: %w", err)
	}

	swept := 0
	for i := range expired {
		instance := expired[i]
		event := domain.EventEnvelope{
			ID:            uuid.NewString(),
			Type:          eventDeadlineExpired,
			SchemaVersion: eventSchemaVersion,
			Timestamp:     now,
			CorrelationID: instance.CorrelationID,
		}
		if err := s.applyTransition(ctx, &instance, event); err != nil {
			if errors.Is(err, apperrors.ErrVersionConflict) {
				// The instance moved under us; whatever moved it owns the outcome.
				continue
			}
			logger.Error("Timeout sweep failed for workflow",
				slog.String("correlation_id", instance.CorrelationID),
				slog.String("error", err.Error()),
			)
			continue
		}
		swept++
	}

	if swept > 0 {
		logger.Info("Timed-out workflows compensated", slog.Int("count", swept))
	}
	return swept, nil
}

// cloneContext copies a context map so transitions never alias the loaded
// instance's map.
func cloneContext(src map[string]string) map[string]string {
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// mergeEventFacts folds the facts an event carries into the workflow context.
// Decoding is best-effort: the payload already passed the schema gate, and a
// missing optional field is simply not recorded.
func mergeEventFacts(ctx map[string]string, event domain.EventEnvelope) map[string]string {
	switch event.Type {
	case domain.EventLoanCreditCheckPassed, domain.EventLoanCreditCheckFailed:
		var p dto.CreditCheckResultPayload
		if err := json.Unmarshal(event.Payload, &p); err == nil {
			if p.Score != 0 {
				ctx[ctxKeyCreditScore] = strconv.Itoa(p.Score)
			}
			if p.Reason != "" {
				ctx[ctxKeyFailureReason] = p.Reason
			}
		}
	case domain.EventDepositCompleted:
		var p dto.TransactionEventPayload
		if err := json.Unmarshal(event.Payload, &p); err == nil && p.TransactionID != "" {
			ctx[ctxKeyDisbursedTxn] = p.TransactionID
		}
	case domain.EventLoanDisburseFailed, domain.EventLoanCancelRequested:
		var p dto.LoanEventPayload
		if err := json.Unmarshal(event.Payload, &p); err == nil && p.Reason != "" {
			ctx[ctxKeyFailureReason] = p.Reason
		}
	case eventDeadlineExpired:
		ctx[ctxKeyFailureReason] = "deadline expired"
	}
	return ctx
}

// loanPayloadFromContext rebuilds the loan lifecycle payload from the
// workflow's accumulated facts.
func loanPayloadFromContext(ctx map[string]string) dto.LoanEventPayload {
	principal, _ := decimal.NewFromString(ctx[ctxKeyPrincipal])
	rate, _ := decimal.NewFromString(ctx[ctxKeyInterestRate])
	term, _ := strconv.Atoi(ctx[ctxKeyTermMonths])
	return dto.LoanEventPayload{
		LoanID:       ctx[ctxKeyLoanID],
		MemberID:     ctx[ctxKeyMemberID],
		AccountID:    ctx[ctxKeyAccountID],
		Principal:    principal,
		InterestRate: rate,
		TermMonths:   term,
		Reason:       ctx[ctxKeyFailureReason],
	}
}

// mustMarshalLoanFailure builds the loan.disbursement.failed payload. The
// shape always marshals; the error text rides in the reason field.
func mustMarshalLoanFailure(instance *domain.SagaInstance, cause error) json.RawMessage {
	payload := loanPayloadFromContext(instance.Context)
	payload.Reason = cause.Error()
	raw, err := json.Marshal(payload)
	if err != nil {
		raw = []byte(`{"loanID":"` + instance.ContextValue(ctxKeyLoanID) + `"}`)
	}
	return raw
}

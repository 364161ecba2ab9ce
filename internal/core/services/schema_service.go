package services

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/wekeza-tech/coopcore/internal/apperrors"
	"github.com/wekeza-tech/coopcore/internal/core/domain"
	portsrepo "github.com/wekeza-tech/coopcore/internal/core/ports/repositories"
	portssvc "github.com/wekeza-tech/coopcore/internal/core/ports/services"
	"github.com/wekeza-tech/coopcore/internal/middleware"
)

//go:embed schemas/*.json
var schemaDocuments embed.FS

// schemaKey identifies one registered contract version.
type schemaKey struct {
	EventType string
	Version   int
}

// schemaFiles maps every event type and version to its embedded schema
// document. Several event types share one document when they share a payload
// shape; evolving a shape means adding a new (type, version) entry here, not
// editing a registered document.
var schemaFiles = map[schemaKey]string{
	{domain.EventMemberOnboarded, 1}: "schemas/member.onboarded.v1.json",

	{domain.EventDepositCompleted, 1}:    "schemas/transaction.event.v1.json",
	{domain.EventWithdrawalProcessed, 1}: "schemas/transaction.event.v1.json",
	{domain.EventFeeApplied, 1}:          "schemas/transaction.event.v1.json",
	{domain.EventInterestAccrued, 1}:     "schemas/transaction.event.v1.json",

	{domain.EventTransferCompleted, 1}:   "schemas/transfer.completed.v1.json",
	{domain.EventTransactionReversed, 1}: "schemas/transaction.reversed.v1.json",
	{domain.EventRepaymentReceived, 1}:   "schemas/repayment.received.v1.json",

	{domain.EventLoanCreditCheckRequest, 1}: "schemas/loan.event.v1.json",
	{domain.EventLoanApproved, 1}:           "schemas/loan.event.v1.json",
	{domain.EventLoanRejected, 1}:           "schemas/loan.event.v1.json",
	{domain.EventLoanDisbursed, 1}:          "schemas/loan.event.v1.json",
	{domain.EventLoanDisburseFailed, 1}:     "schemas/loan.event.v1.json",
	{domain.EventLoanCancelRequested, 1}:    "schemas/loan.event.v1.json",
	{domain.EventLoanCancelled, 1}:          "schemas/loan.event.v1.json",

	{domain.EventLoanCreditCheckPassed, 1}: "schemas/credit_check.result.v1.json",
	{domain.EventLoanCreditCheckFailed, 1}: "schemas/credit_check.result.v1.json",
}

// schemaService is the gate every payload crosses on its way into or out of
// the system. Contracts are compiled once at startup from the embedded
// documents; an unknown (type, version) pair is a violation, never a pass.
type schemaService struct {
	registry       map[schemaKey]*jsonschema.Schema
	quarantineRepo portsrepo.QuarantineRepository
}

// NewSchemaService compiles the registered contract documents and returns the
// validator. Compilation failure is a startup error, not a runtime one.
func NewSchemaService(quarantineRepo portsrepo.QuarantineRepository) (portssvc.SchemaValidatorSvc, error) {
	compiler := jsonschema.NewCompiler()

	compiled := make(map[string]*jsonschema.Schema)
	registry := make(map[schemaKey]*jsonschema.Schema, len(schemaFiles))
	for key, file := range schemaFiles {
		schema, ok := compiled[file]
		if !ok {
			raw, err := schemaDocuments.ReadFile(file)
			if err != nil {
				return nil, fmt.Errorf("read schema document %s: %w", file, err)
			}
			doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
			if err != nil {
				return nil, fmt.Errorf("parse schema document %s: %w", file, err)
			}
			if err := compiler.AddResource(file, doc); err != nil {
				return nil, fmt.Errorf("register schema document %s: %w", file, err)
			}
			schema, err = compiler.Compile(file)
			if err != nil {
				return nil, fmt.Errorf("compile schema document %s: %w", file, err)
			}
			compiled[file] = schema
		}
		registry[key] = schema
	}

	return &schemaService{
		registry:       registry,
		quarantineRepo: quarantineRepo,
	}, nil
}

// Ensure schemaService implements the portssvc.SchemaValidatorSvc interface
var _ portssvc.SchemaValidatorSvc = (*schemaService)(nil)

// check validates a payload against the registered contract and returns the
// violation message, or "" when the payload conforms.
func (s *schemaService) check(eventType string, schemaVersion int, payload json.RawMessage) string {
	schema, ok := s.registry[schemaKey{EventType: eventType, Version: schemaVersion}]
	if !ok {
		return fmt.Sprintf("no schema registered for event type %s version %d", eventType, schemaVersion)
	}

	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(payload))
	if err != nil {
		return "payload is not valid JSON: " + err.Error()
	}
	if err := schema.Validate(instance); err != nil {
		return err.Error()
	}
	return ""
}

// quarantine stores a rejected payload for operator inspection. Failure to
// quarantine is logged, never propagated: the gate's verdict stands either way.
func (s *schemaService) quarantine(ctx context.Context, direction domain.QuarantineDirection, topic, eventType string, schemaVersion int, payload json.RawMessage, violation string) {
	logger := middleware.GetLoggerFromCtx(ctx)

	q := domain.QuarantinedEvent{
		QuarantineID:  uuid.NewString(),
		Direction:     direction,
		Topic:         topic,
		EventType:     eventType,
		SchemaVersion: schemaVersion,
		Payload:       payload,
		Violation:     violation,
		ReceivedAt:    time.Now().UTC(),
	}
	if err := s.quarantineRepo.SaveQuarantined(ctx, q); err != nil {
		logger.Error("Failed to quarantine payload",
			slog.String("event_type", eventType),
			slog.String("violation", violation),
			slog.String("error", err.Error()),
		)
		return
	}

	logger.Warn("Payload quarantined",
		slog.String("quarantine_id", q.QuarantineID),
		slog.String("direction", string(direction)),
		slog.String("event_type", eventType),
		slog.Int("schema_version", schemaVersion),
		slog.String("violation", violation),
	)
}

// ValidateOutbound checks a payload before it is written to the outbox.
func (s *schemaService) ValidateOutbound(ctx context.Context, eventType string, schemaVersion int, payload json.RawMessage) error {
	violation := s.check(eventType, schemaVersion, payload)
	if violation == "" {
		return nil
	}

	s.quarantine(ctx, domain.QuarantineOutbound, domain.TopicForEvent(eventType), eventType, schemaVersion, payload, violation)
	return fmt.Errorf("%w: outbound %s v%d: %s", apperrors.ErrSchemaViolation, eventType, schemaVersion, violation)
}

// ValidateInbound checks an envelope before it reaches the coordinator.
func (s *schemaService) ValidateInbound(ctx context.Context, envelope domain.EventEnvelope) error {
	violation := s.check(envelope.Type, envelope.SchemaVersion, envelope.Payload)
	if violation == "" {
		return nil
	}

	s.quarantine(ctx, domain.QuarantineInbound, domain.TopicForEvent(envelope.Type), envelope.Type, envelope.SchemaVersion, envelope.Payload, violation)
	return fmt.Errorf("%w: inbound %s v%d (id %s): %s", apperrors.ErrSchemaViolation, envelope.Type, envelope.SchemaVersion, envelope.ID, violation)
}

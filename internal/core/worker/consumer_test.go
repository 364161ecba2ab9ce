package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/wekeza-tech/coopcore/internal/apperrors"
	"github.com/wekeza-tech/coopcore/internal/core/domain"
)

// mockSchemaValidator is a mock type for the SchemaValidatorSvc interface
type mockSchemaValidator struct {
	mock.Mock
}

func (m *mockSchemaValidator) ValidateOutbound(ctx context.Context, eventType string, schemaVersion int, payload json.RawMessage) error {
	args := m.Called(ctx, eventType, schemaVersion, payload)
	return args.Error(0)
}

func (m *mockSchemaValidator) ValidateInbound(ctx context.Context, envelope domain.EventEnvelope) error {
	args := m.Called(ctx, envelope)
	return args.Error(0)
}

// mockSagaCoordinator is a mock type for the SagaCoordinatorSvc interface
type mockSagaCoordinator struct {
	mock.Mock
}

func (m *mockSagaCoordinator) StartWorkflow(ctx context.Context, workflowType domain.WorkflowType, initialContext map[string]string, creatorUserID string) (*domain.SagaInstance, error) {
	args := m.Called(ctx, workflowType, initialContext, creatorUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SagaInstance), args.Error(1)
}

func (m *mockSagaCoordinator) HandleEvent(ctx context.Context, correlationID string, event domain.EventEnvelope) error {
	args := m.Called(ctx, correlationID, event)
	return args.Error(0)
}

func (m *mockSagaCoordinator) GetStatus(ctx context.Context, correlationID string) (*domain.SagaInstance, error) {
	args := m.Called(ctx, correlationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SagaInstance), args.Error(1)
}

func (m *mockSagaCoordinator) SweepExpired(ctx context.Context, now time.Time, limit int) (int, error) {
	args := m.Called(ctx, now, limit)
	return args.Int(0), args.Error(1)
}

// --- Test Suite Setup ---

type ConsumerTestSuite struct {
	suite.Suite
	mockBus       *mockEventBus
	mockSchema    *mockSchemaValidator
	mockSaga      *mockSagaCoordinator
	mockProcessed *mockProcessedEventRepo
	consumer      *Consumer
}

func (suite *ConsumerTestSuite) SetupTest() {
	suite.mockBus = new(mockEventBus)
	suite.mockSchema = new(mockSchemaValidator)
	suite.mockSaga = new(mockSagaCoordinator)
	suite.mockProcessed = new(mockProcessedEventRepo)
	suite.consumer = NewConsumer(suite.mockBus, suite.mockSchema, suite.mockSaga, suite.mockProcessed, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func correlatedEnvelope() domain.EventEnvelope {
	return domain.EventEnvelope{
		ID:            uuid.NewString(),
		Type:          domain.EventLoanCreditCheckPassed,
		SchemaVersion: 1,
		Timestamp:     time.Now().UTC(),
		CorrelationID: uuid.NewString(),
		Payload:       json.RawMessage(`{"loanID":"loan-1","score":700}`),
	}
}

// --- Test Cases ---

func (suite *ConsumerTestSuite) TestStart_SubscribesAllTopics() {
	ctx := context.Background()

	for _, topic := range []string{domain.TopicLoan, domain.TopicTransaction, domain.TopicPayment} {
		suite.mockBus.On("Subscribe", ctx, topic, "coopcore.workflow", mock.AnythingOfType("events.Handler")).Return(nil).Once()
	}

	err := suite.consumer.Start(ctx)

	suite.Require().NoError(err)
	suite.mockBus.AssertExpectations(suite.T())
}

func (suite *ConsumerTestSuite) TestHandle_HappyPath() {
	ctx := context.Background()
	envelope := correlatedEnvelope()

	suite.mockSchema.On("ValidateInbound", mock.Anything, envelope).Return(nil).Once()
	suite.mockProcessed.On("MarkProcessed", mock.Anything, envelope.ID, "coopcore.workflow", mock.AnythingOfType("time.Time")).Return(true, nil).Once()
	suite.mockSaga.On("HandleEvent", mock.Anything, envelope.CorrelationID, envelope).Return(nil).Once()

	err := suite.consumer.handle(ctx, envelope)

	suite.Require().NoError(err)
	suite.mockSaga.AssertExpectations(suite.T())
}

func (suite *ConsumerTestSuite) TestHandle_SchemaViolationIsAcked() {
	ctx := context.Background()
	envelope := correlatedEnvelope()

	violation := apperrors.ErrSchemaViolation
	suite.mockSchema.On("ValidateInbound", mock.Anything, envelope).Return(violation).Once()

	// The payload is quarantined by the gate; the message must not redeliver.
	err := suite.consumer.handle(ctx, envelope)

	suite.Require().NoError(err)
	suite.mockProcessed.AssertNotCalled(suite.T(), "MarkProcessed", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	suite.mockSaga.AssertNotCalled(suite.T(), "HandleEvent", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *ConsumerTestSuite) TestHandle_GateInfrastructureFailureRedelivers() {
	ctx := context.Background()
	envelope := correlatedEnvelope()

	infraErr := errors.New("quarantine store unavailable")
	suite.mockSchema.On("ValidateInbound", mock.Anything, envelope).Return(infraErr).Once()

	err := suite.consumer.handle(ctx, envelope)

	suite.Require().Error(err)
	suite.mockSaga.AssertNotCalled(suite.T(), "HandleEvent", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *ConsumerTestSuite) TestHandle_DuplicateDeliverySkipped() {
	ctx := context.Background()
	envelope := correlatedEnvelope()

	suite.mockSchema.On("ValidateInbound", mock.Anything, envelope).Return(nil).Once()
	suite.mockProcessed.On("MarkProcessed", mock.Anything, envelope.ID, "coopcore.workflow", mock.AnythingOfType("time.Time")).Return(false, nil).Once()

	err := suite.consumer.handle(ctx, envelope)

	suite.Require().NoError(err)
	suite.mockSaga.AssertNotCalled(suite.T(), "HandleEvent", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *ConsumerTestSuite) TestHandle_UncorrelatedEventIsAcked() {
	ctx := context.Background()
	envelope := correlatedEnvelope()
	envelope.CorrelationID = ""

	suite.mockSchema.On("ValidateInbound", mock.Anything, envelope).Return(nil).Once()
	suite.mockProcessed.On("MarkProcessed", mock.Anything, envelope.ID, "coopcore.workflow", mock.AnythingOfType("time.Time")).Return(true, nil).Once()

	err := suite.consumer.handle(ctx, envelope)

	suite.Require().NoError(err)
	suite.mockSaga.AssertNotCalled(suite.T(), "HandleEvent", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *ConsumerTestSuite) TestHandle_VersionConflictRetriesInline() {
	ctx := context.Background()
	envelope := correlatedEnvelope()

	suite.mockSchema.On("ValidateInbound", mock.Anything, envelope).Return(nil).Once()
	suite.mockProcessed.On("MarkProcessed", mock.Anything, envelope.ID, "coopcore.workflow", mock.AnythingOfType("time.Time")).Return(true, nil).Once()

	// A concurrent delivery wins the version check twice; the retry sees the
	// fresh state and lands.
	suite.mockSaga.On("HandleEvent", mock.Anything, envelope.CorrelationID, envelope).Return(apperrors.ErrVersionConflict).Twice()
	suite.mockSaga.On("HandleEvent", mock.Anything, envelope.CorrelationID, envelope).Return(nil).Once()

	err := suite.consumer.handle(ctx, envelope)

	suite.Require().NoError(err)
	suite.mockSaga.AssertExpectations(suite.T())
}

func (suite *ConsumerTestSuite) TestHandle_PersistentFailureIsAckedForSweep() {
	ctx := context.Background()
	envelope := correlatedEnvelope()

	suite.mockSchema.On("ValidateInbound", mock.Anything, envelope).Return(nil).Once()
	suite.mockProcessed.On("MarkProcessed", mock.Anything, envelope.ID, "coopcore.workflow", mock.AnythingOfType("time.Time")).Return(true, nil).Once()
	suite.mockSaga.On("HandleEvent", mock.Anything, envelope.CorrelationID, envelope).Return(errors.New("instance store unavailable")).Once()

	// Redelivering would be skipped as a duplicate; the deadline sweep owns
	// recovery once the dedup mark is in.
	err := suite.consumer.handle(ctx, envelope)

	suite.Require().NoError(err)
	suite.mockSaga.AssertNumberOfCalls(suite.T(), "HandleEvent", 1)
}

func (suite *ConsumerTestSuite) TestHandle_DedupStoreFailureRedelivers() {
	ctx := context.Background()
	envelope := correlatedEnvelope()

	suite.mockSchema.On("ValidateInbound", mock.Anything, envelope).Return(nil).Once()
	suite.mockProcessed.On("MarkProcessed", mock.Anything, envelope.ID, "coopcore.workflow", mock.AnythingOfType("time.Time")).Return(false, errors.New("connection refused")).Once()

	err := suite.consumer.handle(ctx, envelope)

	suite.Require().Error(err)
	suite.mockSaga.AssertNotCalled(suite.T(), "HandleEvent", mock.Anything, mock.Anything, mock.Anything)
}

func TestConsumerTestSuite(t *testing.T) {
	suite.Run(t, new(ConsumerTestSuite))
}

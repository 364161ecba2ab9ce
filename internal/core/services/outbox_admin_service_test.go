package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/wekeza-tech/coopcore/internal/apperrors"
	"github.com/wekeza-tech/coopcore/internal/core/domain"
	portssvc "github.com/wekeza-tech/coopcore/internal/core/ports/services"
	"github.com/wekeza-tech/coopcore/internal/core/services"
)

// MockOutboxAdminRepository is a mock type for the OutboxAdminSupport interface
type MockOutboxAdminRepository struct {
	mock.Mock
}

func (m *MockOutboxAdminRepository) FindRecordByID(ctx context.Context, recordID string) (*domain.OutboxRecord, error) {
	args := m.Called(ctx, recordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OutboxRecord), args.Error(1)
}

func (m *MockOutboxAdminRepository) ListDeadLetter(ctx context.Context, limit int) ([]domain.OutboxRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.OutboxRecord), args.Error(1)
}

func (m *MockOutboxAdminRepository) RequeueDeadLetter(ctx context.Context, recordID string) error {
	args := m.Called(ctx, recordID)
	return args.Error(0)
}

// --- Test Suite Setup ---

type OutboxAdminServiceTestSuite struct {
	suite.Suite
	mockOutbox     *MockOutboxAdminRepository
	mockQuarantine *MockQuarantineRepository
	service        portssvc.OutboxAdminSvc
}

func (suite *OutboxAdminServiceTestSuite) SetupTest() {
	suite.mockOutbox = new(MockOutboxAdminRepository)
	suite.mockQuarantine = new(MockQuarantineRepository)
	suite.service = services.NewOutboxAdminService(suite.mockOutbox, suite.mockQuarantine)
}

// --- Test Cases ---

func (suite *OutboxAdminServiceTestSuite) TestListDeadLetter_DefaultsLimit() {
	ctx := context.Background()

	suite.mockOutbox.On("ListDeadLetter", ctx, 50).Return([]domain.OutboxRecord{}, nil).Once()

	records, err := suite.service.ListDeadLetter(ctx, 0)

	suite.Require().NoError(err)
	suite.Empty(records)
	suite.mockOutbox.AssertExpectations(suite.T())
}

func (suite *OutboxAdminServiceTestSuite) TestRequeueDeadLetter_Success() {
	ctx := context.Background()
	recordID := uuid.NewString()

	suite.mockOutbox.On("FindRecordByID", ctx, recordID).Return(&domain.OutboxRecord{
		RecordID:     recordID,
		EventType:    domain.EventLoanApproved,
		Status:       domain.OutboxStatusDeadLetter,
		AttemptCount: 10,
		LastError:    "broker unreachable",
		CreatedAt:    time.Now().UTC(),
	}, nil).Once()
	suite.mockOutbox.On("RequeueDeadLetter", ctx, recordID).Return(nil).Once()

	err := suite.service.RequeueDeadLetter(ctx, recordID)

	suite.Require().NoError(err)
	suite.mockOutbox.AssertExpectations(suite.T())
}

func (suite *OutboxAdminServiceTestSuite) TestRequeueDeadLetter_NotDeadLettered() {
	ctx := context.Background()
	recordID := uuid.NewString()

	suite.mockOutbox.On("FindRecordByID", ctx, recordID).Return(&domain.OutboxRecord{
		RecordID: recordID,
		Status:   domain.OutboxStatusPublished,
	}, nil).Once()

	err := suite.service.RequeueDeadLetter(ctx, recordID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrConflict)
	suite.mockOutbox.AssertNotCalled(suite.T(), "RequeueDeadLetter", mock.Anything, mock.Anything)
}

func (suite *OutboxAdminServiceTestSuite) TestRequeueDeadLetter_NotFound() {
	ctx := context.Background()
	recordID := uuid.NewString()

	suite.mockOutbox.On("FindRecordByID", ctx, recordID).Return(nil, apperrors.ErrNotFound).Once()

	err := suite.service.RequeueDeadLetter(ctx, recordID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func TestOutboxAdminServiceTestSuite(t *testing.T) {
	suite.Run(t, new(OutboxAdminServiceTestSuite))
}

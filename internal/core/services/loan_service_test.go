package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/wekeza-tech/coopcore/internal/apperrors"
	"github.com/wekeza-tech/coopcore/internal/core/domain"
	portssvc "github.com/wekeza-tech/coopcore/internal/core/ports/services"
	"github.com/wekeza-tech/coopcore/internal/core/services"
	"github.com/wekeza-tech/coopcore/internal/dto"
)

// MockLoanRepository is a mock type for the LoanRepositoryFacade interface
type MockLoanRepository struct {
	mock.Mock
}

func (m *MockLoanRepository) FindLoanByID(ctx context.Context, loanID string) (*domain.Loan, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLoanRepository) FindLoanByCorrelationID(ctx context.Context, correlationID string) (*domain.Loan, error) {
	args := m.Called(ctx, correlationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLoanRepository) ListScheduleByLoanID(ctx context.Context, loanID string) ([]domain.ScheduleEntry, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ScheduleEntry), args.Error(1)
}

func (m *MockLoanRepository) SaveLoan(ctx context.Context, loan domain.Loan) error {
	args := m.Called(ctx, loan)
	return args.Error(0)
}

func (m *MockLoanRepository) UpdateLoanStatus(ctx context.Context, loanID string, status domain.LoanStatus, userID string, now time.Time) error {
	args := m.Called(ctx, loanID, status, userID, now)
	return args.Error(0)
}

func (m *MockLoanRepository) MarkDisbursed(ctx context.Context, loanID string, schedule []domain.ScheduleEntry, records []domain.OutboxRecord, userID string, now time.Time) error {
	args := m.Called(ctx, loanID, schedule, records, userID, now)
	return args.Error(0)
}

func (m *MockLoanRepository) ApplyRepayment(ctx context.Context, txns []domain.Transaction, balanceChanges map[string]decimal.Decimal, schedule []domain.ScheduleEntry, records []domain.OutboxRecord) error {
	args := m.Called(ctx, txns, balanceChanges, schedule, records)
	return args.Error(0)
}

func (m *MockLoanRepository) UpdateScheduleEntriesInTx(ctx context.Context, tx pgx.Tx, entries []domain.ScheduleEntry) error {
	args := m.Called(ctx, tx, entries)
	return args.Error(0)
}

// MockAccountRepository is a mock type for the AccountRepositoryFacade interface
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) FindAccountsByIDs(ctx context.Context, accountIDs []string) (map[string]domain.Account, error) {
	args := m.Called(ctx, accountIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.Account), args.Error(1)
}

func (m *MockAccountRepository) ListAccountsByMember(ctx context.Context, memberID string) ([]domain.Account, error) {
	args := m.Called(ctx, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Account), args.Error(1)
}

func (m *MockAccountRepository) SaveAccount(ctx context.Context, account domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) CloseAccount(ctx context.Context, accountID string, userID string, now time.Time) error {
	args := m.Called(ctx, accountID, userID, now)
	return args.Error(0)
}

func (m *MockAccountRepository) FindAccountsByIDsForUpdate(ctx context.Context, tx pgx.Tx, accountIDs []string) (map[string]domain.Account, error) {
	args := m.Called(ctx, tx, accountIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.Account), args.Error(1)
}

func (m *MockAccountRepository) UpdateAccountBalancesInTx(ctx context.Context, tx pgx.Tx, balanceChanges map[string]decimal.Decimal, userID string, now time.Time) error {
	args := m.Called(ctx, tx, balanceChanges, userID, now)
	return args.Error(0)
}

// MockMemberReader is a mock type for the MemberReader interface
type MockMemberReader struct {
	mock.Mock
}

func (m *MockMemberReader) FindMemberByID(ctx context.Context, memberID string) (*domain.Member, error) {
	args := m.Called(ctx, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Member), args.Error(1)
}

func (m *MockMemberReader) FindMemberByEmail(ctx context.Context, email string) (*domain.Member, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Member), args.Error(1)
}

// MockSagaCoordinator is a mock type for the SagaCoordinatorSvc interface
type MockSagaCoordinator struct {
	mock.Mock
}

func (m *MockSagaCoordinator) StartWorkflow(ctx context.Context, workflowType domain.WorkflowType, initialContext map[string]string, creatorUserID string) (*domain.SagaInstance, error) {
	args := m.Called(ctx, workflowType, initialContext, creatorUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SagaInstance), args.Error(1)
}

func (m *MockSagaCoordinator) HandleEvent(ctx context.Context, correlationID string, event domain.EventEnvelope) error {
	args := m.Called(ctx, correlationID, event)
	return args.Error(0)
}

func (m *MockSagaCoordinator) GetStatus(ctx context.Context, correlationID string) (*domain.SagaInstance, error) {
	args := m.Called(ctx, correlationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SagaInstance), args.Error(1)
}

func (m *MockSagaCoordinator) SweepExpired(ctx context.Context, now time.Time, limit int) (int, error) {
	args := m.Called(ctx, now, limit)
	return args.Int(0), args.Error(1)
}

// --- Test Suite Setup ---

type LoanServiceTestSuite struct {
	suite.Suite
	mockLoanRepo    *MockLoanRepository
	mockAccountRepo *MockAccountRepository
	mockMemberRepo  *MockMemberReader
	mockSchema      *MockSchemaValidator
	mockSaga        *MockSagaCoordinator
	service         portssvc.LoanSvcFacade
}

func (suite *LoanServiceTestSuite) SetupTest() {
	suite.mockLoanRepo = new(MockLoanRepository)
	suite.mockAccountRepo = new(MockAccountRepository)
	suite.mockMemberRepo = new(MockMemberReader)
	suite.mockSchema = new(MockSchemaValidator)
	suite.mockSaga = new(MockSagaCoordinator)

	suite.service = services.NewLoanService(suite.mockLoanRepo, suite.mockAccountRepo, suite.mockMemberRepo, suite.mockSchema)
	suite.service.(interface {
		AttachWorkflowCoordinator(portssvc.SagaCoordinatorSvc)
	}).AttachWorkflowCoordinator(suite.mockSaga)
}

func (suite *LoanServiceTestSuite) activeMember(memberID string) *domain.Member {
	return &domain.Member{
		MemberID: memberID,
		Name:     "Amina Otieno",
		Email:    "amina@example.com",
		Status:   domain.MemberStatusActive,
	}
}

func (suite *LoanServiceTestSuite) savingsAccount(accountID, memberID string, available decimal.Decimal) *domain.Account {
	return &domain.Account{
		AccountID:        accountID,
		MemberID:         memberID,
		Name:             "Member Savings",
		AccountType:      domain.AccountTypeSavings,
		CurrencyCode:     "KES",
		CurrentBalance:   available,
		AvailableBalance: available,
		Status:           domain.AccountStatusActive,
	}
}

func (suite *LoanServiceTestSuite) loanControlAccount(accountID, memberID string, outstanding decimal.Decimal) *domain.Account {
	return &domain.Account{
		AccountID:        accountID,
		MemberID:         memberID,
		Name:             "Member Loan",
		AccountType:      domain.AccountTypeLoan,
		CurrencyCode:     "KES",
		CurrentBalance:   outstanding,
		AvailableBalance: outstanding,
		Status:           domain.AccountStatusActive,
	}
}

func (suite *LoanServiceTestSuite) disbursedLoan(loanID, memberID, accountID string) *domain.Loan {
	return &domain.Loan{
		LoanID:        loanID,
		MemberID:      memberID,
		AccountID:     accountID,
		LoanAccountID: uuid.NewString(),
		Principal:     decimal.NewFromInt(1200),
		InterestRate:  decimal.NewFromInt(12),
		TermMonths:    12,
		Status:        domain.LoanStatusDisbursed,
		CorrelationID: uuid.NewString(),
	}
}

// --- Test Cases ---

func (suite *LoanServiceTestSuite) TestRequestLoan_Success() {
	ctx := context.Background()
	memberID := uuid.NewString()
	accountID := uuid.NewString()
	creatorUserID := uuid.NewString()
	correlationID := uuid.NewString()

	req := dto.RequestLoanRequest{
		MemberID:     memberID,
		AccountID:    accountID,
		Principal:    decimal.NewFromInt(1200),
		InterestRate: decimal.NewFromFloat(12.5),
		TermMonths:   12,
	}

	suite.mockMemberRepo.On("FindMemberByID", ctx, memberID).Return(suite.activeMember(memberID), nil).Once()
	suite.mockAccountRepo.On("FindAccountByID", ctx, accountID).Return(suite.savingsAccount(accountID, memberID, decimal.NewFromInt(500)), nil).Once()
	suite.mockAccountRepo.On("SaveAccount", ctx, mock.MatchedBy(func(account domain.Account) bool {
		// The loan's control account opens empty, owned by the borrower, in
		// the funding account's currency.
		return account.AccountType == domain.AccountTypeLoan &&
			account.MemberID == memberID &&
			account.CurrencyCode == "KES" &&
			account.CurrentBalance.IsZero()
	})).Return(nil).Once()
	suite.mockSaga.On("StartWorkflow", ctx, domain.WorkflowLoanOrigination, mock.MatchedBy(func(initial map[string]string) bool {
		return initial["memberID"] == memberID &&
			initial["accountID"] == accountID &&
			initial["loanAccountID"] != "" &&
			initial["principal"] == "1200" &&
			initial["termMonths"] == "12"
	}), creatorUserID).Return(&domain.SagaInstance{CorrelationID: correlationID}, nil).Once()
	suite.mockLoanRepo.On("SaveLoan", ctx, mock.MatchedBy(func(loan domain.Loan) bool {
		return loan.Status == domain.LoanStatusRequested &&
			loan.CorrelationID == correlationID &&
			loan.LoanAccountID != ""
	})).Return(nil).Once()

	loan, err := suite.service.RequestLoan(ctx, req, creatorUserID)

	suite.Require().NoError(err)
	suite.Require().NotNil(loan)
	suite.NotEmpty(loan.LoanID)
	suite.NotEmpty(loan.LoanAccountID)
	suite.Equal(domain.LoanStatusRequested, loan.Status)
	suite.Equal(correlationID, loan.CorrelationID)
	suite.Equal(creatorUserID, loan.CreatedBy)

	suite.mockSaga.AssertExpectations(suite.T())
	suite.mockAccountRepo.AssertExpectations(suite.T())
	suite.mockLoanRepo.AssertExpectations(suite.T())
}

func (suite *LoanServiceTestSuite) TestRequestLoan_NonPositivePrincipal() {
	ctx := context.Background()
	req := dto.RequestLoanRequest{
		MemberID:   uuid.NewString(),
		AccountID:  uuid.NewString(),
		Principal:  decimal.Zero,
		TermMonths: 12,
	}

	loan, err := suite.service.RequestLoan(ctx, req, "creator")

	suite.Require().Error(err)
	suite.Nil(loan)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.mockSaga.AssertNotCalled(suite.T(), "StartWorkflow", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *LoanServiceTestSuite) TestRequestLoan_SuspendedMember() {
	ctx := context.Background()
	memberID := uuid.NewString()
	member := suite.activeMember(memberID)
	member.Status = domain.MemberStatusSuspended

	suite.mockMemberRepo.On("FindMemberByID", ctx, memberID).Return(member, nil).Once()

	loan, err := suite.service.RequestLoan(ctx, dto.RequestLoanRequest{
		MemberID:     memberID,
		AccountID:    uuid.NewString(),
		Principal:    decimal.NewFromInt(1000),
		InterestRate: decimal.NewFromInt(10),
		TermMonths:   6,
	}, "creator")

	suite.Require().Error(err)
	suite.Nil(loan)
	suite.ErrorIs(err, apperrors.ErrConflict)
}

func (suite *LoanServiceTestSuite) TestRequestLoan_AccountOwnedByAnotherMember() {
	ctx := context.Background()
	memberID := uuid.NewString()
	accountID := uuid.NewString()

	suite.mockMemberRepo.On("FindMemberByID", ctx, memberID).Return(suite.activeMember(memberID), nil).Once()
	suite.mockAccountRepo.On("FindAccountByID", ctx, accountID).Return(suite.savingsAccount(accountID, uuid.NewString(), decimal.Zero), nil).Once()

	loan, err := suite.service.RequestLoan(ctx, dto.RequestLoanRequest{
		MemberID:     memberID,
		AccountID:    accountID,
		Principal:    decimal.NewFromInt(1000),
		InterestRate: decimal.NewFromInt(10),
		TermMonths:   6,
	}, "creator")

	suite.Require().Error(err)
	suite.Nil(loan)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *LoanServiceTestSuite) TestApproveLoan_Idempotent() {
	ctx := context.Background()
	loanID := uuid.NewString()
	loan := suite.disbursedLoan(loanID, uuid.NewString(), uuid.NewString())
	loan.Status = domain.LoanStatusApproved

	suite.mockLoanRepo.On("FindLoanByID", ctx, loanID).Return(loan, nil).Once()

	err := suite.service.ApproveLoan(ctx, loanID, "system")

	suite.Require().NoError(err)
	suite.mockLoanRepo.AssertNotCalled(suite.T(), "UpdateLoanStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *LoanServiceTestSuite) TestRejectLoan_UpdatesStatus() {
	ctx := context.Background()
	loanID := uuid.NewString()
	loan := suite.disbursedLoan(loanID, uuid.NewString(), uuid.NewString())
	loan.Status = domain.LoanStatusRequested

	suite.mockLoanRepo.On("FindLoanByID", ctx, loanID).Return(loan, nil).Once()
	suite.mockLoanRepo.On("UpdateLoanStatus", ctx, loanID, domain.LoanStatusRejected, "system", mock.AnythingOfType("time.Time")).Return(nil).Once()

	err := suite.service.RejectLoan(ctx, loanID, "system")

	suite.Require().NoError(err)
	suite.mockLoanRepo.AssertExpectations(suite.T())
}

func (suite *LoanServiceTestSuite) TestDisburseLoan_GeneratesScheduleOnce() {
	ctx := context.Background()
	loanID := uuid.NewString()
	loan := suite.disbursedLoan(loanID, uuid.NewString(), uuid.NewString())
	loan.Status = domain.LoanStatusApproved

	suite.mockLoanRepo.On("FindLoanByID", ctx, loanID).Return(loan, nil).Once()
	suite.mockSchema.On("ValidateOutbound", ctx, domain.EventLoanDisbursed, 1, mock.Anything).Return(nil).Once()
	suite.mockLoanRepo.On("MarkDisbursed", ctx, loanID, mock.MatchedBy(func(schedule []domain.ScheduleEntry) bool {
		if len(schedule) != loan.TermMonths {
			return false
		}
		total := decimal.Zero
		for _, entry := range schedule {
			total = total.Add(entry.Principal)
		}
		return total.Equal(loan.Principal)
	}), mock.MatchedBy(func(records []domain.OutboxRecord) bool {
		return len(records) == 1 && records[0].EventType == domain.EventLoanDisbursed
	}), "system", mock.AnythingOfType("time.Time")).Return(nil).Once()

	err := suite.service.DisburseLoan(ctx, loanID, "system")

	suite.Require().NoError(err)
	suite.mockLoanRepo.AssertExpectations(suite.T())
}

func (suite *LoanServiceTestSuite) TestDisburseLoan_AlreadyDisbursed_IsNoOp() {
	ctx := context.Background()
	loanID := uuid.NewString()
	loan := suite.disbursedLoan(loanID, uuid.NewString(), uuid.NewString())

	suite.mockLoanRepo.On("FindLoanByID", ctx, loanID).Return(loan, nil).Once()

	// Replayed workflow effect: the second call must not regenerate anything.
	err := suite.service.DisburseLoan(ctx, loanID, "system")

	suite.Require().NoError(err)
	suite.mockLoanRepo.AssertNotCalled(suite.T(), "MarkDisbursed", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *LoanServiceTestSuite) TestPostRepayment_LoanNotDisbursed() {
	ctx := context.Background()
	loanID := uuid.NewString()
	loan := suite.disbursedLoan(loanID, uuid.NewString(), uuid.NewString())
	loan.Status = domain.LoanStatusApproved

	suite.mockLoanRepo.On("FindLoanByID", ctx, loanID).Return(loan, nil).Once()

	txns, err := suite.service.PostRepayment(ctx, loanID, dto.PostRepaymentRequest{
		FromAccountID: uuid.NewString(),
		Amount:        decimal.NewFromInt(100),
	}, "user")

	suite.Require().Error(err)
	suite.Nil(txns)
	suite.ErrorIs(err, apperrors.ErrConflict)
}

func (suite *LoanServiceTestSuite) TestPostRepayment_InsufficientFunds() {
	ctx := context.Background()
	memberID := uuid.NewString()
	accountID := uuid.NewString()
	loanID := uuid.NewString()
	loan := suite.disbursedLoan(loanID, memberID, accountID)

	suite.mockLoanRepo.On("FindLoanByID", ctx, loanID).Return(loan, nil).Once()
	suite.mockAccountRepo.On("FindAccountByID", ctx, accountID).Return(suite.savingsAccount(accountID, memberID, decimal.NewFromInt(50)), nil).Once()

	txns, err := suite.service.PostRepayment(ctx, loanID, dto.PostRepaymentRequest{
		FromAccountID: accountID,
		Amount:        decimal.NewFromInt(100),
	}, "user")

	suite.Require().Error(err)
	suite.Nil(txns)
	suite.ErrorIs(err, apperrors.ErrInsufficientFunds)

	var appErr *apperrors.AppError
	suite.Require().ErrorAs(err, &appErr)
	suite.Equal(422, appErr.Code)
}

func (suite *LoanServiceTestSuite) TestPostRepayment_SettlesOldestInstallment() {
	ctx := context.Background()
	memberID := uuid.NewString()
	accountID := uuid.NewString()
	loanID := uuid.NewString()
	loan := suite.disbursedLoan(loanID, memberID, accountID)
	now := time.Now().UTC()

	schedule := []domain.ScheduleEntry{
		{
			ScheduleID:        uuid.NewString(),
			LoanID:            loanID,
			InstallmentNumber: 1,
			DueDate:           now.AddDate(0, -1, 0), // past due, should flip to OVERDUE before payment
			Principal:         decimal.NewFromInt(100),
			Interest:          decimal.NewFromInt(12),
			TotalDue:          decimal.NewFromInt(112),
			PaidAmount:        decimal.Zero,
			Penalty:           decimal.Zero,
			Status:            domain.ScheduleStatusPending,
		},
		{
			ScheduleID:        uuid.NewString(),
			LoanID:            loanID,
			InstallmentNumber: 2,
			DueDate:           now.AddDate(0, 1, 0),
			Principal:         decimal.NewFromInt(100),
			Interest:          decimal.NewFromInt(11),
			TotalDue:          decimal.NewFromInt(111),
			PaidAmount:        decimal.Zero,
			Penalty:           decimal.Zero,
			Status:            domain.ScheduleStatusPending,
		},
	}

	suite.mockLoanRepo.On("FindLoanByID", ctx, loanID).Return(loan, nil).Once()
	suite.mockAccountRepo.On("FindAccountByID", ctx, accountID).Return(suite.savingsAccount(accountID, memberID, decimal.NewFromInt(500)), nil).Once()
	suite.mockLoanRepo.On("ListScheduleByLoanID", ctx, loanID).Return(schedule, nil).Once()
	suite.mockAccountRepo.On("FindAccountByID", ctx, loan.LoanAccountID).
		Return(suite.loanControlAccount(loan.LoanAccountID, memberID, decimal.NewFromInt(223)), nil).Once()
	suite.mockSchema.On("ValidateOutbound", ctx, domain.EventRepaymentReceived, 1, mock.Anything).Return(nil).Once()

	suite.mockLoanRepo.On("ApplyRepayment", ctx,
		mock.MatchedBy(func(txns []domain.Transaction) bool {
			return len(txns) == 2 &&
				txns[0].TransactionType == domain.TransactionTypeRepayment &&
				txns[0].AccountID == accountID &&
				txns[0].EntrySide == domain.Debit &&
				txns[0].Amount.Equal(decimal.NewFromInt(150)) &&
				txns[1].AccountID == loan.LoanAccountID &&
				txns[1].EntrySide == domain.Credit &&
				txns[1].Amount.Equal(decimal.NewFromInt(150))
		}),
		mock.MatchedBy(func(balanceChanges map[string]decimal.Decimal) bool {
			// Debit to a credit-normal savings account and credit to the
			// debit-normal control account both carry a negative sign.
			savingsDelta, ok := balanceChanges[accountID]
			loanDelta, ok2 := balanceChanges[loan.LoanAccountID]
			return ok && ok2 &&
				savingsDelta.Equal(decimal.NewFromInt(-150)) &&
				loanDelta.Equal(decimal.NewFromInt(-150))
		}),
		mock.MatchedBy(func(updated []domain.ScheduleEntry) bool {
			if len(updated) != 2 {
				return false
			}
			first, second := updated[0], updated[1]
			return first.Status == domain.ScheduleStatusPaid &&
				first.PaidAmount.Equal(decimal.NewFromInt(112)) &&
				second.Status == domain.ScheduleStatusPending &&
				second.PaidAmount.Equal(decimal.NewFromInt(38))
		}),
		mock.MatchedBy(func(records []domain.OutboxRecord) bool {
			return len(records) == 1 && records[0].EventType == domain.EventRepaymentReceived
		}),
	).Return(nil).Once()

	txns, err := suite.service.PostRepayment(ctx, loanID, dto.PostRepaymentRequest{
		FromAccountID: accountID,
		Amount:        decimal.NewFromInt(150),
		Description:   "August repayment",
	}, "user")

	suite.Require().NoError(err)
	suite.Require().Len(txns, 2)
	suite.Equal(domain.TransactionStatusCompleted, txns[0].Status)
	suite.Equal(domain.TransactionStatusCompleted, txns[1].Status)
	suite.mockLoanRepo.AssertExpectations(suite.T())
}

func (suite *LoanServiceTestSuite) TestPostRepayment_Overpayment() {
	ctx := context.Background()
	memberID := uuid.NewString()
	accountID := uuid.NewString()
	loanID := uuid.NewString()
	loan := suite.disbursedLoan(loanID, memberID, accountID)
	now := time.Now().UTC()

	schedule := []domain.ScheduleEntry{
		{
			ScheduleID:        uuid.NewString(),
			LoanID:            loanID,
			InstallmentNumber: 1,
			DueDate:           now.AddDate(0, 1, 0),
			Principal:         decimal.NewFromInt(100),
			Interest:          decimal.NewFromInt(12),
			TotalDue:          decimal.NewFromInt(112),
			PaidAmount:        decimal.Zero,
			Penalty:           decimal.Zero,
			Status:            domain.ScheduleStatusPending,
		},
	}

	suite.mockLoanRepo.On("FindLoanByID", ctx, loanID).Return(loan, nil).Once()
	suite.mockAccountRepo.On("FindAccountByID", ctx, accountID).Return(suite.savingsAccount(accountID, memberID, decimal.NewFromInt(5000)), nil).Once()
	suite.mockLoanRepo.On("ListScheduleByLoanID", ctx, loanID).Return(schedule, nil).Once()

	txns, err := suite.service.PostRepayment(ctx, loanID, dto.PostRepaymentRequest{
		FromAccountID: accountID,
		Amount:        decimal.NewFromInt(200),
	}, "user")

	suite.Require().Error(err)
	suite.Nil(txns)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.mockLoanRepo.AssertNotCalled(suite.T(), "ApplyRepayment", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestLoanServiceTestSuite(t *testing.T) {
	suite.Run(t, new(LoanServiceTestSuite))
}

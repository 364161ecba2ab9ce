package services_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/wekeza-tech/coopcore/internal/apperrors"
	"github.com/wekeza-tech/coopcore/internal/core/domain"
	portsrepo "github.com/wekeza-tech/coopcore/internal/core/ports/repositories"
	portssvc "github.com/wekeza-tech/coopcore/internal/core/ports/services"
	"github.com/wekeza-tech/coopcore/internal/core/services"
	"github.com/wekeza-tech/coopcore/internal/dto"
)

// MockTransactionRepository is a mock type for the TransactionRepositoryFacade interface
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) FindTransactionsByTransferID(ctx context.Context, transferID string) ([]domain.Transaction, error) {
	args := m.Called(ctx, transferID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) FindReversalOf(ctx context.Context, originalTransactionID string) (*domain.Transaction, error) {
	args := m.Called(ctx, originalTransactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) ListTransactionsByAccountID(ctx context.Context, accountID string, limit int, nextToken *string) ([]domain.Transaction, *string, error) {
	args := m.Called(ctx, accountID, limit, nextToken)
	var txns []domain.Transaction
	if args.Get(0) != nil {
		txns = args.Get(0).([]domain.Transaction)
	}
	var token *string
	if args.Get(1) != nil {
		token = args.Get(1).(*string)
	}
	return txns, token, args.Error(2)
}

func (m *MockTransactionRepository) SavePosting(ctx context.Context, txns []domain.Transaction, balanceChanges map[string]decimal.Decimal, buildRecords portsrepo.PostingRecordsBuilder) error {
	// The mock holds no account rows, so each entry's running balance stands
	// in as the account's posting delta. Expectations match on the records the
	// builder produced.
	runningBalances := make(map[string]decimal.Decimal, len(txns))
	for _, txn := range txns {
		runningBalances[txn.TransactionID] = balanceChanges[txn.AccountID]
	}
	records, err := buildRecords(runningBalances)
	if err != nil {
		return err
	}
	args := m.Called(ctx, txns, balanceChanges, records)
	return args.Error(0)
}

func (m *MockTransactionRepository) SaveReversal(ctx context.Context, reversals []domain.Transaction, originalIDs []string, balanceChanges map[string]decimal.Decimal, records []domain.OutboxRecord) error {
	args := m.Called(ctx, reversals, originalIDs, balanceChanges, records)
	return args.Error(0)
}

func (m *MockTransactionRepository) InsertTransactionsInTx(ctx context.Context, tx pgx.Tx, txns []domain.Transaction, lockedAccounts map[string]domain.Account) (map[string]decimal.Decimal, error) {
	args := m.Called(ctx, tx, txns, lockedAccounts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]decimal.Decimal), args.Error(1)
}

// --- Test Suite Setup ---

type LedgerServiceTestSuite struct {
	suite.Suite
	mockAccountRepo *MockAccountRepository
	mockTxnRepo     *MockTransactionRepository
	mockSchema      *MockSchemaValidator
	service         portssvc.LedgerSvcFacade
}

func (suite *LedgerServiceTestSuite) SetupTest() {
	suite.mockAccountRepo = new(MockAccountRepository)
	suite.mockTxnRepo = new(MockTransactionRepository)
	suite.mockSchema = new(MockSchemaValidator)
	suite.service = services.NewLedgerService(suite.mockAccountRepo, suite.mockTxnRepo, suite.mockSchema)
}

func (suite *LedgerServiceTestSuite) activeSavings(accountID string, available decimal.Decimal) *domain.Account {
	return &domain.Account{
		AccountID:        accountID,
		MemberID:         uuid.NewString(),
		Name:             "Member Savings",
		AccountType:      domain.AccountTypeSavings,
		CurrencyCode:     "KES",
		CurrentBalance:   available,
		AvailableBalance: available,
		Status:           domain.AccountStatusActive,
	}
}

// --- Test Cases ---

func (suite *LedgerServiceTestSuite) TestPostTransaction_Deposit() {
	ctx := context.Background()
	accountID := uuid.NewString()
	account := suite.activeSavings(accountID, decimal.NewFromInt(100))

	suite.mockAccountRepo.On("FindAccountByID", ctx, accountID).Return(account, nil).Once()
	suite.mockSchema.On("ValidateOutbound", ctx, domain.EventDepositCompleted, 1, mock.Anything).Return(nil).Once()
	suite.mockTxnRepo.On("SavePosting", ctx,
		mock.MatchedBy(func(txns []domain.Transaction) bool {
			// A deposit credits the credit-normal savings account.
			return len(txns) == 1 &&
				txns[0].EntrySide == domain.Credit &&
				txns[0].Amount.Equal(decimal.NewFromInt(50)) &&
				txns[0].CurrencyCode == "KES"
		}),
		mock.MatchedBy(func(balanceChanges map[string]decimal.Decimal) bool {
			delta, ok := balanceChanges[accountID]
			return ok && delta.Equal(decimal.NewFromInt(50))
		}),
		mock.MatchedBy(func(records []domain.OutboxRecord) bool {
			return len(records) == 1 &&
				records[0].EventType == domain.EventDepositCompleted &&
				records[0].PartitionKey == accountID
		}),
	).Return(nil).Once()
	suite.mockTxnRepo.On("FindTransactionByID", ctx, mock.AnythingOfType("string")).Return(nil, apperrors.ErrNotFound).Once()

	txn, err := suite.service.PostTransaction(ctx, dto.PostTransactionRequest{
		AccountID:       accountID,
		TransactionType: domain.TransactionTypeDeposit,
		Amount:          decimal.NewFromInt(50),
	}, "user")

	suite.Require().NoError(err)
	suite.Require().NotNil(txn)
	suite.Equal(domain.TransactionStatusCompleted, txn.Status)
	suite.mockTxnRepo.AssertExpectations(suite.T())
}

func (suite *LedgerServiceTestSuite) TestPostTransaction_WithdrawalInsufficientFunds() {
	ctx := context.Background()
	accountID := uuid.NewString()
	account := suite.activeSavings(accountID, decimal.NewFromInt(20))

	suite.mockAccountRepo.On("FindAccountByID", ctx, accountID).Return(account, nil).Once()

	txn, err := suite.service.PostTransaction(ctx, dto.PostTransactionRequest{
		AccountID:       accountID,
		TransactionType: domain.TransactionTypeWithdrawal,
		Amount:          decimal.NewFromInt(50),
	}, "user")

	suite.Require().Error(err)
	suite.Nil(txn)
	suite.ErrorIs(err, apperrors.ErrInsufficientFunds)
	suite.mockTxnRepo.AssertNotCalled(suite.T(), "SavePosting", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *LedgerServiceTestSuite) TestPostTransaction_ClosedAccount() {
	ctx := context.Background()
	accountID := uuid.NewString()
	account := suite.activeSavings(accountID, decimal.NewFromInt(100))
	account.Status = domain.AccountStatusClosed

	suite.mockAccountRepo.On("FindAccountByID", ctx, accountID).Return(account, nil).Once()

	txn, err := suite.service.PostTransaction(ctx, dto.PostTransactionRequest{
		AccountID:       accountID,
		TransactionType: domain.TransactionTypeDeposit,
		Amount:          decimal.NewFromInt(10),
	}, "user")

	suite.Require().Error(err)
	suite.Nil(txn)
	suite.ErrorIs(err, apperrors.ErrConflict)
}

func (suite *LedgerServiceTestSuite) TestPostTransaction_NonPositiveAmount() {
	ctx := context.Background()

	txn, err := suite.service.PostTransaction(ctx, dto.PostTransactionRequest{
		AccountID:       uuid.NewString(),
		TransactionType: domain.TransactionTypeDeposit,
		Amount:          decimal.NewFromInt(-5),
	}, "user")

	suite.Require().Error(err)
	suite.Nil(txn)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *LedgerServiceTestSuite) TestPostTransaction_DisbursementWithContraLeg() {
	ctx := context.Background()
	savingsID := uuid.NewString()
	loanAccountID := uuid.NewString()
	savings := suite.activeSavings(savingsID, decimal.Zero)
	loanAccount := &domain.Account{
		AccountID:        loanAccountID,
		MemberID:         savings.MemberID,
		Name:             "Loan Control",
		AccountType:      domain.AccountTypeLoan,
		CurrencyCode:     "KES",
		CurrentBalance:   decimal.Zero,
		AvailableBalance: decimal.Zero,
		Status:           domain.AccountStatusActive,
	}

	suite.mockAccountRepo.On("FindAccountByID", ctx, savingsID).Return(savings, nil).Once()
	suite.mockAccountRepo.On("FindAccountByID", ctx, loanAccountID).Return(loanAccount, nil).Once()
	suite.mockSchema.On("ValidateOutbound", ctx, domain.EventDepositCompleted, 1, mock.Anything).Return(nil).Once()
	suite.mockTxnRepo.On("SavePosting", ctx,
		mock.MatchedBy(func(txns []domain.Transaction) bool {
			// A credited savings leg paired with a debit on the loan control
			// account, both carrying the principal.
			return len(txns) == 2 &&
				txns[0].AccountID == savingsID &&
				txns[0].EntrySide == domain.Credit &&
				txns[1].AccountID == loanAccountID &&
				txns[1].EntrySide == domain.Debit &&
				txns[1].Amount.Equal(decimal.NewFromInt(1200))
		}),
		mock.MatchedBy(func(balanceChanges map[string]decimal.Decimal) bool {
			// Credit-normal savings and the debit-normal loan account both
			// grow by the principal.
			return balanceChanges[savingsID].Equal(decimal.NewFromInt(1200)) &&
				balanceChanges[loanAccountID].Equal(decimal.NewFromInt(1200))
		}),
		mock.MatchedBy(func(records []domain.OutboxRecord) bool {
			return len(records) == 1 && records[0].EventType == domain.EventDepositCompleted
		}),
	).Return(nil).Once()
	suite.mockTxnRepo.On("FindTransactionByID", ctx, mock.AnythingOfType("string")).Return(nil, apperrors.ErrNotFound).Once()

	txn, err := suite.service.PostTransaction(ctx, dto.PostTransactionRequest{
		AccountID:       savingsID,
		ContraAccountID: loanAccountID,
		TransactionType: domain.TransactionTypeDisbursement,
		Amount:          decimal.NewFromInt(1200),
	}, "system")

	suite.Require().NoError(err)
	suite.Require().NotNil(txn)
	suite.Equal(savingsID, txn.AccountID)
	suite.mockTxnRepo.AssertExpectations(suite.T())
}

func (suite *LedgerServiceTestSuite) TestPostTransaction_ContraCurrencyMismatch() {
	ctx := context.Background()
	savingsID := uuid.NewString()
	loanAccountID := uuid.NewString()
	savings := suite.activeSavings(savingsID, decimal.Zero)
	loanAccount := &domain.Account{
		AccountID:    loanAccountID,
		AccountType:  domain.AccountTypeLoan,
		CurrencyCode: "USD",
		Status:       domain.AccountStatusActive,
	}

	suite.mockAccountRepo.On("FindAccountByID", ctx, savingsID).Return(savings, nil).Once()
	suite.mockAccountRepo.On("FindAccountByID", ctx, loanAccountID).Return(loanAccount, nil).Once()

	txn, err := suite.service.PostTransaction(ctx, dto.PostTransactionRequest{
		AccountID:       savingsID,
		ContraAccountID: loanAccountID,
		TransactionType: domain.TransactionTypeDisbursement,
		Amount:          decimal.NewFromInt(1200),
	}, "system")

	suite.Require().Error(err)
	suite.Nil(txn)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.mockTxnRepo.AssertNotCalled(suite.T(), "SavePosting", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *LedgerServiceTestSuite) TestTransfer_BalancedPair() {
	ctx := context.Background()
	fromID := uuid.NewString()
	toID := uuid.NewString()
	from := suite.activeSavings(fromID, decimal.NewFromInt(500))
	to := suite.activeSavings(toID, decimal.NewFromInt(10))

	suite.mockAccountRepo.On("FindAccountsByIDs", ctx, []string{fromID, toID}).Return(map[string]domain.Account{
		fromID: *from,
		toID:   *to,
	}, nil).Once()
	suite.mockSchema.On("ValidateOutbound", ctx, domain.EventTransferCompleted, 1, mock.Anything).Return(nil).Once()

	suite.mockTxnRepo.On("SavePosting", ctx,
		mock.MatchedBy(func(txns []domain.Transaction) bool {
			if len(txns) != 2 {
				return false
			}
			debit, credit := txns[0], txns[1]
			return debit.EntrySide == domain.Debit &&
				credit.EntrySide == domain.Credit &&
				debit.TransferID == credit.TransferID &&
				debit.TransferID != ""
		}),
		mock.MatchedBy(func(balanceChanges map[string]decimal.Decimal) bool {
			// The pair nets to zero across the two savings accounts.
			return balanceChanges[fromID].Equal(decimal.NewFromInt(-75)) &&
				balanceChanges[toID].Equal(decimal.NewFromInt(75))
		}),
		mock.MatchedBy(func(records []domain.OutboxRecord) bool {
			return len(records) == 1 && records[0].EventType == domain.EventTransferCompleted
		}),
	).Return(nil).Once()
	suite.mockTxnRepo.On("FindTransactionsByTransferID", ctx, mock.AnythingOfType("string")).Return(nil, apperrors.ErrNotFound).Once()

	txns, err := suite.service.Transfer(ctx, dto.TransferRequest{
		FromAccountID: fromID,
		ToAccountID:   toID,
		Amount:        decimal.NewFromInt(75),
	}, "user")

	suite.Require().NoError(err)
	suite.Require().Len(txns, 2)
	suite.mockTxnRepo.AssertExpectations(suite.T())
}

func (suite *LedgerServiceTestSuite) TestTransfer_CurrencyMismatch() {
	ctx := context.Background()
	fromID := uuid.NewString()
	toID := uuid.NewString()
	from := suite.activeSavings(fromID, decimal.NewFromInt(500))
	to := suite.activeSavings(toID, decimal.NewFromInt(10))
	to.CurrencyCode = "USD"

	suite.mockAccountRepo.On("FindAccountsByIDs", ctx, []string{fromID, toID}).Return(map[string]domain.Account{
		fromID: *from,
		toID:   *to,
	}, nil).Once()

	txns, err := suite.service.Transfer(ctx, dto.TransferRequest{
		FromAccountID: fromID,
		ToAccountID:   toID,
		Amount:        decimal.NewFromInt(75),
	}, "user")

	suite.Require().Error(err)
	suite.Nil(txns)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *LedgerServiceTestSuite) TestTransfer_SameAccount() {
	ctx := context.Background()
	accountID := uuid.NewString()

	txns, err := suite.service.Transfer(ctx, dto.TransferRequest{
		FromAccountID: accountID,
		ToAccountID:   accountID,
		Amount:        decimal.NewFromInt(75),
	}, "user")

	suite.Require().Error(err)
	suite.Nil(txns)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *LedgerServiceTestSuite) TestReverseTransaction_InvertsEntry() {
	ctx := context.Background()
	accountID := uuid.NewString()
	originalID := uuid.NewString()
	account := suite.activeSavings(accountID, decimal.NewFromInt(100))

	original := &domain.Transaction{
		TransactionID:   originalID,
		AccountID:       accountID,
		TransactionType: domain.TransactionTypeDeposit,
		EntrySide:       domain.Credit,
		Amount:          decimal.NewFromInt(40),
		CurrencyCode:    "KES",
		Status:          domain.TransactionStatusCompleted,
	}

	suite.mockTxnRepo.On("FindTransactionByID", ctx, originalID).Return(original, nil).Once()
	suite.mockTxnRepo.On("FindReversalOf", ctx, originalID).Return(nil, apperrors.ErrNotFound).Once()
	suite.mockAccountRepo.On("FindAccountsByIDs", ctx, []string{accountID}).Return(map[string]domain.Account{accountID: *account}, nil).Once()
	suite.mockSchema.On("ValidateOutbound", ctx, domain.EventTransactionReversed, 1, mock.Anything).Return(nil).Once()

	suite.mockTxnRepo.On("SaveReversal", ctx,
		mock.MatchedBy(func(reversals []domain.Transaction) bool {
			// A credited deposit is reversed by a debit referencing the original.
			return len(reversals) == 1 &&
				reversals[0].EntrySide == domain.Debit &&
				reversals[0].OriginalTransactionID == originalID &&
				reversals[0].Amount.Equal(decimal.NewFromInt(40))
		}),
		[]string{originalID},
		mock.MatchedBy(func(balanceChanges map[string]decimal.Decimal) bool {
			return balanceChanges[accountID].Equal(decimal.NewFromInt(-40))
		}),
		mock.MatchedBy(func(records []domain.OutboxRecord) bool {
			return len(records) == 1 && records[0].EventType == domain.EventTransactionReversed
		}),
	).Return(nil).Once()
	suite.mockTxnRepo.On("FindTransactionByID", ctx, mock.AnythingOfType("string")).Return(nil, apperrors.ErrNotFound).Once()

	reversal, err := suite.service.ReverseTransaction(ctx, originalID, "teller error", "user")

	suite.Require().NoError(err)
	suite.Require().NotNil(reversal)
	suite.Equal(originalID, reversal.OriginalTransactionID)
	suite.mockTxnRepo.AssertExpectations(suite.T())
}

func (suite *LedgerServiceTestSuite) TestReverseTransaction_AlreadyReversed() {
	ctx := context.Background()
	originalID := uuid.NewString()

	original := &domain.Transaction{
		TransactionID:   originalID,
		AccountID:       uuid.NewString(),
		TransactionType: domain.TransactionTypeDeposit,
		EntrySide:       domain.Credit,
		Amount:          decimal.NewFromInt(40),
		Status:          domain.TransactionStatusCompleted,
	}
	existing := &domain.Transaction{TransactionID: uuid.NewString(), OriginalTransactionID: originalID}

	suite.mockTxnRepo.On("FindTransactionByID", ctx, originalID).Return(original, nil).Once()
	suite.mockTxnRepo.On("FindReversalOf", ctx, originalID).Return(existing, nil).Once()

	reversal, err := suite.service.ReverseTransaction(ctx, originalID, "again", "user")

	suite.Require().Error(err)
	suite.Nil(reversal)
	suite.ErrorIs(err, apperrors.ErrAlreadyReversed)
	suite.mockTxnRepo.AssertNotCalled(suite.T(), "SaveReversal", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *LedgerServiceTestSuite) TestReverseTransaction_ReversalOfReversal() {
	ctx := context.Background()
	reversalID := uuid.NewString()

	reversalEntry := &domain.Transaction{
		TransactionID:         reversalID,
		AccountID:             uuid.NewString(),
		TransactionType:       domain.TransactionTypeDeposit,
		EntrySide:             domain.Debit,
		Amount:                decimal.NewFromInt(40),
		Status:                domain.TransactionStatusCompleted,
		OriginalTransactionID: uuid.NewString(),
	}

	suite.mockTxnRepo.On("FindTransactionByID", ctx, reversalID).Return(reversalEntry, nil).Once()

	reversal, err := suite.service.ReverseTransaction(ctx, reversalID, "undo the undo", "user")

	suite.Require().Error(err)
	suite.Nil(reversal)
	suite.ErrorIs(err, apperrors.ErrAlreadyReversed)
}

func (suite *LedgerServiceTestSuite) TestGetTransactionByID_NotFound() {
	ctx := context.Background()
	transactionID := uuid.NewString()

	suite.mockTxnRepo.On("FindTransactionByID", ctx, transactionID).Return(nil, apperrors.ErrNotFound).Once()

	txn, err := suite.service.GetTransactionByID(ctx, transactionID)

	suite.Require().Error(err)
	suite.Nil(txn)
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func TestLedgerServiceTestSuite(t *testing.T) {
	suite.Run(t, new(LedgerServiceTestSuite))
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wekeza-tech/coopcore/internal/apperrors"
	"github.com/wekeza-tech/coopcore/internal/core/domain"
	portsrepo "github.com/wekeza-tech/coopcore/internal/core/ports/repositories"
	portssvc "github.com/wekeza-tech/coopcore/internal/core/ports/services"
	"github.com/wekeza-tech/coopcore/internal/dto"
	"github.com/wekeza-tech/coopcore/internal/middleware"
	"github.com/wekeza-tech/coopcore/internal/utils/accounting"
)

// ledgerService is the only writer of financial truth. Every posting commits
// the ledger entries, the balance updates, and the outbox records describing
// the fact in one database transaction; nothing here retries on failure, the
// caller decides whether to re-submit.
type ledgerService struct {
	accountRepo portsrepo.AccountRepositoryFacade
	txnRepo     portsrepo.TransactionRepositoryFacade
	schemaSvc   portssvc.SchemaValidatorSvc
}

// NewLedgerService creates a new LedgerService.
func NewLedgerService(accountRepo portsrepo.AccountRepositoryFacade, txnRepo portsrepo.TransactionRepositoryFacade, schemaSvc portssvc.SchemaValidatorSvc) portssvc.LedgerSvcFacade {
	return &ledgerService{
		accountRepo: accountRepo,
		txnRepo:     txnRepo,
		schemaSvc:   schemaSvc,
	}
}

// Ensure ledgerService implements the portssvc.LedgerSvcFacade interface
var _ portssvc.LedgerSvcFacade = (*ledgerService)(nil)

// entrySideFor maps a transaction type to the side posted against a member
// account. Money arriving (deposit, disbursement, interest) credits the
// credit-normal savings account; money leaving (withdrawal, fee, repayment)
// debits it.
func entrySideFor(txnType domain.TransactionType) (domain.EntrySide, error) {
	switch txnType {
	case domain.TransactionTypeDeposit, domain.TransactionTypeDisbursement, domain.TransactionTypeInterest:
		return domain.Credit, nil
	case domain.TransactionTypeWithdrawal, domain.TransactionTypeFee, domain.TransactionTypeRepayment:
		return domain.Debit, nil
	default:
		return "", apperrors.NewValidationError("unsupported transaction type " + string(txnType))
	}
}

// eventTypeFor maps a committed transaction type to the event announcing it.
// A disbursement lands in the member's savings account, so downstream it is
// the same deposit.completed fact the origination workflow waits for.
func eventTypeFor(txnType domain.TransactionType) string {
	switch txnType {
	case domain.TransactionTypeWithdrawal:
		return domain.EventWithdrawalProcessed
	case domain.TransactionTypeFee:
		return domain.EventFeeApplied
	case domain.TransactionTypeInterest:
		return domain.EventInterestAccrued
	case domain.TransactionTypeRepayment:
		return domain.EventRepaymentReceived
	default:
		return domain.EventDepositCompleted
	}
}

// PostTransaction validates and commits a posting against a member account.
// When the request names a contra account the posting becomes a balanced
// double-entry pair, with the opposite side booked against the contra. The
// insufficient-funds check here is a fast pre-check on a read snapshot; the
// repository re-checks against the locked row inside the transaction, and the
// emitted event carries the running balance computed under that lock.
func (s *ledgerService) PostTransaction(ctx context.Context, req dto.PostTransactionRequest, creatorUserID string) (*domain.Transaction, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperrors.NewValidationError("transaction amount must be positive")
	}

	side, err := entrySideFor(req.TransactionType)
	if err != nil {
		return nil, err
	}

	account, err := s.accountRepo.FindAccountByID(ctx, req.AccountID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("account " + req.AccountID + " not found")
		}
		return nil, fmt.Errorf("failed to find account %s: %w", req.AccountID, err)
	}
	if !account.IsActive() {
		return nil, apperrors.NewConflictError("account " + req.AccountID + " is closed and cannot accept postings")
	}
	if side == domain.Debit && account.AccountType == domain.AccountTypeSavings && account.AvailableBalance.LessThan(req.Amount) {
		return nil, apperrors.NewAppError(422, "insufficient funds in account "+req.AccountID, apperrors.ErrInsufficientFunds)
	}

	accounts := map[string]domain.Account{req.AccountID: *account}
	if req.ContraAccountID != "" {
		if req.ContraAccountID == req.AccountID {
			return nil, apperrors.NewValidationError("contra account must differ from the posting account")
		}
		contra, err := s.accountRepo.FindAccountByID(ctx, req.ContraAccountID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, apperrors.NewNotFoundError("account " + req.ContraAccountID + " not found")
			}
			return nil, fmt.Errorf("failed to find account %s: %w", req.ContraAccountID, err)
		}
		if !contra.IsActive() {
			return nil, apperrors.NewConflictError("account " + req.ContraAccountID + " is closed and cannot accept postings")
		}
		if contra.CurrencyCode != account.CurrencyCode {
			return nil, apperrors.NewValidationError("posting accounts must share a currency")
		}
		accounts[req.ContraAccountID] = *contra
	}

	now := time.Now().UTC()
	valueDate := now
	if req.ValueDate != nil {
		valueDate = req.ValueDate.UTC()
	}

	txn := domain.Transaction{
		TransactionID:   uuid.NewString(),
		AccountID:       req.AccountID,
		TransactionType: req.TransactionType,
		EntrySide:       side,
		Amount:          req.Amount,
		CurrencyCode:    account.CurrencyCode,
		Status:          domain.TransactionStatusCompleted,
		TransactionDate: now,
		ValueDate:       valueDate,
		Description:     req.Description,
		AuditFields:     domain.NewAuditFields(creatorUserID, now),
	}

	entries := []domain.Transaction{txn}
	if req.ContraAccountID != "" {
		contraSide := domain.Credit
		if side == domain.Credit {
			contraSide = domain.Debit
		}
		entries = append(entries, domain.Transaction{
			TransactionID:   uuid.NewString(),
			AccountID:       req.ContraAccountID,
			TransactionType: req.TransactionType,
			EntrySide:       contraSide,
			Amount:          req.Amount,
			CurrencyCode:    account.CurrencyCode,
			Status:          domain.TransactionStatusCompleted,
			TransactionDate: now,
			ValueDate:       valueDate,
			Description:     req.Description,
			AuditFields:     txn.AuditFields,
		})
		if err := accounting.ValidateBalancedEntries(entries); err != nil {
			return nil, apperrors.NewValidationError(err.Error())
		}
	}

	balanceChanges, err := signedBalanceChanges(entries, accounts)
	if err != nil {
		return nil, err
	}

	buildRecords := func(runningBalances map[string]decimal.Decimal) ([]domain.OutboxRecord, error) {
		record, err := newOutboxRecord(ctx, s.schemaSvc, eventTypeFor(req.TransactionType), dto.TransactionEventPayload{
			TransactionID:   txn.TransactionID,
			AccountID:       txn.AccountID,
			TransactionType: string(txn.TransactionType),
			EntrySide:       string(txn.EntrySide),
			Amount:          txn.Amount,
			CurrencyCode:    txn.CurrencyCode,
			RunningBalance:  runningBalances[txn.TransactionID],
			TransactionDate: txn.TransactionDate,
			Description:     txn.Description,
		}, txn.TransactionID, req.CorrelationID, txn.AccountID, now)
		if err != nil {
			return nil, err
		}
		return []domain.OutboxRecord{record}, nil
	}

	if err := s.txnRepo.SavePosting(ctx, entries, balanceChanges, buildRecords); err != nil {
		return nil, err
	}

	logger.Info("Transaction posted",
		slog.String("transaction_id", txn.TransactionID),
		slog.String("account_id", txn.AccountID),
		slog.String("type", string(txn.TransactionType)),
		slog.String("amount", txn.Amount.String()),
	)

	committed, err := s.txnRepo.FindTransactionByID(ctx, txn.TransactionID)
	if err != nil {
		// The posting committed; fall back to the pre-commit view.
		return &txn, nil
	}
	return committed, nil
}

// Transfer commits the paired debit and credit entries between two accounts.
// Both accounts are locked inside the repository in sorted id order; the
// signed amounts of the pair sum to zero.
func (s *ledgerService) Transfer(ctx context.Context, req dto.TransferRequest, creatorUserID string) ([]domain.Transaction, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperrors.NewValidationError("transfer amount must be positive")
	}
	if req.FromAccountID == req.ToAccountID {
		return nil, apperrors.NewValidationError("transfer requires two different accounts")
	}

	accounts, err := s.accountRepo.FindAccountsByIDs(ctx, []string{req.FromAccountID, req.ToAccountID})
	if err != nil {
		return nil, fmt.Errorf("failed to find transfer accounts: %w", err)
	}
	from, ok := accounts[req.FromAccountID]
	if !ok {
		return nil, apperrors.NewNotFoundError("account " + req.FromAccountID + " not found")
	}
	to, ok := accounts[req.ToAccountID]
	if !ok {
		return nil, apperrors.NewNotFoundError("account " + req.ToAccountID + " not found")
	}
	if !from.IsActive() || !to.IsActive() {
		return nil, apperrors.NewConflictError("both transfer accounts must be active")
	}
	if from.CurrencyCode != to.CurrencyCode {
		return nil, apperrors.NewValidationError("transfer accounts must share a currency")
	}
	if from.AccountType == domain.AccountTypeSavings && from.AvailableBalance.LessThan(req.Amount) {
		return nil, apperrors.NewAppError(422, "insufficient funds in account "+req.FromAccountID, apperrors.ErrInsufficientFunds)
	}

	now := time.Now().UTC()
	transferID := uuid.NewString()
	audit := domain.NewAuditFields(creatorUserID, now)

	debit := domain.Transaction{
		TransactionID:   uuid.NewString(),
		AccountID:       req.FromAccountID,
		TransactionType: domain.TransactionTypeTransfer,
		EntrySide:       domain.Debit,
		Amount:          req.Amount,
		CurrencyCode:    from.CurrencyCode,
		Status:          domain.TransactionStatusCompleted,
		TransactionDate: now,
		ValueDate:       now,
		TransferID:      transferID,
		Description:     req.Description,
		AuditFields:     audit,
	}
	credit := domain.Transaction{
		TransactionID:   uuid.NewString(),
		AccountID:       req.ToAccountID,
		TransactionType: domain.TransactionTypeTransfer,
		EntrySide:       domain.Credit,
		Amount:          req.Amount,
		CurrencyCode:    to.CurrencyCode,
		Status:          domain.TransactionStatusCompleted,
		TransactionDate: now,
		ValueDate:       now,
		TransferID:      transferID,
		Description:     req.Description,
		AuditFields:     audit,
	}

	entries := []domain.Transaction{debit, credit}
	if err := accounting.ValidateBalancedEntries(entries); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	balanceChanges, err := signedBalanceChanges(entries, accounts)
	if err != nil {
		return nil, err
	}

	record, err := newOutboxRecord(ctx, s.schemaSvc, domain.EventTransferCompleted, dto.TransferCompletedPayload{
		TransferID:          transferID,
		DebitTransactionID:  debit.TransactionID,
		CreditTransactionID: credit.TransactionID,
		FromAccountID:       req.FromAccountID,
		ToAccountID:         req.ToAccountID,
		Amount:              req.Amount,
		CurrencyCode:        from.CurrencyCode,
	}, debit.TransactionID, "", req.FromAccountID, now)
	if err != nil {
		return nil, err
	}

	if err := s.txnRepo.SavePosting(ctx, entries, balanceChanges, staticPostingRecords(record)); err != nil {
		return nil, err
	}

	logger.Info("Transfer posted",
		slog.String("transfer_id", transferID),
		slog.String("from_account_id", req.FromAccountID),
		slog.String("to_account_id", req.ToAccountID),
		slog.String("amount", req.Amount.String()),
	)

	committed, err := s.txnRepo.FindTransactionsByTransferID(ctx, transferID)
	if err != nil {
		return entries, nil
	}
	return committed, nil
}

// ReverseTransaction creates inverted entries referencing the original and
// flips it to REVERSED. The original row's amounts are never touched;
// corrections are always new entries. A transfer reverses both legs.
func (s *ledgerService) ReverseTransaction(ctx context.Context, transactionID string, reason string, userID string) (*domain.Transaction, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	original, err := s.txnRepo.FindTransactionByID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("transaction " + transactionID + " not found")
		}
		return nil, fmt.Errorf("failed to find transaction %s: %w", transactionID, err)
	}

	if original.IsReversal() {
		return nil, apperrors.NewAppError(409, "transaction "+transactionID+" is itself a reversal", apperrors.ErrAlreadyReversed)
	}
	if original.Status != domain.TransactionStatusCompleted {
		return nil, apperrors.NewAppError(409, "transaction "+transactionID+" is not reversible", apperrors.ErrAlreadyReversed)
	}
	if _, err := s.txnRepo.FindReversalOf(ctx, transactionID); err == nil {
		return nil, apperrors.NewAppError(409, "transaction "+transactionID+" already reversed", apperrors.ErrAlreadyReversed)
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to check reversals of %s: %w", transactionID, err)
	}

	// A transfer reverses both legs or none.
	originals := []domain.Transaction{*original}
	if original.TransferID != "" {
		originals, err = s.txnRepo.FindTransactionsByTransferID(ctx, original.TransferID)
		if err != nil {
			return nil, fmt.Errorf("failed to load transfer %s legs: %w", original.TransferID, err)
		}
	}

	accountIDs := make([]string, 0, len(originals))
	for _, o := range originals {
		accountIDs = append(accountIDs, o.AccountID)
	}
	accounts, err := s.accountRepo.FindAccountsByIDs(ctx, accountIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to find accounts for reversal: %w", err)
	}

	now := time.Now().UTC()
	audit := domain.NewAuditFields(userID, now)
	reversals := make([]domain.Transaction, 0, len(originals))
	originalIDs := make([]string, 0, len(originals))
	for _, o := range originals {
		side := domain.Debit
		if o.EntrySide == domain.Debit {
			side = domain.Credit
		}
		reversals = append(reversals, domain.Transaction{
			TransactionID:         uuid.NewString(),
			AccountID:             o.AccountID,
			TransactionType:       o.TransactionType,
			EntrySide:             side,
			Amount:                o.Amount,
			CurrencyCode:          o.CurrencyCode,
			Status:                domain.TransactionStatusCompleted,
			TransactionDate:       now,
			ValueDate:             now,
			TransferID:            o.TransferID,
			OriginalTransactionID: o.TransactionID,
			Description:           reason,
			AuditFields:           audit,
		})
		originalIDs = append(originalIDs, o.TransactionID)
	}

	balanceChanges, err := signedBalanceChanges(reversals, accounts)
	if err != nil {
		return nil, err
	}

	record, err := newOutboxRecord(ctx, s.schemaSvc, domain.EventTransactionReversed, dto.TransactionReversedPayload{
		OriginalTransactionID: original.TransactionID,
		ReversalTransactionID: reversals[0].TransactionID,
		AccountID:             original.AccountID,
		Amount:                original.Amount,
		Reason:                reason,
	}, reversals[0].TransactionID, "", original.AccountID, now)
	if err != nil {
		return nil, err
	}

	if err := s.txnRepo.SaveReversal(ctx, reversals, originalIDs, balanceChanges, []domain.OutboxRecord{record}); err != nil {
		return nil, err
	}

	logger.Info("Transaction reversed",
		slog.String("original_transaction_id", original.TransactionID),
		slog.String("reversal_transaction_id", reversals[0].TransactionID),
	)

	committed, err := s.txnRepo.FindTransactionByID(ctx, reversals[0].TransactionID)
	if err != nil {
		return &reversals[0], nil
	}
	return committed, nil
}

// GetTransactionByID retrieves a single committed entry.
func (s *ledgerService) GetTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	txn, err := s.txnRepo.FindTransactionByID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("transaction " + transactionID + " not found")
		}
		return nil, fmt.Errorf("failed to find transaction %s: %w", transactionID, err)
	}
	return txn, nil
}

// ListTransactionsByAccount retrieves an account's entries, newest first,
// with token-based pagination.
func (s *ledgerService) ListTransactionsByAccount(ctx context.Context, accountID string, params dto.ListTransactionsParams) (*dto.ListTransactionsResponse, error) {
	if _, err := s.accountRepo.FindAccountByID(ctx, accountID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("account " + accountID + " not found")
		}
		return nil, fmt.Errorf("failed to find account %s: %w", accountID, err)
	}

	txns, nextToken, err := s.txnRepo.ListTransactionsByAccountID(ctx, accountID, params.Limit, params.NextToken)
	if err != nil {
		return nil, err
	}

	return &dto.ListTransactionsResponse{
		Transactions: dto.ToTransactionResponses(txns),
		NextToken:    nextToken,
	}, nil
}

// staticPostingRecords adapts records whose payloads carry no running balance
// to the SavePosting builder contract.
func staticPostingRecords(records ...domain.OutboxRecord) portsrepo.PostingRecordsBuilder {
	return func(map[string]decimal.Decimal) ([]domain.OutboxRecord, error) {
		return records, nil
	}
}

// signedBalanceChanges folds a posting's entries into per-account signed
// deltas using each account's normal side.
func signedBalanceChanges(entries []domain.Transaction, accounts map[string]domain.Account) (map[string]decimal.Decimal, error) {
	changes := make(map[string]decimal.Decimal, len(accounts))
	for _, e := range entries {
		acc, ok := accounts[e.AccountID]
		if !ok {
			return nil, apperrors.NewNotFoundError("account " + e.AccountID + " not found")
		}
		signed, err := accounting.CalculateSignedAmount(e, acc.AccountType)
		if err != nil {
			return nil, fmt.Errorf("failed to sign entry amount: %w", err)
		}
		changes[e.AccountID] = changes[e.AccountID].Add(signed)
	}
	return changes, nil
}

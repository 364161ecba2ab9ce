package services

import (
	"context"
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
	"github.com/wekeza-tech/coopcore/internal/utils/accounting"
)

// loanService owns the loan lifecycle: member-facing requests and repayments,
// and the workflow-driven approve/reject/disburse transitions the coordinator
// invokes as side effects. Money only moves through atomic repository writes
// that carry their outbox records.
type loanService struct {
	loanRepo    portsrepo.LoanRepositoryFacade
	accountRepo portsrepo.AccountRepositoryFacade
	memberRepo  portsrepo.MemberReader
	schemaSvc   portssvc.SchemaValidatorSvc

	// workflows is attached after construction; the coordinator and the loan
	// service reference each other (RequestLoan starts workflows, workflow
	// effects drive loan transitions).
	workflows portssvc.SagaCoordinatorSvc
}

// NewLoanService creates a new LoanService. AttachWorkflowCoordinator must be
// called before RequestLoan is used.
func NewLoanService(
	loanRepo portsrepo.LoanRepositoryFacade,
	accountRepo portsrepo.AccountRepositoryFacade,
	memberRepo portsrepo.MemberReader,
	schemaSvc portssvc.SchemaValidatorSvc,
) portssvc.LoanSvcFacade {
	return &loanService{
		loanRepo:    loanRepo,
		accountRepo: accountRepo,
		memberRepo:  memberRepo,
		schemaSvc:   schemaSvc,
	}
}

// Ensure loanService implements the portssvc.LoanSvcFacade interface
var _ portssvc.LoanSvcFacade = (*loanService)(nil)

// AttachWorkflowCoordinator wires the saga coordinator in after both services
// exist. Called once from the service container.
func (s *loanService) AttachWorkflowCoordinator(saga portssvc.SagaCoordinatorSvc) {
	s.workflows = saga
}

// RequestLoan opens the loan's debit-normal control account, records the
// loan, and starts its origination workflow. The control account carries the
// outstanding principal: disbursement debits it, repayments credit it. The
// workflow is started before the loan row so the row can carry the
// correlation id; a save failure after that leaves a dangling instance, which
// the deadline sweep fails and compensates on its own.
func (s *loanService) RequestLoan(ctx context.Context, req dto.RequestLoanRequest, creatorUserID string) (*domain.Loan, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if s.workflows == nil {
		return nil, apperrors.NewInternalServerError("loan service has no workflow coordinator attached")
	}
	if req.Principal.LessThanOrEqual(decimal.Zero) {
		return nil, apperrors.NewValidationError("loan principal must be positive")
	}
	if req.InterestRate.IsNegative() {
		return nil, apperrors.NewValidationError("interest rate cannot be negative")
	}
	if req.TermMonths < 1 {
		return nil, apperrors.NewValidationError("loan term must be at least one month")
	}

	member, err := s.memberRepo.FindMemberByID(ctx, req.MemberID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("member " + req.MemberID + " not found")
		}
		return nil, fmt.Errorf("failed to find member %s: %w", req.MemberID, err)
	}
	if member.Status != domain.MemberStatusActive {
		return nil, apperrors.NewConflictError("member " + req.MemberID + " is not active")
	}

	account, err := s.accountRepo.FindAccountByID(ctx, req.AccountID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("account " + req.AccountID + " not found")
		}
		return nil, fmt.Errorf("failed to find account %s: %w", req.AccountID, err)
	}
	if account.MemberID != req.MemberID {
		return nil, apperrors.NewValidationError("account " + req.AccountID + " does not belong to member " + req.MemberID)
	}
	if !account.IsActive() || account.AccountType != domain.AccountTypeSavings {
		return nil, apperrors.NewConflictError("disbursement target must be an active savings account")
	}

	now := time.Now().UTC()
	loanAccount := domain.Account{
		AccountID:        uuid.NewString(),
		MemberID:         req.MemberID,
		Name:             member.Name + " Loan",
		AccountType:      domain.AccountTypeLoan,
		CurrencyCode:     account.CurrencyCode,
		CurrentBalance:   decimal.Zero,
		AvailableBalance: decimal.Zero,
		Status:           domain.AccountStatusActive,
		AuditFields:      domain.NewAuditFields(creatorUserID, now),
	}
	if err := s.accountRepo.SaveAccount(ctx, loanAccount); err != nil {
		return nil, fmt.Errorf("failed to create loan account: %w", err)
	}

	loan := domain.Loan{
		LoanID:        uuid.NewString(),
		MemberID:      req.MemberID,
		AccountID:     req.AccountID,
		LoanAccountID: loanAccount.AccountID,
		Principal:     req.Principal,
		InterestRate:  req.InterestRate,
		TermMonths:    req.TermMonths,
		Status:        domain.LoanStatusRequested,
		AuditFields:   domain.NewAuditFields(creatorUserID, now),
	}

	instance, err := s.workflows.StartWorkflow(ctx, domain.WorkflowLoanOrigination, map[string]string{
		ctxKeyLoanID:        loan.LoanID,
		ctxKeyMemberID:      loan.MemberID,
		ctxKeyAccountID:     loan.AccountID,
		ctxKeyLoanAccountID: loan.LoanAccountID,
		ctxKeyPrincipal:     loan.Principal.String(),
		ctxKeyInterestRate:  loan.InterestRate.String(),
		ctxKeyTermMonths:    strconv.Itoa(loan.TermMonths),
	}, creatorUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to start origination workflow: %w", err)
	}
	loan.CorrelationID = instance.CorrelationID

	if err := s.loanRepo.SaveLoan(ctx, loan); err != nil {
		logger.Error("Loan save failed after workflow start; instance will fail on deadline",
			slog.String("loan_id", loan.LoanID),
			slog.String("correlation_id", loan.CorrelationID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to save loan: %w", err)
	}

	logger.Info("Loan requested",
		slog.String("loan_id", loan.LoanID),
		slog.String("member_id", loan.MemberID),
		slog.String("principal", loan.Principal.String()),
		slog.String("correlation_id", loan.CorrelationID),
	)
	return &loan, nil
}

// GetLoanByID retrieves a specific loan.
func (s *loanService) GetLoanByID(ctx context.Context, loanID string) (*domain.Loan, error) {
	loan, err := s.loanRepo.FindLoanByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("loan " + loanID + " not found")
		}
		return nil, fmt.Errorf("failed to find loan %s: %w", loanID, err)
	}
	return loan, nil
}

// GetRepaymentSchedule retrieves the loan's schedule ordered by installment.
func (s *loanService) GetRepaymentSchedule(ctx context.Context, loanID string) ([]domain.ScheduleEntry, error) {
	if _, err := s.GetLoanByID(ctx, loanID); err != nil {
		return nil, err
	}
	schedule, err := s.loanRepo.ListScheduleByLoanID(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedule for loan %s: %w", loanID, err)
	}
	return schedule, nil
}

// ApproveLoan marks the loan APPROVED. Invoked as a workflow effect;
// idempotent on replays since the status write is absolute.
func (s *loanService) ApproveLoan(ctx context.Context, loanID string, userID string) error {
	return s.transitionLoan(ctx, loanID, domain.LoanStatusApproved, userID)
}

// RejectLoan marks the loan REJECTED. Also used as the compensating loan
// transition when a workflow fails or is cancelled.
func (s *loanService) RejectLoan(ctx context.Context, loanID string, userID string) error {
	return s.transitionLoan(ctx, loanID, domain.LoanStatusRejected, userID)
}

func (s *loanService) transitionLoan(ctx context.Context, loanID string, status domain.LoanStatus, userID string) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	loan, err := s.loanRepo.FindLoanByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NewNotFoundError("loan " + loanID + " not found")
		}
		return fmt.Errorf("failed to find loan %s: %w", loanID, err)
	}
	if loan.Status == status {
		return nil
	}

	if err := s.loanRepo.UpdateLoanStatus(ctx, loanID, status, userID, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to move loan %s to %s: %w", loanID, status, err)
	}

	logger.Info("Loan status changed",
		slog.String("loan_id", loanID),
		slog.String("from", string(loan.Status)),
		slog.String("to", string(status)),
	)
	return nil
}

// DisburseLoan marks the loan DISBURSED, generates its repayment schedule
// once, and emits loan.disbursed, atomically. The repository rejects a second
// schedule generation, so a replayed effect cannot duplicate installments.
func (s *loanService) DisburseLoan(ctx context.Context, loanID string, userID string) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	loan, err := s.loanRepo.FindLoanByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NewNotFoundError("loan " + loanID + " not found")
		}
		return fmt.Errorf("failed to find loan %s: %w", loanID, err)
	}
	if loan.Status == domain.LoanStatusDisbursed {
		return nil
	}

	now := time.Now().UTC()
	firstDue := now.AddDate(0, 1, 0)
	schedule := accounting.GenerateSchedule(*loan, firstDue, userID, now)

	record, err := newOutboxRecord(ctx, s.schemaSvc, domain.EventLoanDisbursed, dto.LoanEventPayload{
		LoanID:       loan.LoanID,
		MemberID:     loan.MemberID,
		AccountID:    loan.AccountID,
		Principal:    loan.Principal,
		InterestRate: loan.InterestRate,
		TermMonths:   loan.TermMonths,
	}, "", loan.CorrelationID, loan.AccountID, now)
	if err != nil {
		return err
	}

	if err := s.loanRepo.MarkDisbursed(ctx, loanID, schedule, []domain.OutboxRecord{record}, userID, now); err != nil {
		return fmt.Errorf("failed to mark loan %s disbursed: %w", loanID, err)
	}

	logger.Info("Loan disbursed",
		slog.String("loan_id", loanID),
		slog.Int("installments", len(schedule)),
	)
	return nil
}

// PostRepayment posts the balanced repayment pair, debiting the member's
// funding account and crediting the loan's control account, and applies the
// payment to the oldest unpaid installments, all atomically. Installments
// past their due date are flagged OVERDUE in the same write.
func (s *loanService) PostRepayment(ctx context.Context, loanID string, req dto.PostRepaymentRequest, userID string) ([]domain.Transaction, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperrors.NewValidationError("repayment amount must be positive")
	}

	loan, err := s.loanRepo.FindLoanByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("loan " + loanID + " not found")
		}
		return nil, fmt.Errorf("failed to find loan %s: %w", loanID, err)
	}
	if loan.Status != domain.LoanStatusDisbursed {
		return nil, apperrors.NewConflictError("loan " + loanID + " is not disbursed and cannot accept repayments")
	}

	account, err := s.accountRepo.FindAccountByID(ctx, req.FromAccountID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("account " + req.FromAccountID + " not found")
		}
		return nil, fmt.Errorf("failed to find account %s: %w", req.FromAccountID, err)
	}
	if !account.IsActive() {
		return nil, apperrors.NewConflictError("account " + req.FromAccountID + " is closed")
	}
	if account.MemberID != loan.MemberID {
		return nil, apperrors.NewValidationError("repayment account does not belong to the borrower")
	}
	if account.AccountType != domain.AccountTypeSavings {
		return nil, apperrors.NewValidationError("repayments must be funded from a savings account")
	}
	if account.AvailableBalance.LessThan(req.Amount) {
		return nil, apperrors.NewAppError(422, "insufficient funds in account "+req.FromAccountID, apperrors.ErrInsufficientFunds)
	}

	schedule, err := s.loanRepo.ListScheduleByLoanID(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedule for loan %s: %w", loanID, err)
	}

	now := time.Now().UTC()
	updated, settled, leftover := allocateRepayment(schedule, req.Amount, userID, now)
	if !leftover.IsZero() {
		return nil, apperrors.NewValidationError("repayment exceeds the loan's outstanding balance by " + leftover.String())
	}

	loanAccount, err := s.accountRepo.FindAccountByID(ctx, loan.LoanAccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to find loan account %s: %w", loan.LoanAccountID, err)
	}

	audit := domain.NewAuditFields(userID, now)
	debit := domain.Transaction{
		TransactionID:   uuid.NewString(),
		AccountID:       req.FromAccountID,
		TransactionType: domain.TransactionTypeRepayment,
		EntrySide:       domain.Debit,
		Amount:          req.Amount,
		CurrencyCode:    account.CurrencyCode,
		Status:          domain.TransactionStatusCompleted,
		TransactionDate: now,
		ValueDate:       now,
		Description:     req.Description,
		AuditFields:     audit,
	}
	// Crediting the debit-normal control account reduces the outstanding
	// principal it carries.
	credit := domain.Transaction{
		TransactionID:   uuid.NewString(),
		AccountID:       loan.LoanAccountID,
		TransactionType: domain.TransactionTypeRepayment,
		EntrySide:       domain.Credit,
		Amount:          req.Amount,
		CurrencyCode:    loanAccount.CurrencyCode,
		Status:          domain.TransactionStatusCompleted,
		TransactionDate: now,
		ValueDate:       now,
		Description:     req.Description,
		AuditFields:     audit,
	}

	entries := []domain.Transaction{debit, credit}
	if err := accounting.ValidateBalancedEntries(entries); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	balanceChanges, err := signedBalanceChanges(entries, map[string]domain.Account{
		req.FromAccountID:  *account,
		loan.LoanAccountID: *loanAccount,
	})
	if err != nil {
		return nil, err
	}

	record, err := newOutboxRecord(ctx, s.schemaSvc, domain.EventRepaymentReceived, dto.RepaymentReceivedPayload{
		LoanID:              loanID,
		TransactionID:       debit.TransactionID,
		Amount:              req.Amount,
		InstallmentsSettled: settled,
	}, debit.TransactionID, loan.CorrelationID, req.FromAccountID, now)
	if err != nil {
		return nil, err
	}

	err = s.loanRepo.ApplyRepayment(ctx, entries, balanceChanges, updated, []domain.OutboxRecord{record})
	if err != nil {
		return nil, err
	}

	logger.Info("Repayment posted",
		slog.String("loan_id", loanID),
		slog.String("transaction_id", debit.TransactionID),
		slog.String("amount", req.Amount.String()),
		slog.Int("installments_settled", len(settled)),
	)
	return entries, nil
}

// allocateRepayment walks the schedule in installment order, marks past-due
// open entries OVERDUE, and applies the amount oldest-first. It returns the
// entries that changed, the installment numbers fully settled, and whatever
// part of the amount the schedule could not absorb.
func allocateRepayment(schedule []domain.ScheduleEntry, amount decimal.Decimal, userID string, now time.Time) ([]domain.ScheduleEntry, []int, decimal.Decimal) {
	remaining := amount
	updated := make([]domain.ScheduleEntry, 0, len(schedule))
	settled := []int{}

	for _, entry := range schedule {
		if entry.Status == domain.ScheduleStatusPaid || entry.Status == domain.ScheduleStatusWaived {
			continue
		}

		changed := false
		if entry.Status == domain.ScheduleStatusPending && entry.DueDate.Before(now) {
			entry.Status = domain.ScheduleStatusOverdue
			changed = true
		}

		if remaining.IsPositive() {
			outstanding := entry.Outstanding()
			portion := decimal.Min(outstanding, remaining)
			if portion.IsPositive() {
				entry.PaidAmount = entry.PaidAmount.Add(portion)
				remaining = remaining.Sub(portion)
				changed = true
				if entry.Outstanding().IsZero() {
					entry.Status = domain.ScheduleStatusPaid
					settled = append(settled, entry.InstallmentNumber)
				}
			}
		}

		if changed {
			entry.LastUpdatedAt = now
			entry.LastUpdatedBy = userID
			updated = append(updated, entry)
		}
	}

	return updated, settled, remaining
}

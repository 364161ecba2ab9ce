package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/wekeza-tech/coopcore/internal/apperrors"
	"github.com/wekeza-tech/coopcore/internal/core/domain"
	"github.com/wekeza-tech/coopcore/internal/core/services"
	"github.com/wekeza-tech/coopcore/internal/dto"
)

// fakeLoanStore layers loans and schedules on top of fakeLedgerStore, sharing
// its mutex so ApplyRepayment re-checks the funding balance under the same
// lock that guards it, exactly as the SQL layer re-checks the FOR UPDATE rows.
type fakeLoanStore struct {
	*fakeLedgerStore
	loan     domain.Loan
	schedule []domain.ScheduleEntry
}

func newFakeLoanStore(ledger *fakeLedgerStore, loan domain.Loan, schedule []domain.ScheduleEntry) *fakeLoanStore {
	return &fakeLoanStore{fakeLedgerStore: ledger, loan: loan, schedule: schedule}
}

func (s *fakeLoanStore) FindLoanByID(_ context.Context, loanID string) (*domain.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loan.LoanID != loanID {
		return nil, apperrors.ErrNotFound
	}
	loan := s.loan
	return &loan, nil
}

func (s *fakeLoanStore) FindLoanByCorrelationID(_ context.Context, correlationID string) (*domain.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loan.CorrelationID != correlationID {
		return nil, apperrors.ErrNotFound
	}
	loan := s.loan
	return &loan, nil
}

func (s *fakeLoanStore) ListScheduleByLoanID(_ context.Context, loanID string) ([]domain.ScheduleEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ScheduleEntry, 0, len(s.schedule))
	for _, e := range s.schedule {
		if e.LoanID == loanID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *fakeLoanStore) SaveLoan(_ context.Context, loan domain.Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loan = loan
	return nil
}

func (s *fakeLoanStore) UpdateLoanStatus(_ context.Context, loanID string, status domain.LoanStatus, userID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loan.LoanID != loanID {
		return apperrors.ErrNotFound
	}
	s.loan.Status = status
	s.loan.Touch(userID, now)
	return nil
}

func (s *fakeLoanStore) MarkDisbursed(_ context.Context, loanID string, schedule []domain.ScheduleEntry, records []domain.OutboxRecord, userID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loan.LoanID != loanID {
		return apperrors.ErrNotFound
	}
	if s.loan.Status == domain.LoanStatusDisbursed {
		return apperrors.ErrConflict
	}
	s.loan.Status = domain.LoanStatusDisbursed
	s.loan.Touch(userID, now)
	s.schedule = append(s.schedule, schedule...)
	s.records = append(s.records, records...)
	return nil
}

func (s *fakeLoanStore) UpdateScheduleEntriesInTx(_ context.Context, _ pgx.Tx, entries []domain.ScheduleEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateScheduleLocked(entries)
	return nil
}

func (s *fakeLoanStore) ApplyRepayment(_ context.Context, txns []domain.Transaction, balanceChanges map[string]decimal.Decimal, schedule []domain.ScheduleEntry, records []domain.OutboxRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// The funding balance is validated here, under the lock, not trusted from
	// the service's earlier read.
	if err := s.applyChangesLocked(balanceChanges); err != nil {
		return err
	}
	for _, t := range txns {
		s.txns[t.TransactionID] = t
	}
	s.updateScheduleLocked(schedule)
	s.records = append(s.records, records...)
	return nil
}

func (s *fakeLoanStore) updateScheduleLocked(entries []domain.ScheduleEntry) {
	for _, e := range entries {
		for i := range s.schedule {
			if s.schedule[i].ScheduleID == e.ScheduleID {
				s.schedule[i] = e
			}
		}
	}
}

func TestPostRepayment_ConcurrentRepaymentsNeverOverdraw(t *testing.T) {
	ctx := context.Background()
	memberID := uuid.NewString()
	accountID := uuid.NewString()
	loanAccountID := uuid.NewString()
	loanID := uuid.NewString()
	now := time.Now().UTC()

	ledger := newFakeLedgerStore(
		domain.Account{
			AccountID:        accountID,
			MemberID:         memberID,
			AccountType:      domain.AccountTypeSavings,
			CurrencyCode:     "KES",
			CurrentBalance:   decimal.NewFromInt(100),
			AvailableBalance: decimal.NewFromInt(100),
			Status:           domain.AccountStatusActive,
			AuditFields:      domain.NewAuditFields("seed", now),
		},
		domain.Account{
			AccountID:        loanAccountID,
			MemberID:         memberID,
			AccountType:      domain.AccountTypeLoan,
			CurrencyCode:     "KES",
			CurrentBalance:   decimal.NewFromInt(500),
			AvailableBalance: decimal.NewFromInt(500),
			Status:           domain.AccountStatusActive,
			AuditFields:      domain.NewAuditFields("seed", now),
		},
	)
	store := newFakeLoanStore(ledger,
		domain.Loan{
			LoanID:        loanID,
			MemberID:      memberID,
			AccountID:     accountID,
			LoanAccountID: loanAccountID,
			Principal:     decimal.NewFromInt(480),
			InterestRate:  decimal.NewFromInt(12),
			TermMonths:    1,
			Status:        domain.LoanStatusDisbursed,
			CorrelationID: uuid.NewString(),
			AuditFields:   domain.NewAuditFields("seed", now),
		},
		[]domain.ScheduleEntry{{
			ScheduleID:        uuid.NewString(),
			LoanID:            loanID,
			InstallmentNumber: 1,
			DueDate:           now.AddDate(0, 1, 0),
			Principal:         decimal.NewFromInt(480),
			Interest:          decimal.NewFromInt(20),
			TotalDue:          decimal.NewFromInt(500),
			PaidAmount:        decimal.Zero,
			Penalty:           decimal.Zero,
			Status:            domain.ScheduleStatusPending,
		}},
	)

	mockSchema := new(MockSchemaValidator)
	mockSchema.On("ValidateOutbound", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	svc := services.NewLoanService(store, store.fakeLedgerStore, new(MockMemberReader), mockSchema)

	// Every goroutine passes the service's funds check against the same 100
	// balance; only one 80 repayment may actually land.
	const attempts = 4
	repayment := decimal.NewFromInt(80)
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.PostRepayment(ctx, loanID, dto.PostRepaymentRequest{
				FromAccountID: accountID,
				Amount:        repayment,
			}, "borrower")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		require.True(t, errors.Is(err, apperrors.ErrInsufficientFunds),
			"a losing repayment must fail with insufficient funds, got %v", err)
	}
	assert.Equal(t, 1, succeeded, "only one 80 repayment fits in a balance of 100")
	assert.True(t, decimal.NewFromInt(20).Equal(store.balanceOf(accountID)),
		"the funding account must end at exactly 20, got %s", store.balanceOf(accountID))
	assert.False(t, store.balanceOf(accountID).IsNegative())
}

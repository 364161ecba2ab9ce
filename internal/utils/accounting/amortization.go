package accounting

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wekeza-tech/coopcore/internal/core/domain"
)

var (
	hundred = decimal.NewFromInt(100)
	twelve  = decimal.NewFromInt(12)
)

// GenerateSchedule builds the repayment schedule for a disbursed loan using
// equal principal portions with declining interest on the outstanding balance.
// The last installment absorbs rounding drift so the principal column sums to
// the loan principal exactly. TotalDue is always Principal plus Interest.
func GenerateSchedule(loan domain.Loan, firstDueDate time.Time, actorID string, now time.Time) []domain.ScheduleEntry {
	monthlyRate := loan.InterestRate.Div(hundred).Div(twelve)
	basePrincipal := loan.Principal.Div(decimal.NewFromInt(int64(loan.TermMonths))).Round(2)

	outstanding := loan.Principal
	entries := make([]domain.ScheduleEntry, 0, loan.TermMonths)

	for i := 1; i <= loan.TermMonths; i++ {
		principal := basePrincipal
		if i == loan.TermMonths {
			principal = outstanding
		}
		interest := outstanding.Mul(monthlyRate).Round(2)

		entries = append(entries, domain.ScheduleEntry{
			ScheduleID:        uuid.NewString(),
			LoanID:            loan.LoanID,
			InstallmentNumber: i,
			DueDate:           firstDueDate.AddDate(0, i-1, 0),
			Principal:         principal,
			Interest:          interest,
			TotalDue:          principal.Add(interest),
			PaidAmount:        decimal.Zero,
			Penalty:           decimal.Zero,
			Status:            domain.ScheduleStatusPending,
			AuditFields:       domain.NewAuditFields(actorID, now),
		})

		outstanding = outstanding.Sub(principal)
	}

	return entries
}

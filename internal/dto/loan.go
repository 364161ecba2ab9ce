package dto

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/wekeza-tech/coopcore/internal/core/domain"
)

// RequestLoanRequest defines the data needed to open a loan application.
type RequestLoanRequest struct {
	MemberID     string          `json:"memberID" binding:"required"`
	AccountID    string          `json:"accountID" binding:"required"` // Savings account to disburse into
	Principal    decimal.Decimal `json:"principal" binding:"required"`
	InterestRate decimal.Decimal `json:"interestRate" binding:"required"` // Annual percentage
	TermMonths   int             `json:"termMonths" binding:"required,min=1,max=360"`
}

// LoanResponse defines the data returned for a loan.
type LoanResponse struct {
	LoanID        string          `json:"loanID"`
	MemberID      string          `json:"memberID"`
	AccountID     string          `json:"accountID"`
	LoanAccountID string          `json:"loanAccountID"`
	Principal     decimal.Decimal `json:"principal"`
	InterestRate  decimal.Decimal `json:"interestRate"`
	TermMonths    int             `json:"termMonths"`
	Status        string          `json:"status"`
	CorrelationID string          `json:"correlationID"`
	CreatedAt     time.Time       `json:"createdAt"`
	LastUpdatedAt time.Time       `json:"lastUpdatedAt"`
}

// ToLoanResponse converts a domain.Loan to LoanResponse DTO.
func ToLoanResponse(l *domain.Loan) LoanResponse {
	return LoanResponse{
		LoanID:        l.LoanID,
		MemberID:      l.MemberID,
		AccountID:     l.AccountID,
		LoanAccountID: l.LoanAccountID,
		Principal:     l.Principal,
		InterestRate:  l.InterestRate,
		TermMonths:    l.TermMonths,
		Status:        string(l.Status),
		CorrelationID: l.CorrelationID,
		CreatedAt:     l.CreatedAt,
		LastUpdatedAt: l.LastUpdatedAt,
	}
}

// ScheduleEntryResponse defines the data returned for one installment.
type ScheduleEntryResponse struct {
	ScheduleID        string          `json:"scheduleID"`
	LoanID            string          `json:"loanID"`
	InstallmentNumber int             `json:"installmentNumber"`
	DueDate           time.Time       `json:"dueDate"`
	Principal         decimal.Decimal `json:"principal"`
	Interest          decimal.Decimal `json:"interest"`
	TotalDue          decimal.Decimal `json:"totalDue"`
	PaidAmount        decimal.Decimal `json:"paidAmount"`
	Penalty           decimal.Decimal `json:"penalty"`
	Status            string          `json:"status"`
}

// ToScheduleEntryResponses converts a schedule to its response DTOs.
func ToScheduleEntryResponses(entries []domain.ScheduleEntry) []ScheduleEntryResponse {
	res := make([]ScheduleEntryResponse, len(entries))
	for i, e := range entries {
		res[i] = ScheduleEntryResponse{
			ScheduleID:        e.ScheduleID,
			LoanID:            e.LoanID,
			InstallmentNumber: e.InstallmentNumber,
			DueDate:           e.DueDate,
			Principal:         e.Principal,
			Interest:          e.Interest,
			TotalDue:          e.TotalDue,
			PaidAmount:        e.PaidAmount,
			Penalty:           e.Penalty,
			Status:            string(e.Status),
		}
	}
	return res
}

// PostRepaymentRequest defines the data needed to post a loan repayment.
type PostRepaymentRequest struct {
	FromAccountID string          `json:"fromAccountID" binding:"required"` // Savings account funding the repayment
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	Description   string          `json:"description"`
}

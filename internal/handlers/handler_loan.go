package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	portssvc "github.com/wekeza-tech/coopcore/internal/core/ports/services"
	"github.com/wekeza-tech/coopcore/internal/dto"
	"github.com/wekeza-tech/coopcore/internal/middleware"
)

// loanHandler handles HTTP requests related to loans.
type loanHandler struct {
	loanService portssvc.LoanSvcFacade
}

// registerLoanRoutes registers routes related to loans.
func registerLoanRoutes(rg *gin.RouterGroup, loanService portssvc.LoanSvcFacade) {
	h := &loanHandler{loanService: loanService}

	loans := rg.Group("/loans")
	{
		loans.POST("", h.requestLoan)
		loans.GET("/:id", h.getLoan)
		loans.GET("/:id/schedule", h.getRepaymentSchedule)
		loans.POST("/:id/repayments", h.postRepayment)
	}
}

// requestLoan godoc
// @Summary Request a loan
// @Description Records the loan and starts its origination workflow; the response carries the workflow correlation id
// @Tags loans
// @Accept  json
// @Produce  json
// @Param   loan body dto.RequestLoanRequest true "Loan application"
// @Success 202 {object} dto.LoanResponse
// @Failure 400 {object} map[string]string "Invalid input format or validation error"
// @Failure 404 {object} map[string]string "Member or account not found"
// @Security BearerAuth
// @Router /loans [post]
func (h *loanHandler) requestLoan(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.RequestLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for RequestLoan", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	creatorUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Creator user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	loan, err := h.loanService.RequestLoan(c.Request.Context(), req, creatorUserID)
	if err != nil {
		respondWithError(c, logger, err, "Failed to request loan")
		return
	}

	// Accepted, not created: approval and disbursement are asynchronous.
	c.JSON(http.StatusAccepted, dto.ToLoanResponse(loan))
}

// getLoan godoc
// @Summary Get a loan by ID
// @Tags loans
// @Produce  json
// @Param   id path string true "Loan ID"
// @Success 200 {object} dto.LoanResponse
// @Failure 404 {object} map[string]string "Loan not found"
// @Security BearerAuth
// @Router /loans/{id} [get]
func (h *loanHandler) getLoan(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	loanID := c.Param("id")

	loan, err := h.loanService.GetLoanByID(c.Request.Context(), loanID)
	if err != nil {
		respondWithError(c, logger, err, "Failed to get loan")
		return
	}

	c.JSON(http.StatusOK, dto.ToLoanResponse(loan))
}

// getRepaymentSchedule godoc
// @Summary Get a loan's repayment schedule
// @Tags loans
// @Produce  json
// @Param   id path string true "Loan ID"
// @Success 200 {array} dto.ScheduleEntryResponse
// @Failure 404 {object} map[string]string "Loan not found"
// @Security BearerAuth
// @Router /loans/{id}/schedule [get]
func (h *loanHandler) getRepaymentSchedule(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	loanID := c.Param("id")

	schedule, err := h.loanService.GetRepaymentSchedule(c.Request.Context(), loanID)
	if err != nil {
		respondWithError(c, logger, err, "Failed to get repayment schedule")
		return
	}

	c.JSON(http.StatusOK, dto.ToScheduleEntryResponses(schedule))
}

// postRepayment godoc
// @Summary Post a loan repayment
// @Description Debits the funding account and settles the oldest unpaid installments atomically
// @Tags loans
// @Accept  json
// @Produce  json
// @Param   id path string true "Loan ID"
// @Param   repayment body dto.PostRepaymentRequest true "Repayment details"
// @Success 201 {array} dto.TransactionResponse
// @Failure 400 {object} map[string]string "Invalid input format or amount exceeds outstanding balance"
// @Failure 409 {object} map[string]string "Loan is not disbursed"
// @Failure 422 {object} map[string]string "Insufficient funds"
// @Security BearerAuth
// @Router /loans/{id}/repayments [post]
func (h *loanHandler) postRepayment(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	loanID := c.Param("id")

	var req dto.PostRepaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for PostRepayment", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	txns, err := h.loanService.PostRepayment(c.Request.Context(), loanID, req, userID)
	if err != nil {
		respondWithError(c, logger, err, "Failed to post repayment")
		return
	}

	c.JSON(http.StatusCreated, dto.ToTransactionResponses(txns))
}

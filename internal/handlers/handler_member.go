package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	portssvc "github.com/wekeza-tech/coopcore/internal/core/ports/services"
	"github.com/wekeza-tech/coopcore/internal/dto"
	"github.com/wekeza-tech/coopcore/internal/middleware"
)

// memberHandler handles HTTP requests related to members.
type memberHandler struct {
	memberService  portssvc.MemberSvcFacade
	accountService portssvc.AccountSvcFacade
}

// registerMemberRoutes registers routes related to members.
func registerMemberRoutes(rg *gin.RouterGroup, memberService portssvc.MemberSvcFacade, accountService portssvc.AccountSvcFacade) {
	h := &memberHandler{
		memberService:  memberService,
		accountService: accountService,
	}

	members := rg.Group("/members")
	{
		members.POST("", h.onboardMember)
		members.GET("/:id", h.getMember)
		members.GET("/:id/accounts", h.listMemberAccounts)
	}
}

// onboardMember godoc
// @Summary Onboard a new member
// @Description Creates the member and their initial savings account atomically
// @Tags members
// @Accept  json
// @Produce  json
// @Param   member body dto.OnboardMemberRequest true "Member details"
// @Success 201 {object} dto.OnboardMemberResponse
// @Failure 400 {object} map[string]string "Invalid input format or validation error"
// @Failure 409 {object} map[string]string "Email already registered"
// @Security BearerAuth
// @Router /members [post]
func (h *memberHandler) onboardMember(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.OnboardMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for OnboardMember", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	creatorUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Creator user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	member, account, err := h.memberService.OnboardMember(c.Request.Context(), req, creatorUserID)
	if err != nil {
		respondWithError(c, logger, err, "Failed to onboard member")
		return
	}

	c.JSON(http.StatusCreated, dto.OnboardMemberResponse{
		Member:  dto.ToMemberResponse(member),
		Account: dto.ToAccountResponse(account),
	})
}

// getMember godoc
// @Summary Get a member by ID
// @Tags members
// @Produce  json
// @Param   id path string true "Member ID"
// @Success 200 {object} dto.MemberResponse
// @Failure 404 {object} map[string]string "Member not found"
// @Security BearerAuth
// @Router /members/{id} [get]
func (h *memberHandler) getMember(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	memberID := c.Param("id")

	member, err := h.memberService.GetMemberByID(c.Request.Context(), memberID)
	if err != nil {
		respondWithError(c, logger, err, "Failed to get member")
		return
	}

	c.JSON(http.StatusOK, dto.ToMemberResponse(member))
}

// listMemberAccounts godoc
// @Summary List a member's accounts
// @Tags members
// @Produce  json
// @Param   id path string true "Member ID"
// @Success 200 {object} dto.ListAccountsResponse
// @Failure 404 {object} map[string]string "Member not found"
// @Security BearerAuth
// @Router /members/{id}/accounts [get]
func (h *memberHandler) listMemberAccounts(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	memberID := c.Param("id")

	if _, err := h.memberService.GetMemberByID(c.Request.Context(), memberID); err != nil {
		respondWithError(c, logger, err, "Failed to get member")
		return
	}

	accounts, err := h.accountService.ListAccountsByMember(c.Request.Context(), memberID)
	if err != nil {
		respondWithError(c, logger, err, "Failed to list member accounts")
		return
	}

	c.JSON(http.StatusOK, dto.ListAccountsResponse{Accounts: dto.ToListAccountResponse(accounts)})
}

package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	portssvc "github.com/wekeza-tech/coopcore/internal/core/ports/services"
	"github.com/wekeza-tech/coopcore/internal/dto"
	"github.com/wekeza-tech/coopcore/internal/middleware"
)

// operatorHandler exposes the operator surface: dead-lettered outbox records
// and quarantined payloads.
type operatorHandler struct {
	outboxAdminService portssvc.OutboxAdminSvc
}

// registerOperatorRoutes registers the operator routes.
func registerOperatorRoutes(rg *gin.RouterGroup, outboxAdminService portssvc.OutboxAdminSvc) {
	h := &operatorHandler{outboxAdminService: outboxAdminService}

	operator := rg.Group("/operator")
	{
		operator.GET("/outbox/dead-letter", h.listDeadLetter)
		operator.POST("/outbox/dead-letter/:id/requeue", h.requeueDeadLetter)
		operator.GET("/quarantine", h.listQuarantined)
	}
}

func limitParam(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		return 50
	}
	return limit
}

// listDeadLetter godoc
// @Summary List dead-lettered outbox records
// @Description Records whose dispatch attempts are exhausted, oldest first
// @Tags operator
// @Produce  json
// @Param   limit query int false "Maximum records to return"
// @Success 200 {array} dto.OutboxRecordResponse
// @Security BearerAuth
// @Router /operator/outbox/dead-letter [get]
func (h *operatorHandler) listDeadLetter(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	records, err := h.outboxAdminService.ListDeadLetter(c.Request.Context(), limitParam(c))
	if err != nil {
		respondWithError(c, logger, err, "Failed to list dead-lettered records")
		return
	}

	c.JSON(http.StatusOK, dto.ToOutboxRecordResponses(records))
}

// requeueDeadLetter godoc
// @Summary Requeue a dead-lettered record
// @Description Returns the record to PENDING for another round of dispatch attempts
// @Tags operator
// @Produce  json
// @Param   id path string true "Record ID"
// @Success 204 "Record requeued"
// @Failure 404 {object} map[string]string "Record not found"
// @Failure 409 {object} map[string]string "Record is not dead-lettered"
// @Security BearerAuth
// @Router /operator/outbox/dead-letter/{id}/requeue [post]
func (h *operatorHandler) requeueDeadLetter(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	recordID := c.Param("id")

	if err := h.outboxAdminService.RequeueDeadLetter(c.Request.Context(), recordID); err != nil {
		respondWithError(c, logger, err, "Failed to requeue record")
		return
	}

	c.Status(http.StatusNoContent)
}

// listQuarantined godoc
// @Summary List quarantined payloads
// @Description Payloads rejected by schema validation, newest first
// @Tags operator
// @Produce  json
// @Param   limit query int false "Maximum payloads to return"
// @Success 200 {array} dto.QuarantinedEventResponse
// @Security BearerAuth
// @Router /operator/quarantine [get]
func (h *operatorHandler) listQuarantined(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	events, err := h.outboxAdminService.ListQuarantined(c.Request.Context(), limitParam(c))
	if err != nil {
		respondWithError(c, logger, err, "Failed to list quarantined payloads")
		return
	}

	c.JSON(http.StatusOK, dto.ToQuarantinedEventResponses(events))
}

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/wekeza-tech/coopcore/internal/apperrors"
	"github.com/wekeza-tech/coopcore/internal/core/domain"
	portssvc "github.com/wekeza-tech/coopcore/internal/core/ports/services"
	"github.com/wekeza-tech/coopcore/internal/dto"
	"github.com/wekeza-tech/coopcore/internal/middleware"
)

// workflowHandler handles HTTP requests related to workflow instances.
type workflowHandler struct {
	sagaService   portssvc.SagaCoordinatorSvc
	schemaService portssvc.SchemaValidatorSvc
}

// registerWorkflowRoutes registers routes related to workflows.
func registerWorkflowRoutes(rg *gin.RouterGroup, sagaService portssvc.SagaCoordinatorSvc, schemaService portssvc.SchemaValidatorSvc) {
	h := &workflowHandler{
		sagaService:   sagaService,
		schemaService: schemaService,
	}

	workflows := rg.Group("/workflows")
	{
		workflows.POST("", h.startWorkflow)
		workflows.GET("/:correlationID", h.getWorkflowStatus)
		workflows.POST("/:correlationID/events", h.injectEvent)
	}
}

// startWorkflow godoc
// @Summary Start a workflow instance
// @Description Creates the instance and emits its first outbound command atomically
// @Tags workflows
// @Accept  json
// @Produce  json
// @Param   workflow body dto.StartWorkflowRequest true "Workflow details"
// @Success 202 {object} dto.WorkflowStatusResponse
// @Failure 400 {object} map[string]string "Invalid input format or validation error"
// @Security BearerAuth
// @Router /workflows [post]
func (h *workflowHandler) startWorkflow(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.StartWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for StartWorkflow", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	creatorUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Creator user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	instance, err := h.sagaService.StartWorkflow(c.Request.Context(), req.WorkflowType, req.InitialContext, creatorUserID)
	if err != nil {
		respondWithError(c, logger, err, "Failed to start workflow")
		return
	}

	c.JSON(http.StatusAccepted, dto.ToWorkflowStatusResponse(instance))
}

// getWorkflowStatus godoc
// @Summary Get a workflow instance
// @Tags workflows
// @Produce  json
// @Param   correlationID path string true "Correlation ID"
// @Success 200 {object} dto.WorkflowStatusResponse
// @Failure 404 {object} map[string]string "Workflow not found"
// @Security BearerAuth
// @Router /workflows/{correlationID} [get]
func (h *workflowHandler) getWorkflowStatus(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	correlationID := c.Param("correlationID")

	instance, err := h.sagaService.GetStatus(c.Request.Context(), correlationID)
	if err != nil {
		respondWithError(c, logger, err, "Failed to get workflow status")
		return
	}

	c.JSON(http.StatusOK, dto.ToWorkflowStatusResponse(instance))
}

// injectEvent godoc
// @Summary Inject an event into a workflow
// @Description Hands an event to a workflow for collaborators without bus access; it crosses the same schema gate as bus traffic
// @Tags workflows
// @Accept  json
// @Produce  json
// @Param   correlationID path string true "Correlation ID"
// @Param   event body dto.InjectEventRequest true "Event details"
// @Success 202 {object} dto.WorkflowStatusResponse
// @Failure 400 {object} map[string]string "Invalid input or schema violation"
// @Failure 404 {object} map[string]string "Workflow not found"
// @Security BearerAuth
// @Router /workflows/{correlationID}/events [post]
func (h *workflowHandler) injectEvent(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	correlationID := c.Param("correlationID")

	var req dto.InjectEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for InjectEvent", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	envelope := domain.EventEnvelope{
		ID:            uuid.NewString(),
		Type:          req.Type,
		SchemaVersion: req.SchemaVersion,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Payload:       req.Payload,
	}

	if err := h.schemaService.ValidateInbound(c.Request.Context(), envelope); err != nil {
		if errors.Is(err, apperrors.ErrSchemaViolation) {
			logger.Warn("Injected event rejected by schema gate", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		respondWithError(c, logger, err, "Failed to validate event")
		return
	}

	if err := h.sagaService.HandleEvent(c.Request.Context(), correlationID, envelope); err != nil {
		if errors.Is(err, apperrors.ErrVersionConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": "Workflow was updated concurrently; retry the event"})
			return
		}
		respondWithError(c, logger, err, "Failed to handle event")
		return
	}

	instance, err := h.sagaService.GetStatus(c.Request.Context(), correlationID)
	if err != nil {
		respondWithError(c, logger, err, "Failed to get workflow status")
		return
	}

	c.JSON(http.StatusAccepted, dto.ToWorkflowStatusResponse(instance))
}

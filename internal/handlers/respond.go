package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wekeza-tech/coopcore/internal/apperrors"
)

// respondWithError maps a service error to its HTTP response. AppErrors carry
// their own status code; anything else is an opaque 500.
func respondWithError(c *gin.Context, logger *slog.Logger, err error, fallback string) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Code >= http.StatusInternalServerError {
			logger.Error(fallback, slog.String("error", err.Error()))
		} else {
			logger.Warn(fallback, slog.String("error", err.Error()))
		}
		c.JSON(appErr.Code, gin.H{"error": appErr.Message})
		return
	}

	logger.Error(fallback, slog.String("error", err.Error()))
	c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
}

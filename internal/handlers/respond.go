package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"vantage-go/internal/apperr"
)

// fail maps an action-boundary error onto the right HTTP response.
// Validation errors and session mismatches surface immediately as typed
// failures; anything else is an internal error.
func fail(c *gin.Context, log *zap.Logger, err error) {
	var ve *apperr.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error(), "field": ve.Field})
	case errors.Is(err, apperr.ErrSessionMismatch):
		c.JSON(http.StatusForbidden, gin.H{"error": "session mismatch"})
	default:
		log.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

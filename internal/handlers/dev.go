package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"vantage-go/internal/apperr"
	"vantage-go/internal/repository"
)

// DevHandler carries the endpoints that only exist when dev_endpoints is
// enabled. Never mounted in production.
type DevHandler struct {
	log *zap.Logger
}

func NewDevHandler(log *zap.Logger) *DevHandler {
	return &DevHandler{log: log}
}

// Reset wipes a session's responses and scores and returns it to the
// assigned state so a tester can run the flow again.
func (h *DevHandler) Reset(c *gin.Context) {
	var req struct {
		SessionID string `json:"session_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, h.log, apperr.Invalid("session_id", "required"))
		return
	}
	id, err := uuid.Parse(req.SessionID)
	if err != nil {
		fail(c, h.log, apperr.Invalid("session_id", "must be a uuid"))
		return
	}

	if err := repository.ResetSession(c.Request.Context(), id); err != nil {
		fail(c, h.log, err)
		return
	}
	h.log.Info("session reset", zap.String("session_id", id.String()))
	c.JSON(http.StatusOK, gin.H{"reset": true})
}

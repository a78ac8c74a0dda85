package handlers

import (
	"io"
	"math/rand"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"vantage-go/internal/apperr"
	"vantage-go/internal/config"
	"vantage-go/internal/models"
	"vantage-go/internal/progress"
	"vantage-go/internal/repository"
	"vantage-go/internal/uploader"
)

const responsePhase = 1

type AssessmentHandler struct {
	queue *uploader.Queue
	log   *zap.Logger
}

func NewAssessmentHandler(queue *uploader.Queue, log *zap.Logger) *AssessmentHandler {
	return &AssessmentHandler{queue: queue, log: log}
}

// pickVignettes draws n distinct ids from the configured pool.
func pickVignettes(pool []int64, n int) []int64 {
	drawn := make([]int64, len(pool))
	copy(drawn, pool)
	rand.Shuffle(len(drawn), func(i, j int) { drawn[i], drawn[j] = drawn[j], drawn[i] })
	if n > len(drawn) {
		n = len(drawn)
	}
	return drawn[:n]
}

// Start creates a fresh session with its vignette assignment and binds it to
// the cookie. An existing bound session is resumed, never replaced, so a
// page reload keeps the same attempt.
func (h *AssessmentHandler) Start(c *gin.Context) {
	cookie := sessions.Default(c)

	if raw, ok := cookie.Get("sessionID").(string); ok {
		if id, err := uuid.Parse(raw); err == nil {
			if s, err := repository.GetSession(c.Request.Context(), id); err == nil {
				c.JSON(http.StatusOK, sessionPayload(s))
				return
			}
		}
	}

	cfg := config.Conf.Assessment
	s, err := repository.CreateSession(c.Request.Context(),
		pickVignettes(cfg.PracticalPool, 2),
		pickVignettes(cfg.CreativePool, 2))
	if err != nil {
		fail(c, h.log, err)
		return
	}

	cookie.Set("sessionID", s.ID.String())
	if err := cookie.Save(); err != nil {
		fail(c, h.log, err)
		return
	}

	h.log.Info("session started", zap.String("session_id", s.ID.String()))
	c.JSON(http.StatusCreated, sessionPayload(s))
}

func sessionPayload(s *models.AssessmentSession) gin.H {
	rec := config.Conf.Recording
	return gin.H{
		"sessionId":  s.ID.String(),
		"status":     s.Status,
		"totalSteps": s.TotalSteps(),
		"recording": gin.H{
			"bufferSeconds": rec.BufferSeconds,
			"minSeconds":    rec.MinSeconds,
			"maxSeconds":    rec.MaxSeconds,
		},
	}
}

// Vignette serves one assessment step. Serving upserts the placeholder row,
// so revisiting a step never duplicates it.
func (h *AssessmentHandler) Vignette(c *gin.Context) {
	sessionID := boundSessionID(c)
	step, err := strconv.Atoi(c.Param("step"))
	if err != nil {
		fail(c, h.log, apperr.Invalid("step", "must be an integer"))
		return
	}

	s, err := repository.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		fail(c, h.log, err)
		return
	}

	vignetteID, vt, ok := s.VignetteForStep(step)
	if !ok {
		fail(c, h.log, apperr.Invalid("step", "out of range"))
		return
	}

	if err := repository.UpsertServedResponse(c.Request.Context(), sessionID, vignetteID, vt, step, responsePhase); err != nil {
		fail(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"step":         step,
		"vignetteId":   vignetteID,
		"vignetteType": vt,
	})
}

// StartResponse stamps the moment the candidate's answer recording began,
// after the narration and buffer period.
func (h *AssessmentHandler) StartResponse(c *gin.Context) {
	sessionID := boundSessionID(c)
	step, err := strconv.Atoi(c.Param("step"))
	if err != nil {
		fail(c, h.log, apperr.Invalid("step", "must be an integer"))
		return
	}

	if err := repository.MarkResponseStarted(c.Request.Context(), sessionID, step, responsePhase); err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"started": true})
}

// SubmitRecording is the action boundary for a finished recording. The step
// is reserved first, so it counts as done from this moment; the media blob
// then rides the background queue and its fate never reopens the step.
func (h *AssessmentHandler) SubmitRecording(c *gin.Context) {
	sessionID := boundSessionID(c)

	if claimed := c.PostForm("session_id"); claimed != sessionID.String() {
		fail(c, h.log, apperr.ErrSessionMismatch)
		return
	}

	step, err := strconv.Atoi(c.PostForm("step"))
	if err != nil {
		fail(c, h.log, apperr.Invalid("step", "must be an integer"))
		return
	}
	duration, err := strconv.ParseFloat(c.PostForm("duration_seconds"), 64)
	if err != nil || duration <= 0 {
		fail(c, h.log, apperr.Invalid("duration_seconds", "must be a positive number"))
		return
	}

	s, err := repository.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	_, vt, ok := s.VignetteForStep(step)
	if !ok {
		fail(c, h.log, apperr.Invalid("step", "out of range"))
		return
	}

	header, err := c.FormFile("media")
	if err != nil {
		fail(c, h.log, apperr.Invalid("media", "recording file is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		fail(c, h.log, err)
		return
	}
	defer file.Close()
	blob, err := io.ReadAll(file)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	if len(blob) == 0 {
		fail(c, h.log, apperr.Invalid("media", "recording file is empty"))
		return
	}

	if err := repository.ReserveResponse(c.Request.Context(), sessionID, step, responsePhase, duration); err != nil {
		fail(c, h.log, err)
		return
	}

	ext := strings.TrimPrefix(filepath.Ext(header.Filename), ".")
	if ext == "" {
		ext = "webm"
	}
	jobID := h.queue.Enqueue(sessionID.String(), vt, step, responsePhase, ext, blob)

	h.log.Info("recording submitted",
		zap.String("session_id", sessionID.String()),
		zap.Int("step", step),
		zap.Float64("duration_seconds", duration),
		zap.Int("bytes", len(blob)))

	maybeCompleteSession(c, h.log, sessionID)
	c.JSON(http.StatusAccepted, gin.H{"jobId": jobID})
}

// Progress reports which steps count as done and where to resume.
func (h *AssessmentHandler) Progress(c *gin.Context) {
	sessionID := boundSessionID(c)

	s, err := repository.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	rows, err := repository.GetResponses(c.Request.Context(), sessionID)
	if err != nil {
		fail(c, h.log, err)
		return
	}

	steps, next, allComplete := stepProgress(s.TotalSteps(), rows)

	out := gin.H{
		"completedSteps":       steps,
		"totalSteps":           s.TotalSteps(),
		"allComplete":          allComplete,
		"personalityCompleted": s.PersonalityCompletedAt != nil,
	}
	if !allComplete {
		out["nextStep"] = next
	}
	c.JSON(http.StatusOK, out)
}

// stepProgress summarizes persisted response rows for routing. The bool out
// of progress.NextIncomplete reports that an incomplete step exists, so
// completion is its negation.
func stepProgress(totalSteps int, rows []models.StudentResponse) (completed []int, next int, allComplete bool) {
	done := progress.CompletedSteps(rows)
	completed = make([]int, 0, len(done))
	for step := 1; step <= totalSteps; step++ {
		if _, ok := done[step]; ok {
			completed = append(completed, step)
		}
	}
	next, hasNext := progress.NextIncomplete(done, totalSteps)
	return completed, next, !hasNext
}

// Uploads exposes the background queue state for the client status strip.
func (h *AssessmentHandler) Uploads(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"jobs":        h.queue.Jobs(),
		"anyPending":  h.queue.AnyPending(),
		"allComplete": h.queue.AllComplete(),
		"failed":      h.queue.FailedJobs(),
	})
}

// RetryUpload re-queues a failed job with its retained payload.
func (h *AssessmentHandler) RetryUpload(c *gin.Context) {
	var req struct {
		JobID string `json:"jobId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, h.log, apperr.Invalid("jobId", "required"))
		return
	}
	if err := h.queue.Retry(req.JobID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"retried": true})
}

// boundSessionID returns the session id placed on the context by the
// SessionRequired middleware.
func boundSessionID(c *gin.Context) uuid.UUID {
	return c.MustGet("sessionID").(uuid.UUID)
}

// maybeCompleteSession promotes the session to completed once both the
// vignette steps and the personality questionnaire are done. Completion is
// monotonic; calling this early is harmless.
func maybeCompleteSession(c *gin.Context, log *zap.Logger, sessionID uuid.UUID) {
	ctx := c.Request.Context()

	s, err := repository.GetSession(ctx, sessionID)
	if err != nil {
		return
	}
	if s.PersonalityCompletedAt == nil {
		return
	}
	rows, err := repository.GetResponses(ctx, sessionID)
	if err != nil {
		return
	}
	if _, _, allComplete := stepProgress(s.TotalSteps(), rows); !allComplete {
		return
	}
	if err := repository.CompleteSession(ctx, sessionID); err != nil {
		log.Warn("could not complete session", zap.String("session_id", sessionID.String()), zap.Error(err))
		return
	}
	log.Info("session completed", zap.String("session_id", sessionID.String()))
}

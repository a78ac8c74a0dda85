package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"vantage-go/internal/apperr"
	"vantage-go/internal/config"
	"vantage-go/internal/models"
	"vantage-go/internal/repository"
	"vantage-go/internal/scoring"
	"vantage-go/internal/shuffle"
)

type PersonalityHandler struct {
	bank *models.ItemBank
	log  *zap.Logger
}

func NewPersonalityHandler(bank *models.ItemBank, log *zap.Logger) *PersonalityHandler {
	return &PersonalityHandler{bank: bank, log: log}
}

// Page serves one questionnaire page in the session's stable mixed order.
// Saved answers ride along so a reload resumes in place.
func (h *PersonalityHandler) Page(c *gin.Context) {
	sessionID := boundSessionID(c)
	page, err := strconv.Atoi(c.Param("page"))
	if err != nil {
		fail(c, h.log, apperr.Invalid("page", "must be an integer"))
		return
	}

	order := shuffle.OrderFor(sessionID.String(), h.bank)
	pages := shuffle.Paginate(order, config.Conf.Assessment.PageSize)
	if page < 1 || page > len(pages) {
		fail(c, h.log, apperr.Invalid("page", "out of range"))
		return
	}

	if page == 1 {
		if err := repository.StartPersonality(c.Request.Context(), sessionID); err != nil {
			fail(c, h.log, err)
			return
		}
	}

	saved, err := repository.GetPersonalityResponses(c.Request.Context(), sessionID)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	answers := make(map[string]int, len(saved))
	for _, r := range saved {
		answers[r.ItemID] = r.RawValue
	}

	items := make([]gin.H, 0, len(pages[page-1]))
	for _, item := range pages[page-1] {
		entry := gin.H{"id": item.ID, "text": item.Text}
		if v, ok := answers[item.ID]; ok {
			entry["value"] = v
		}
		items = append(items, entry)
	}

	c.JSON(http.StatusOK, gin.H{
		"page":       page,
		"pageCount":  len(pages),
		"items":      items,
		"answered":   len(saved),
		"totalItems": h.bank.Size(),
	})
}

// Answer upserts one Likert response. Re-answering an item replaces the
// previous value.
func (h *PersonalityHandler) Answer(c *gin.Context) {
	sessionID := boundSessionID(c)

	var req struct {
		SessionID string `json:"session_id" binding:"required"`
		ItemID    string `json:"item_id" binding:"required"`
		Value     int    `json:"value" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, h.log, apperr.Invalid("body", "malformed answer payload"))
		return
	}
	if req.SessionID != sessionID.String() {
		fail(c, h.log, apperr.ErrSessionMismatch)
		return
	}
	if req.Value < 1 || req.Value > 5 {
		fail(c, h.log, apperr.Invalid("value", "must be between 1 and 5"))
		return
	}
	item := h.bank.ItemByID(req.ItemID)
	if item == nil {
		fail(c, h.log, apperr.Invalid("item_id", "unknown item"))
		return
	}

	err := repository.UpsertPersonalityResponse(c.Request.Context(), sessionID,
		item.ID, item.Facet, req.Value, item.Reverse)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved": true})
}

// Submit finalizes the questionnaire: it requires a full answer set, runs
// the scoring engine, persists the per-facet rows and the summary blob.
// Submission can be retried; scores are recomputed and upserted.
func (h *PersonalityHandler) Submit(c *gin.Context) {
	sessionID := boundSessionID(c)

	var req struct {
		SessionID string `json:"session_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, h.log, apperr.Invalid("body", "malformed payload"))
		return
	}
	if req.SessionID != sessionID.String() {
		fail(c, h.log, apperr.ErrSessionMismatch)
		return
	}

	rows, err := repository.GetPersonalityResponses(c.Request.Context(), sessionID)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	if len(rows) < h.bank.Size() {
		fail(c, h.log, apperr.Invalid("responses",
			"%d items still unanswered", h.bank.Size()-len(rows)))
		return
	}

	responses := make([]scoring.Response, 0, len(rows))
	for _, r := range rows {
		responses = append(responses, scoring.Response{
			ItemID:   r.ItemID,
			Facet:    r.Facet,
			RawValue: r.RawValue,
			Reverse:  r.Reverse,
		})
	}
	summary := scoring.Score(h.bank, responses)

	scores := make([]models.PersonalityScore, 0, len(summary.Facets))
	for facet, fs := range summary.Facets {
		scores = append(scores, models.PersonalityScore{
			SessionID: sessionID,
			Facet:     facet,
			ItemCount: fs.ItemCount,
			RawMean:   fs.Mean,
			Score:     fs.Rescaled,
		})
	}
	if err := repository.UpsertPersonalityScores(c.Request.Context(), scores); err != nil {
		fail(c, h.log, err)
		return
	}

	blob, err := json.Marshal(summary)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	if err := repository.CompletePersonality(c.Request.Context(), sessionID, blob); err != nil {
		fail(c, h.log, err)
		return
	}

	h.log.Info("personality submitted",
		zap.String("session_id", sessionID.String()),
		zap.Float64("global_rescaled", summary.GlobalRescaled),
		zap.Bool("attention_fail", summary.AttentionFail),
		zap.Bool("infrequency_fail", summary.InfrequencyFail),
		zap.Bool("straight_line", summary.StraightLine))

	maybeCompleteSession(c, h.log, sessionID)
	c.JSON(http.StatusOK, summary)
}

// Scores is the developer view of the persisted per-facet rows.
func (h *PersonalityHandler) Scores(c *gin.Context) {
	sessionID := boundSessionID(c)

	scores, err := repository.GetPersonalityScores(c.Request.Context(), sessionID)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	s, err := repository.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		fail(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"scores":  scores,
		"summary": json.RawMessage(s.PersonalitySummary),
	})
}

package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"vantage-go/internal/models"
	"vantage-go/internal/repository"
	"vantage-go/internal/results"
	"vantage-go/internal/storage"
)

type ResultsHandler struct {
	signer storage.Signer
	log    *zap.Logger
}

func NewResultsHandler(signer storage.Signer, log *zap.Logger) *ResultsHandler {
	return &ResultsHandler{signer: signer, log: log}
}

// Results aggregates whatever vendor-scored responses exist into the report.
// Scoring happens out of band, so the report is marked ready only once every
// step's response has a result attached.
func (h *ResultsHandler) Results(c *gin.Context) {
	sessionID := boundSessionID(c)

	s, err := repository.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	rows, err := repository.GetScoredResponses(c.Request.Context(), sessionID)
	if err != nil {
		fail(c, h.log, err)
		return
	}

	var practical, creative []models.ScoringResult
	for _, row := range rows {
		var sr models.ScoringResult
		if err := json.Unmarshal(row.ScoringResult, &sr); err != nil {
			h.log.Warn("skipping malformed scoring result",
				zap.String("session_id", sessionID.String()),
				zap.Int("step", row.Step),
				zap.Error(err))
			continue
		}
		switch row.VignetteType {
		case models.VignettePractical:
			practical = append(practical, sr)
		case models.VignetteCreative:
			creative = append(creative, sr)
		}
	}

	report := results.Build(practical, creative)

	all, err := repository.GetResponses(c.Request.Context(), sessionID)
	if err != nil {
		fail(c, h.log, err)
		return
	}

	out := gin.H{
		"ready":           len(rows) >= s.TotalSteps(),
		"scoredResponses": len(rows),
		"totalSteps":      s.TotalSteps(),
		"report":          report,
		"recordings":      recordingLinks(c.Request.Context(), h.signer, h.log, all),
	}
	if len(s.PersonalitySummary) > 0 {
		out["personality"] = json.RawMessage(s.PersonalitySummary)
	}
	c.JSON(http.StatusOK, out)
}

// RecordingLink is one playback entry on the results surface.
type RecordingLink struct {
	Step         int                 `json:"step"`
	Phase        int                 `json:"phase"`
	UploadStatus models.UploadStatus `json:"uploadStatus"`
	URL          string              `json:"url,omitempty"`
}

// recordingLinks issues a presigned playback URL for every uploaded
// response. Rows without a confirmed object, or whose signing fails, still
// appear so reviewers can see the gap; they just carry no URL.
func recordingLinks(ctx context.Context, signer storage.Signer, log *zap.Logger, rows []models.StudentResponse) []RecordingLink {
	links := make([]RecordingLink, 0, len(rows))
	for _, row := range rows {
		link := RecordingLink{Step: row.Step, Phase: row.Phase, UploadStatus: row.UploadStatus}
		if row.UploadStatus == models.UploadUploaded && row.VideoPath != nil {
			url, err := signer.SignDownload(ctx, *row.VideoPath)
			if err != nil {
				log.Warn("could not sign playback url",
					zap.String("session_id", row.SessionID.String()),
					zap.Int("step", row.Step), zap.Error(err))
			} else {
				link.URL = url
			}
		}
		links = append(links, link)
	}
	return links
}

package handlers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"vantage-go/internal/models"
)

func submittedRow(step int) models.StudentResponse {
	now := time.Now().UTC()
	return models.StudentResponse{Step: step, Phase: 1, ResponseSubmittedAt: &now}
}

// Progress and session completion both hang off stepProgress, so it must
// read "all complete" correctly in every state.
func TestStepProgress(t *testing.T) {
	t.Run("nothing submitted", func(t *testing.T) {
		completed, next, allComplete := stepProgress(4, nil)
		assert.Empty(t, completed)
		assert.Equal(t, 1, next)
		assert.False(t, allComplete)
	})

	t.Run("middle steps remain", func(t *testing.T) {
		rows := []models.StudentResponse{submittedRow(1), submittedRow(3)}
		completed, next, allComplete := stepProgress(4, rows)
		assert.Equal(t, []int{1, 3}, completed)
		assert.Equal(t, 2, next)
		assert.False(t, allComplete)
	})

	t.Run("every step submitted", func(t *testing.T) {
		rows := []models.StudentResponse{
			submittedRow(1), submittedRow(2), submittedRow(3), submittedRow(4),
		}
		completed, _, allComplete := stepProgress(4, rows)
		assert.Equal(t, []int{1, 2, 3, 4}, completed)
		assert.True(t, allComplete)
	})

	t.Run("unsubmitted placeholder rows do not count", func(t *testing.T) {
		rows := []models.StudentResponse{
			submittedRow(1),
			{Step: 2, Phase: 1}, // served but never reserved
		}
		completed, next, allComplete := stepProgress(2, rows)
		assert.Equal(t, []int{1}, completed)
		assert.Equal(t, 2, next)
		assert.False(t, allComplete)
	})
}

type fakeDownloadSigner struct {
	err    error
	signed []string
}

func (s *fakeDownloadSigner) SignUpload(ctx context.Context, key, contentType string) (string, error) {
	return "", errors.New("not used")
}

func (s *fakeDownloadSigner) SignDownload(ctx context.Context, key string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.signed = append(s.signed, key)
	return "https://signed.example/" + key, nil
}

func TestRecordingLinks(t *testing.T) {
	path := "abc/practical_1_phase1.webm"
	uploaded := submittedRow(1)
	uploaded.UploadStatus = models.UploadUploaded
	uploaded.VideoPath = &path

	pending := submittedRow(2)
	pending.UploadStatus = models.UploadPending

	signer := &fakeDownloadSigner{}
	links := recordingLinks(context.Background(), signer, zap.NewNop(),
		[]models.StudentResponse{uploaded, pending})

	require.Len(t, links, 2)
	assert.Equal(t, "https://signed.example/"+path, links[0].URL)
	assert.Equal(t, models.UploadUploaded, links[0].UploadStatus)
	assert.Empty(t, links[1].URL)
	assert.Equal(t, models.UploadPending, links[1].UploadStatus)
	assert.Equal(t, []string{path}, signer.signed)
}

func TestRecordingLinksToleratesSigningFailure(t *testing.T) {
	path := "abc/practical_1_phase1.webm"
	uploaded := submittedRow(1)
	uploaded.UploadStatus = models.UploadUploaded
	uploaded.VideoPath = &path

	signer := &fakeDownloadSigner{err: errors.New("bucket unreachable")}
	links := recordingLinks(context.Background(), signer, zap.NewNop(),
		[]models.StudentResponse{uploaded})

	require.Len(t, links, 1)
	assert.Empty(t, links[0].URL)
	assert.Equal(t, models.UploadUploaded, links[0].UploadStatus)
}

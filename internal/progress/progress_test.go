package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"vantage-go/internal/models"
)

func submitted(step int) models.StudentResponse {
	now := time.Now()
	return models.StudentResponse{Step: step, ResponseSubmittedAt: &now}
}

func served(step int) models.StudentResponse {
	now := time.Now()
	return models.StudentResponse{Step: step, ServedAt: &now}
}

func TestCompletedStepsIgnoresUploadStatus(t *testing.T) {
	row := submitted(2)
	row.UploadStatus = models.UploadFailed // reservation already counted

	rows := []models.StudentResponse{served(1), row, submitted(3)}
	done := CompletedSteps(rows)

	require.Equal(t, map[int]struct{}{2: {}, 3: {}}, done)
}

func TestCompletedStepsPure(t *testing.T) {
	rows := []models.StudentResponse{submitted(1), served(2)}
	first := CompletedSteps(rows)
	second := CompletedSteps(rows)
	require.Equal(t, first, second)
}

func TestNextIncomplete(t *testing.T) {
	done := CompletedSteps([]models.StudentResponse{submitted(1), submitted(3)})

	next, ok := NextIncomplete(done, 4)
	require.True(t, ok)
	require.Equal(t, 2, next)

	// Never a step already completed.
	_, completed := done[next]
	require.False(t, completed)
}

func TestNextIncompleteAllDone(t *testing.T) {
	done := CompletedSteps([]models.StudentResponse{
		submitted(1), submitted(2), submitted(3), submitted(4),
	})
	_, ok := NextIncomplete(done, 4)
	require.False(t, ok)
}

func TestNextIncompleteEmpty(t *testing.T) {
	next, ok := NextIncomplete(CompletedSteps(nil), 4)
	require.True(t, ok)
	require.Equal(t, 1, next)
}

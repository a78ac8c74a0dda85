package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"vantage-go/internal/config"
	"vantage-go/internal/repository"
)

// Sweeper fails reservations whose upload never confirmed. A crashed or
// abandoned client leaves rows stuck in pending; once a row is older than
// the stale window it is marked failed so reviewers can see the gap. The
// step itself stays completed.
type Sweeper struct {
	log *zap.Logger
}

func NewSweeper(log *zap.Logger) *Sweeper {
	return &Sweeper{log: log}
}

// Start runs the sweeper in a goroutine until the context is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	s.log.Info("Starting stale reservation sweeper...")
	go func() {
		ticker := time.NewTicker(config.Conf.Upload.SweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep(ctx)
			}
		}
	}()
}

func (s *Sweeper) sweep(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-config.Conf.Upload.StaleReservation)
	rows, err := repository.StalePendingResponses(ctx, cutoff)
	if err != nil {
		s.log.Error("Failed to query stale reservations", zap.Error(err))
		return
	}

	for _, row := range rows {
		if err := repository.MarkResponseUploadFailed(ctx, row.SessionID, row.Step, row.Phase); err != nil {
			s.log.Error("Failed to mark stale reservation",
				zap.String("session_id", row.SessionID.String()),
				zap.Int("step", row.Step),
				zap.Error(err))
			continue
		}
		s.log.Warn("Stale reservation marked failed",
			zap.String("session_id", row.SessionID.String()),
			zap.Int("step", row.Step),
			zap.Time("submitted_at", derefTime(row.ResponseSubmittedAt)))
	}
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

package tasks

import (
	"context"

	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/dmitrijs2005/filevault/internal/server/metrics"
	"github.com/dmitrijs2005/filevault/internal/server/models"
)

const sessionBatchSize = 100

// SessionStore is the part of the upload tracker the sweeper needs.
type SessionStore interface {
	Expired(ctx context.Context, limit int) ([]*models.UploadSession, error)
	Abort(ctx context.Context, s *models.UploadSession) error
}

// SessionSweeper aborts multipart uploads whose session outlived its TTL.
type SessionSweeper struct {
	sessions SessionStore
	metrics  *metrics.Metrics
	logger   logging.Logger
}

func NewSessionSweeper(sessions SessionStore, m *metrics.Metrics, logger logging.Logger) *SessionSweeper {
	return &SessionSweeper{sessions: sessions, metrics: m, logger: logger.With("module", "session_sweeper")}
}

// Sweep returns how many sessions were aborted. It keeps fetching batches
// while every session of the previous batch was aborted.
func (s *SessionSweeper) Sweep(ctx context.Context) (int, error) {
	total := 0
	for {
		batch, err := s.sessions.Expired(ctx, sessionBatchSize)
		if err != nil {
			return total, err
		}

		aborted := 0
		for _, session := range batch {
			if err := s.sessions.Abort(ctx, session); err != nil {
				s.logger.Error(ctx, "error aborting expired upload", "upload_id", session.UploadID, "error", err)
				continue
			}
			aborted++
			s.metrics.ObserveSessionExpired()
		}
		total += aborted

		if len(batch) < sessionBatchSize || aborted < len(batch) || ctx.Err() != nil {
			if total > 0 {
				s.logger.Info(ctx, "expired uploads aborted", "count", total)
			}
			return total, nil
		}
	}
}

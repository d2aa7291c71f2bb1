// Package tasks runs the background work of the server: trash expiry,
// abandoned upload cleanup and post-upload virus scans. Tasks talk to request
// handlers only through the metadata and blob stores.
package tasks

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/dmitrijs2005/filevault/internal/server/metrics"
	"github.com/dmitrijs2005/filevault/internal/server/models"
)

// DefaultRetention is how long a trashed file is kept before it is purged.
const DefaultRetention = 24 * time.Hour

// TrashPurger is the part of the file service the reaper needs.
type TrashPurger interface {
	ExpiredTrash(ctx context.Context, userID *string, cutoff time.Time) ([]*models.File, error)
	Purge(ctx context.Context, f *models.File) (bool, error)
}

// Summary reports one sweep. BlobErrors counts purges whose metadata was
// removed but whose blob could not be deleted.
type Summary struct {
	Purged     int
	Failed     int
	Skipped    int
	BlobErrors int
}

type Reaper struct {
	files     TrashPurger
	retention time.Duration
	now       func() time.Time
	metrics   *metrics.Metrics
	logger    logging.Logger
}

type ReaperOption func(*Reaper)

// WithReaperClock sets the clock the retention cutoff is computed from.
func WithReaperClock(now func() time.Time) ReaperOption {
	return func(r *Reaper) { r.now = now }
}

func NewReaper(files TrashPurger, retention time.Duration, m *metrics.Metrics, logger logging.Logger, opts ...ReaperOption) *Reaper {
	if retention <= 0 {
		retention = DefaultRetention
	}
	r := &Reaper{
		files:     files,
		retention: retention,
		now:       func() time.Time { return time.Now().UTC() },
		metrics:   m,
		logger:    logger.With("module", "reaper"),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Sweep purges the trashed files of userID, or of every user when userID is
// nil, that were deleted at least one retention period ago. A failing file
// is logged and the sweep moves on.
func (r *Reaper) Sweep(ctx context.Context, userID *string) (Summary, error) {
	var sum Summary

	cutoff := r.now().Add(-r.retention)
	expired, err := r.files.ExpiredTrash(ctx, userID, cutoff)
	if err != nil {
		return sum, err
	}

	for _, f := range expired {
		if ctx.Err() != nil {
			return sum, ctx.Err()
		}

		blobRemoved, err := r.files.Purge(ctx, f)
		switch {
		case err == nil:
			sum.Purged++
			if !blobRemoved {
				sum.BlobErrors++
			}
			r.metrics.ObservePurge(true)
		case errors.Is(err, common.ErrInvalidArgument), errors.Is(err, common.ErrorNotFound):
			// restored, re-trashed or already purged since the listing
			sum.Skipped++
		default:
			sum.Failed++
			r.metrics.ObservePurge(false)
			r.logger.Error(ctx, "error purging file", "file_id", f.ID, "user_id", f.UserID, "error", err)
		}
	}

	if len(expired) > 0 {
		r.logger.Info(ctx, "trash sweep finished",
			"purged", sum.Purged, "failed", sum.Failed, "skipped", sum.Skipped, "blob_errors", sum.BlobErrors)
	}
	return sum, nil
}

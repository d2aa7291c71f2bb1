package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/filevault/internal/logging"
	"golang.org/x/sync/errgroup"
)

// Runner schedules the periodic tasks and runs on-demand trash cleanups in
// the background.
type Runner struct {
	reaper         *Reaper
	sessions       *SessionSweeper
	scans          *ScanQueue
	reaperInterval time.Duration
	sweepInterval  time.Duration
	rescanInterval time.Duration
	logger         logging.Logger

	mu      sync.Mutex
	ctx     context.Context
	stopped bool // set once Run waits for in-flight cleanups
	pending sync.WaitGroup
}

// NewRunner takes the intervals of the trash reaper, the upload session
// sweeper and the pending-scan rescan. A zero interval disables the loop.
func NewRunner(reaper *Reaper, sessions *SessionSweeper, scans *ScanQueue, reaperInterval, sweepInterval, rescanInterval time.Duration, logger logging.Logger) *Runner {
	return &Runner{
		reaper:         reaper,
		sessions:       sessions,
		scans:          scans,
		reaperInterval: reaperInterval,
		sweepInterval:  sweepInterval,
		rescanInterval: rescanInterval,
		logger:         logger.With("module", "runner"),
		ctx:            context.Background(),
	}
}

// Run blocks until ctx is cancelled and every on-demand cleanup returned.
func (r *Runner) Run(ctx context.Context) error {
	r.mu.Lock()
	r.ctx = ctx
	r.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)

	if r.reaper != nil && r.reaperInterval > 0 {
		g.Go(func() error {
			every(ctx, r.reaperInterval, func(ctx context.Context) {
				if _, err := r.reaper.Sweep(ctx, nil); err != nil && ctx.Err() == nil {
					r.logger.Error(ctx, "trash sweep failed", "error", err)
				}
			})
			return nil
		})
	}

	if r.sessions != nil && r.sweepInterval > 0 {
		g.Go(func() error {
			every(ctx, r.sweepInterval, func(ctx context.Context) {
				if _, err := r.sessions.Sweep(ctx); err != nil && ctx.Err() == nil {
					r.logger.Error(ctx, "upload session sweep failed", "error", err)
				}
			})
			return nil
		})
	}

	if r.scans != nil {
		g.Go(func() error { return r.scans.Run(ctx) })
		g.Go(func() error {
			resume := func(ctx context.Context) {
				n, err := r.scans.Resume(ctx)
				if err != nil && ctx.Err() == nil {
					r.logger.Error(ctx, "requeueing pending scans failed", "error", err)
					return
				}
				if n > 0 {
					r.logger.Info(ctx, "pending scans requeued", "count", n)
				}
			}
			if r.rescanInterval <= 0 {
				resume(ctx)
				return nil
			}
			every(ctx, r.rescanInterval, resume)
			return nil
		})
	}

	err := g.Wait()

	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()
	r.pending.Wait()
	return err
}

// CleanupUser purges the user's expired trash in the background and returns
// at once. The cleanup is bound to the runner's lifetime, not the caller's.
// It reports false once the runner is shutting down.
func (r *Runner) CleanupUser(userID string) bool {
	r.mu.Lock()
	ctx := r.ctx
	if r.stopped {
		r.mu.Unlock()
		r.logger.Warn(ctx, "trash cleanup refused, runner stopped", "user_id", userID)
		return false
	}
	r.pending.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.pending.Done()
		sum, err := r.reaper.Sweep(ctx, &userID)
		if err != nil {
			r.logger.Error(ctx, "trash cleanup failed", "user_id", userID, "error", err)
			return
		}
		r.logger.Info(ctx, "trash cleanup finished", "user_id", userID, "purged", sum.Purged, "failed", sum.Failed)
	}()
	return true
}

// every runs fn at once and then on each tick until ctx is done.
func every(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	fn(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fn(ctx)
		case <-ctx.Done():
			return
		}
	}
}

package tasks

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/dmitrijs2005/filevault/internal/server/scanner"
	"github.com/dmitrijs2005/filevault/internal/server/services"
	"github.com/sethvargo/go-retry"
)

// StoredFileScanner is the part of the file service the scan workers need.
type StoredFileScanner interface {
	ScanStoredFile(ctx context.Context, userID, fileID string) (scanner.Result, error)
	PendingScans(ctx context.Context, limit int) ([]services.ScanJob, error)
}

// ScanQueue scans files after upload with bounded retries on scanner
// outages. It implements services.ScanQueue. The channel is only a fast
// path: every job also has a pending-scan row, and Resume feeds those back
// in, so a dropped or unfinished job is picked up again later.
type ScanQueue struct {
	files   StoredFileScanner
	jobs    chan services.ScanJob
	workers int
	retries uint64
	delay   time.Duration
	logger  logging.Logger

	mu     sync.Mutex
	queued map[string]struct{}
}

func NewScanQueue(files StoredFileScanner, workers, capacity int, retries int, delay time.Duration, logger logging.Logger) *ScanQueue {
	if workers < 1 {
		workers = 1
	}
	if capacity < 1 {
		capacity = 1
	}
	if retries < 0 {
		retries = 0
	}
	return &ScanQueue{
		files:   files,
		jobs:    make(chan services.ScanJob, capacity),
		workers: workers,
		retries: uint64(retries),
		delay:   delay,
		logger:  logger.With("module", "scan_queue"),
		queued:  make(map[string]struct{}),
	}
}

// Enqueue never blocks. A file already queued or being scanned is skipped;
// when the buffer is full the job is left to the next Resume.
func (q *ScanQueue) Enqueue(ctx context.Context, job services.ScanJob) {
	q.offer(ctx, job)
}

func (q *ScanQueue) offer(ctx context.Context, job services.ScanJob) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.queued[job.FileID]; ok {
		return false
	}
	select {
	case q.jobs <- job:
		q.queued[job.FileID] = struct{}{}
		return true
	default:
		q.logger.Warn(ctx, "scan queue full, job stays pending", "file_id", job.FileID)
		return false
	}
}

// Resume queues stored files still waiting for a verdict, oldest first, as
// many as fit into the buffer.
func (q *ScanQueue) Resume(ctx context.Context) (int, error) {
	jobs, err := q.files.PendingScans(ctx, cap(q.jobs))
	if err != nil {
		return 0, err
	}
	n := 0
	for _, job := range jobs {
		if q.offer(ctx, job) {
			n++
		}
	}
	return n, nil
}

// Len is the number of files queued or being scanned.
func (q *ScanQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queued)
}

func (q *ScanQueue) done(fileID string) {
	q.mu.Lock()
	delete(q.queued, fileID)
	q.mu.Unlock()
}

// Run consumes jobs until ctx is cancelled.
func (q *ScanQueue) Run(ctx context.Context) error {
	done := make(chan struct{})
	for i := 0; i < q.workers; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for {
				select {
				case job := <-q.jobs:
					q.process(ctx, job)
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	for i := 0; i < q.workers; i++ {
		<-done
	}
	return nil
}

func (q *ScanQueue) backoff() retry.Backoff {
	delay := q.delay
	if delay <= 0 {
		delay = time.Second
	}
	return retry.WithMaxRetries(q.retries, retry.NewExponential(delay))
}

func (q *ScanQueue) process(ctx context.Context, job services.ScanJob) {
	defer q.done(job.FileID)

	attempts := 0
	err := retry.Do(ctx, q.backoff(), func(ctx context.Context) error {
		attempts++
		_, err := q.files.ScanStoredFile(ctx, job.UserID, job.FileID)
		if errors.Is(err, common.ErrScanUnavailable) || errors.Is(err, common.ErrUnavailable) {
			return retry.RetryableError(err)
		}
		return err
	})

	switch {
	case err == nil:
	case errors.Is(err, common.ErrorNotFound):
		q.logger.Info(ctx, "scanned file is gone", "file_id", job.FileID)
	case ctx.Err() != nil:
		// shutting down; the pending row stays for the next start
	default:
		q.logger.Error(ctx, "post-upload scan failed, will retry from pending list", "file_id", job.FileID, "attempts", attempts, "error", err)
	}
}

package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/server/blobstore"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/repomanager"
)

// DefaultUploadTTL bounds how long a multipart session may stay open.
const DefaultUploadTTL = 24 * time.Hour

// UploadTracker persists multipart sessions so any server instance can
// resolve them and the sweeper can abort abandoned ones.
type UploadTracker struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       blobstore.Store
	ttl         time.Duration
	now         func() time.Time
}

func NewUploadTracker(db *sql.DB, m repomanager.RepositoryManager, store blobstore.Store, ttl time.Duration, now func() time.Time) *UploadTracker {
	if ttl <= 0 {
		ttl = DefaultUploadTTL
	}
	if now == nil {
		now = nowUTC
	}
	return &UploadTracker{db: db, repomanager: m, store: store, ttl: ttl, now: now}
}

// Open starts a multipart upload at s.ObjectPath and records the session.
// UploadID, CreatedAt and ExpiresAt are filled in.
func (t *UploadTracker) Open(ctx context.Context, s *models.UploadSession) error {
	uploadID, err := t.store.InitiateMultipart(ctx, s.ObjectPath, s.ContentType)
	if err != nil {
		return fmt.Errorf("error initiating multipart upload: %w", err)
	}

	now := t.now()
	s.UploadID = uploadID
	s.CreatedAt = now
	s.ExpiresAt = now.Add(t.ttl)

	if err := t.repomanager.Uploads(t.db).Create(ctx, s); err != nil {
		_ = t.store.AbortMultipart(ctx, s.ObjectPath, uploadID)
		return fmt.Errorf("error recording upload session: %w", err)
	}
	return nil
}

// Resolve returns the session owned by userID. Unknown, expired, closed and
// foreign sessions all yield ErrSessionNotFound.
func (t *UploadTracker) Resolve(ctx context.Context, userID, uploadID string) (*models.UploadSession, error) {
	s, err := t.repomanager.Uploads(t.db).Get(ctx, uploadID)
	if err != nil {
		if errors.Is(err, common.ErrSessionNotFound) {
			return nil, common.ErrSessionNotFound
		}
		return nil, fmt.Errorf("error loading upload session: %w", err)
	}
	if s.UserID != userID || !t.now().Before(s.ExpiresAt) {
		return nil, common.ErrSessionNotFound
	}
	return s, nil
}

// Close forgets the session. Closing twice is not an error.
func (t *UploadTracker) Close(ctx context.Context, uploadID string) error {
	if err := t.repomanager.Uploads(t.db).Delete(ctx, uploadID); err != nil {
		return fmt.Errorf("error closing upload session: %w", err)
	}
	return nil
}

// Expired lists up to limit sessions past their TTL.
func (t *UploadTracker) Expired(ctx context.Context, limit int) ([]*models.UploadSession, error) {
	return t.repomanager.Uploads(t.db).ListExpired(ctx, t.now(), limit)
}

// Abort cancels the multipart upload and removes anything already merged at
// the staging path, then closes the session.
func (t *UploadTracker) Abort(ctx context.Context, s *models.UploadSession) error {
	if err := t.store.AbortMultipart(ctx, s.ObjectPath, s.UploadID); err != nil && !errors.Is(err, blobstore.ErrNotFound) {
		return fmt.Errorf("error aborting multipart upload: %w", err)
	}
	if err := t.store.Delete(ctx, s.ObjectPath); err != nil && !errors.Is(err, blobstore.ErrNotFound) {
		return fmt.Errorf("error deleting staging object: %w", err)
	}
	return t.Close(ctx, s.UploadID)
}

package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/server/blobstore"
	"github.com/dmitrijs2005/filevault/internal/server/metrics"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/google/uuid"
)

// InitiateInput opens a chunked upload. Size is the declared total and is
// only used for the early quota check.
type InitiateInput struct {
	UserID      string
	FolderID    *string
	Filename    string
	ContentType string
	Size        int64
}

// InitiateUpload runs the admission pre-checks and opens a multipart upload
// at a staging path. Parts are merged there, and the merged bytes are
// encrypted to the final path by CompleteUpload.
func (s *FileService) InitiateUpload(ctx context.Context, in InitiateInput) (*models.UploadSession, error) {
	if err := s.precheck(ctx, in.UserID, in.FolderID, in.Filename, in.Size); err != nil {
		s.metrics.ObserveUpload(metrics.ModeChunked, 0, err)
		return nil, err
	}

	session := &models.UploadSession{
		UserID:       in.UserID,
		ObjectPath:   StagingPath(in.UserID, uuid.NewString()),
		Filename:     in.Filename,
		ContentType:  in.ContentType,
		FolderID:     in.FolderID,
		DeclaredSize: in.Size,
	}
	if err := s.uploads.Open(ctx, session); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "chunked upload started", "user_id", in.UserID, "upload_id", session.UploadID)
	return session, nil
}

// UploadChunk stores one part and returns its etag.
func (s *FileService) UploadChunk(ctx context.Context, userID, uploadID string, partNumber int32, data []byte) (string, error) {
	session, err := s.uploads.Resolve(ctx, userID, uploadID)
	if err != nil {
		return "", err
	}
	etag, err := s.store.UploadPart(ctx, session.ObjectPath, session.UploadID, partNumber, data)
	if err != nil {
		return "", fmt.Errorf("error uploading part %d: %w", partNumber, err)
	}
	return etag, nil
}

// CompleteUpload merges the parts, admits the merged size, seals the content
// at its final path and queues an asynchronous scan. Once the merge has
// happened the session is closed and the staging object removed whatever
// the outcome.
func (s *FileService) CompleteUpload(ctx context.Context, userID, uploadID, objectPath string, parts []blobstore.Part) (f *models.File, err error) {
	var size int64
	defer func() { s.metrics.ObserveUpload(metrics.ModeChunked, size, err) }()

	session, err := s.uploads.Resolve(ctx, userID, uploadID)
	if err != nil {
		return nil, err
	}
	if objectPath != "" && objectPath != session.ObjectPath {
		return nil, fmt.Errorf("object path does not match the session: %w", common.ErrInvalidArgument)
	}
	if err := blobstore.ValidateParts(parts); err != nil {
		return nil, err
	}

	if err := s.store.CompleteMultipart(ctx, session.ObjectPath, session.UploadID, parts); err != nil {
		return nil, fmt.Errorf("error completing multipart upload: %w", err)
	}
	defer s.discardStaging(ctx, session)

	info, err := s.store.Stat(ctx, session.ObjectPath)
	if err != nil {
		return nil, fmt.Errorf("error reading merged object: %w", err)
	}
	size = info.Size
	if session.DeclaredSize > 0 && session.DeclaredSize != size {
		s.logger.Warn(ctx, "merged size differs from declared size", "upload_id", uploadID, "declared", session.DeclaredSize, "actual", size)
	}

	if err := s.quota.Admit(ctx, userID, size); err != nil {
		return nil, err
	}

	plaintext, err := s.store.Get(ctx, session.ObjectPath)
	if err != nil {
		return nil, fmt.Errorf("error reading merged object: %w", err)
	}

	f = &models.File{
		UserID:      userID,
		FolderID:    session.FolderID,
		Filename:    session.Filename,
		ContentType: session.ContentType,
	}
	if err := s.checkFolder(ctx, userID, f.FolderID); err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		// the folder was deleted while the upload ran
		f.FolderID = nil
	}
	if err := s.seal(ctx, f, plaintext, s.scans != nil); err != nil {
		return nil, err
	}

	// The pending row is the durable record; the queue only speeds it up.
	if s.scans != nil {
		s.scans.Enqueue(ctx, ScanJob{UserID: userID, FileID: f.ID})
	}

	s.logger.Info(ctx, "chunked upload completed", "user_id", userID, "file_id", f.ID, "size", f.Size)
	return f, nil
}

func (s *FileService) discardStaging(ctx context.Context, session *models.UploadSession) {
	ctx = context.WithoutCancel(ctx)
	if err := s.store.Delete(ctx, session.ObjectPath); err != nil && !errors.Is(err, blobstore.ErrNotFound) {
		s.logger.Error(ctx, "error deleting staging object", "path", session.ObjectPath, "error", err)
	}
	if err := s.uploads.Close(ctx, session.UploadID); err != nil {
		s.logger.Error(ctx, "error closing upload session", "upload_id", session.UploadID, "error", err)
	}
}

// AbortUpload cancels a chunked upload and releases its session.
func (s *FileService) AbortUpload(ctx context.Context, userID, uploadID string) error {
	session, err := s.uploads.Resolve(ctx, userID, uploadID)
	if err != nil {
		return err
	}
	if err := s.uploads.Abort(ctx, session); err != nil {
		return err
	}
	s.logger.Info(ctx, "chunked upload aborted", "user_id", userID, "upload_id", uploadID)
	return nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/dbx"
	"github.com/dmitrijs2005/filevault/internal/server/blobstore"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/dmitrijs2005/filevault/internal/server/scanner"
)

// Delete moves an active file to the trash. The blob is left untouched.
func (s *FileService) Delete(ctx context.Context, userID, fileID string) error {
	if err := s.repomanager.Files(s.db).SoftDelete(ctx, userID, fileID, s.now()); err != nil {
		return fmt.Errorf("error trashing file: %w", err)
	}
	s.logger.Info(ctx, "file trashed", "user_id", userID, "file_id", fileID)
	return nil
}

// Restore brings a trashed file back if it still fits into the quota and
// its name is free in its folder. On rejection the file stays in the trash.
func (s *FileService) Restore(ctx context.Context, userID, fileID string) (*models.File, error) {
	f, err := s.repomanager.Files(s.db).Get(ctx, userID, fileID)
	if err != nil {
		return nil, fmt.Errorf("error loading file: %w", err)
	}
	if !f.IsDeleted {
		return nil, fmt.Errorf("file %s is not in the trash: %w", fileID, common.ErrorNotFound)
	}

	err = s.runTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.quota.AdmitLocked(ctx, tx, userID, f.Size); err != nil {
			return err
		}
		return s.repomanager.Files(tx).Restore(ctx, userID, fileID)
	})
	if err != nil {
		return nil, fmt.Errorf("error restoring file: %w", err)
	}

	f.IsDeleted = false
	f.DeletedAt = nil
	s.logger.Info(ctx, "file restored", "user_id", userID, "file_id", fileID)
	return f, nil
}

// Move puts an active file into another folder, or the root for nil.
func (s *FileService) Move(ctx context.Context, userID, fileID string, folderID *string) (*models.File, error) {
	f, err := s.repomanager.Files(s.db).GetActive(ctx, userID, fileID)
	if err != nil {
		return nil, fmt.Errorf("error loading file: %w", err)
	}
	if err := s.checkFolder(ctx, userID, folderID); err != nil {
		return nil, err
	}
	return s.relocate(ctx, f, folderID, f.Filename)
}

func (s *FileService) Rename(ctx context.Context, userID, fileID, filename string) (*models.File, error) {
	if err := validateName("filename", filename); err != nil {
		return nil, err
	}
	f, err := s.repomanager.Files(s.db).GetActive(ctx, userID, fileID)
	if err != nil {
		return nil, fmt.Errorf("error loading file: %w", err)
	}
	return s.relocate(ctx, f, f.FolderID, filename)
}

// relocate changes metadata only. Blob, params and size stay as they are.
func (s *FileService) relocate(ctx context.Context, f *models.File, folderID *string, filename string) (*models.File, error) {
	repo := s.repomanager.Files(s.db)

	taken, err := repo.NameTaken(ctx, f.UserID, folderID, filename, f.ID)
	if err != nil {
		return nil, fmt.Errorf("error checking file name: %w", err)
	}
	if taken {
		return nil, fmt.Errorf("%q: %w", filename, common.ErrDuplicateName)
	}

	if err := repo.Relocate(ctx, f.UserID, f.ID, folderID, filename); err != nil {
		return nil, fmt.Errorf("error updating file: %w", err)
	}
	f.FolderID = folderID
	f.Filename = filename
	return f, nil
}

// Purge removes a trashed file for good. Params and record go in one
// transaction under the owner's settings lock; the blob is deleted once that
// transaction committed, so a failed commit never leaves a trashed row
// without its blob. A blob failure is logged and reported through the
// returned flag; the orphaned object holds only ciphertext. The record is
// re-read under the lock, so a file restored or trashed again since f was
// listed is left alone.
func (s *FileService) Purge(ctx context.Context, f *models.File) (blobRemoved bool, err error) {
	err = s.runTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		// Restore takes the same lock.
		if _, err := s.repomanager.Settings(tx).GetForUpdate(ctx, f.UserID); err != nil && !errors.Is(err, common.ErrSettingsMissing) {
			return fmt.Errorf("error locking settings: %w", err)
		}

		cur, err := s.repomanager.Files(tx).Get(ctx, f.UserID, f.ID)
		if err != nil {
			return fmt.Errorf("error loading file: %w", err)
		}
		if !cur.IsDeleted || !sameTime(cur.DeletedAt, f.DeletedAt) {
			return fmt.Errorf("file %s left the trash: %w", f.ID, common.ErrInvalidArgument)
		}

		if err := s.repomanager.Encryption(tx).DeleteByFileID(ctx, f.ID); err != nil {
			return fmt.Errorf("error deleting encryption params: %w", err)
		}
		if err := s.repomanager.Files(tx).Delete(ctx, f.ID); err != nil {
			return fmt.Errorf("error deleting file record: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	blobRemoved = true
	if err := s.store.Delete(ctx, f.Path); err != nil && !errors.Is(err, blobstore.ErrNotFound) {
		blobRemoved = false
		s.logger.Error(ctx, "error deleting blob of purged file", "file_id", f.ID, "path", f.Path, "error", err)
	}

	s.logger.Info(ctx, "file purged", "user_id", f.UserID, "file_id", f.ID, "blob_removed", blobRemoved)
	return blobRemoved, nil
}

// ScanStoredFile decrypts a stored file and runs it through the oracle,
// flagging it infected on a positive verdict. Any verdict clears the file's
// pending-scan record. Scanner outages are returned so the caller can retry.
func (s *FileService) ScanStoredFile(ctx context.Context, userID, fileID string) (scanner.Result, error) {
	f, err := s.repomanager.Files(s.db).Get(ctx, userID, fileID)
	if err != nil {
		return scanner.Result{}, fmt.Errorf("error loading file: %w", err)
	}

	data, err := s.decrypt(ctx, f)
	if err != nil {
		// a damaged file is never served, so it needs no verdict
		if errors.Is(err, common.ErrCorruptPayload) || errors.Is(err, common.ErrEncryptionParamsMissing) {
			if rerr := s.repomanager.Scans(s.db).Remove(ctx, f.ID); rerr != nil {
				s.logger.Error(ctx, "error clearing pending scan", "file_id", f.ID, "error", rerr)
			}
		}
		return scanner.Result{}, err
	}

	res, err := s.oracle.Scan(ctx, data)
	if err != nil {
		s.metrics.ObserveScan(scanner.Unavailable.String())
		return scanner.Result{}, fmt.Errorf("error scanning file: %w: %w", common.ErrScanUnavailable, err)
	}
	s.metrics.ObserveScan(res.Verdict.String())

	switch res.Verdict {
	case scanner.Infected:
		if err := s.repomanager.Files(s.db).MarkInfected(ctx, f.ID); err != nil {
			return res, fmt.Errorf("error flagging file: %w", err)
		}
		s.logger.Warn(ctx, "stored file is infected", "user_id", userID, "file_id", fileID, "signature", res.Signature)
	case scanner.Unavailable:
		return res, common.ErrScanUnavailable
	}

	if err := s.repomanager.Scans(s.db).Remove(ctx, f.ID); err != nil {
		return res, fmt.Errorf("error clearing pending scan: %w", err)
	}
	return res, nil
}

// PendingScans lists up to limit stored files still waiting for a verdict,
// oldest first.
func (s *FileService) PendingScans(ctx context.Context, limit int) ([]ScanJob, error) {
	pending, err := s.repomanager.Scans(s.db).List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing pending scans: %w", err)
	}
	jobs := make([]ScanJob, 0, len(pending))
	for _, p := range pending {
		jobs = append(jobs, ScanJob{UserID: p.UserID, FileID: p.FileID})
	}
	return jobs, nil
}

// ExpiredTrash lists trashed files deleted at or before cutoff, for one user
// or for everyone when userID is nil.
func (s *FileService) ExpiredTrash(ctx context.Context, userID *string, cutoff time.Time) ([]*models.File, error) {
	files, err := s.repomanager.Files(s.db).ExpiredTrash(ctx, userID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("error listing expired trash: %w", err)
	}
	return files, nil
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

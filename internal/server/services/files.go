package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/cryptox"
	"github.com/dmitrijs2005/filevault/internal/dbx"
	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/dmitrijs2005/filevault/internal/server/blobstore"
	"github.com/dmitrijs2005/filevault/internal/server/metrics"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/filevault/internal/server/scanner"
	"github.com/google/uuid"
)

const (
	TopFilesCount      = 10
	DefaultSearchLimit = 50
	MaxSearchLimit     = 1000
)

// ScanJob asks for a stored file to be scanned after the fact.
type ScanJob struct {
	UserID string
	FileID string
}

// ScanQueue accepts scan jobs for files admitted without an inline scan.
type ScanQueue interface {
	Enqueue(ctx context.Context, job ScanJob)
}

// FileService owns the file state machine: ACTIVE -> TRASHED -> PURGED, with
// restore as the only way back.
type FileService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       blobstore.Store
	oracle      scanner.Oracle
	quota       *QuotaLedger
	uploads     *UploadTracker
	scans       ScanQueue
	metrics     *metrics.Metrics
	logger      logging.Logger
	now         func() time.Time
	uploadTTL   time.Duration
	inlineLimit int64
	runTx       txRunner
}

type Option func(*FileService)

// WithClock replaces the wall clock used for trash timestamps and session expiry.
func WithClock(now func() time.Time) Option {
	return func(s *FileService) { s.now = now }
}

func WithScanQueue(q ScanQueue) Option {
	return func(s *FileService) { s.scans = q }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *FileService) { s.metrics = m }
}

func WithUploadTTL(d time.Duration) Option {
	return func(s *FileService) { s.uploadTTL = d }
}

// WithInlineLimit caps the size Download returns in one piece. Zero means
// no cap.
func WithInlineLimit(n int64) Option {
	return func(s *FileService) { s.inlineLimit = n }
}

func NewFileService(db *sql.DB, m repomanager.RepositoryManager, store blobstore.Store, oracle scanner.Oracle, logger logging.Logger, opts ...Option) *FileService {
	s := &FileService{
		db:          db,
		repomanager: m,
		store:       store,
		oracle:      oracle,
		logger:      logger.With("module", "files"),
		now:         nowUTC,
		uploadTTL:   DefaultUploadTTL,
		runTx:       sqlTx(db),
	}
	for _, o := range opts {
		o(s)
	}
	s.quota = NewQuotaLedger(db, m)
	s.uploads = NewUploadTracker(db, m, store, s.uploadTTL, s.now)
	return s
}

func (s *FileService) Quota() *QuotaLedger {
	return s.quota
}

func (s *FileService) Uploads() *UploadTracker {
	return s.uploads
}

// UploadInput is a single-shot upload.
type UploadInput struct {
	UserID      string
	FolderID    *string
	Filename    string
	ContentType string
	Data        []byte
}

// Upload admits, scans, encrypts and stores a file in one call. Every
// rejection happens before the blob is written and leaves nothing behind.
func (s *FileService) Upload(ctx context.Context, in UploadInput) (f *models.File, err error) {
	defer func() { s.metrics.ObserveUpload(metrics.ModeSingle, int64(len(in.Data)), err) }()

	size := int64(len(in.Data))
	if err := s.precheck(ctx, in.UserID, in.FolderID, in.Filename, size); err != nil {
		return nil, err
	}

	if err := s.scan(ctx, in.Data); err != nil {
		return nil, err
	}

	f = &models.File{
		UserID:      in.UserID,
		FolderID:    in.FolderID,
		Filename:    in.Filename,
		ContentType: in.ContentType,
	}
	if err := s.seal(ctx, f, in.Data, false); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "file uploaded", "user_id", f.UserID, "file_id", f.ID, "size", f.Size)
	return f, nil
}

// precheck runs the admission steps shared by both upload paths: name and
// folder validation, settings and quota, then the active-name check.
func (s *FileService) precheck(ctx context.Context, userID string, folderID *string, filename string, size int64) error {
	if err := validateName("filename", filename); err != nil {
		return err
	}
	if size < 0 {
		return fmt.Errorf("negative size: %w", common.ErrInvalidArgument)
	}
	if err := s.checkFolder(ctx, userID, folderID); err != nil {
		return err
	}
	if err := s.quota.Admit(ctx, userID, size); err != nil {
		return err
	}
	taken, err := s.repomanager.Files(s.db).NameTaken(ctx, userID, folderID, filename, "")
	if err != nil {
		return fmt.Errorf("error checking file name: %w", err)
	}
	if taken {
		return fmt.Errorf("%q: %w", filename, common.ErrDuplicateName)
	}
	return nil
}

func (s *FileService) checkFolder(ctx context.Context, userID string, folderID *string) error {
	if folderID == nil {
		return nil
	}
	if _, err := s.repomanager.Folders(s.db).Get(ctx, userID, *folderID); err != nil {
		return fmt.Errorf("folder %s: %w", *folderID, err)
	}
	return nil
}

// scan fails closed: an unreachable oracle rejects the upload.
func (s *FileService) scan(ctx context.Context, data []byte) error {
	res, err := s.oracle.Scan(ctx, data)
	if err != nil {
		s.metrics.ObserveScan(scanner.Unavailable.String())
		return fmt.Errorf("error scanning file: %w: %w", common.ErrScanUnavailable, err)
	}
	s.metrics.ObserveScan(res.Verdict.String())
	switch res.Verdict {
	case scanner.Clean:
		return nil
	case scanner.Infected:
		return fmt.Errorf("%s: %w", res.Signature, common.ErrInfected)
	default:
		return common.ErrScanUnavailable
	}
}

// seal encrypts plaintext under a fresh per-file key, writes the ciphertext
// and commits the file row with its params. Quota is admitted again under the
// settings row lock. With pendingScan the row is recorded as awaiting a scan
// in the same transaction. If the commit fails the blob is removed best effort.
func (s *FileService) seal(ctx context.Context, f *models.File, plaintext []byte, pendingScan bool) error {
	salt := cryptox.NewSalt()
	key := cryptox.DeriveFileKey(f.UserID, salt)
	ciphertext, iv, err := cryptox.EncryptCBC(plaintext, key)
	common.WipeByteArray(key)
	if err != nil {
		return fmt.Errorf("error encrypting file: %w", err)
	}

	f.ID = uuid.NewString()
	f.Size = int64(len(plaintext))
	f.Path = BlobPath(f.UserID, f.FolderID, f.ID, f.Filename)

	if err := s.store.Put(ctx, f.Path, ciphertext, "application/octet-stream"); err != nil {
		return fmt.Errorf("error storing file: %w", err)
	}

	err = s.runTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.quota.AdmitLocked(ctx, tx, f.UserID, f.Size); err != nil {
			return err
		}
		if err := s.repomanager.Files(tx).Create(ctx, f); err != nil {
			return fmt.Errorf("error creating file record: %w", err)
		}
		params := &models.FileEncryption{FileID: f.ID, Salt: salt, IV: iv}
		if err := s.repomanager.Encryption(tx).Create(ctx, params); err != nil {
			return fmt.Errorf("error saving encryption params: %w", err)
		}
		if pendingScan {
			if err := s.repomanager.Scans(tx).Add(ctx, &models.PendingScan{FileID: f.ID, UserID: f.UserID}); err != nil {
				return fmt.Errorf("error recording pending scan: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		if derr := s.store.Delete(context.WithoutCancel(ctx), f.Path); derr != nil {
			s.logger.Error(ctx, "blob left behind after failed commit", "path", f.Path, "error", derr)
		}
		return err
	}
	return nil
}

// Download returns the decrypted content of an active file. Integrity
// failures are logged and surface as ErrEncryptionParamsMissing or
// ErrCorruptPayload.
func (s *FileService) Download(ctx context.Context, userID, fileID string) (f *models.File, data []byte, err error) {
	defer func() { s.metrics.ObserveDownload(err) }()

	f, err = s.repomanager.Files(s.db).GetActive(ctx, userID, fileID)
	if err != nil {
		return nil, nil, fmt.Errorf("error loading file: %w", err)
	}
	if f.IsInfected {
		return nil, nil, common.ErrInfected
	}
	if s.inlineLimit > 0 && f.Size > s.inlineLimit {
		return nil, nil, fmt.Errorf("%d bytes over inline limit %d: %w", f.Size, s.inlineLimit, common.ErrTooLarge)
	}

	data, err = s.decrypt(ctx, f)
	if err != nil {
		return nil, nil, err
	}
	return f, data, nil
}

func (s *FileService) decrypt(ctx context.Context, f *models.File) ([]byte, error) {
	params, err := s.params(ctx, f)
	if err != nil {
		return nil, err
	}

	ciphertext, err := s.store.Get(ctx, f.Path)
	if err != nil {
		return nil, s.fetchError(ctx, f, err)
	}

	key := cryptox.DeriveFileKey(f.UserID, params.Salt)
	plaintext, err := cryptox.DecryptCBC(ciphertext, key, params.IV)
	common.WipeByteArray(key)
	if err != nil {
		s.logger.Error(ctx, "file failed to decrypt", "file_id", f.ID, "error", err)
		return nil, fmt.Errorf("error decrypting file: %w", err)
	}
	if int64(len(plaintext)) != f.Size {
		s.logger.Error(ctx, "file size mismatch", "file_id", f.ID, "want", f.Size, "got", len(plaintext))
		return nil, fmt.Errorf("size %d, recorded %d: %w", len(plaintext), f.Size, common.ErrCorruptPayload)
	}
	return plaintext, nil
}

func (s *FileService) params(ctx context.Context, f *models.File) (*models.FileEncryption, error) {
	params, err := s.repomanager.Encryption(s.db).Get(ctx, f.ID)
	if err != nil {
		if errors.Is(err, common.ErrEncryptionParamsMissing) {
			s.logger.Error(ctx, "file has no encryption params", "file_id", f.ID)
		}
		return nil, fmt.Errorf("error loading encryption params: %w", err)
	}
	return params, nil
}

func (s *FileService) fetchError(ctx context.Context, f *models.File, err error) error {
	if errors.Is(err, blobstore.ErrNotFound) {
		s.logger.Error(ctx, "file blob is missing", "file_id", f.ID, "path", f.Path)
		return fmt.Errorf("blob missing: %w: %w", common.ErrCorruptPayload, err)
	}
	return fmt.Errorf("error fetching file: %w", err)
}

// DownloadRange returns up to length plaintext bytes of an active file
// starting at offset. Only the cipher blocks covering the range are read,
// plus the block before them, which is their IV. An offset at or past the
// end gives an empty slice.
func (s *FileService) DownloadRange(ctx context.Context, userID, fileID string, offset, length int64) (*models.File, []byte, error) {
	if offset < 0 || length <= 0 {
		return nil, nil, fmt.Errorf("range %d+%d: %w", offset, length, common.ErrInvalidArgument)
	}

	f, err := s.repomanager.Files(s.db).GetActive(ctx, userID, fileID)
	if err != nil {
		return nil, nil, fmt.Errorf("error loading file: %w", err)
	}
	if f.IsInfected {
		return nil, nil, common.ErrInfected
	}
	if offset >= f.Size {
		return f, []byte{}, nil
	}
	end := min(offset+length, f.Size)

	params, err := s.params(ctx, f)
	if err != nil {
		return nil, nil, err
	}

	const bs = cryptox.IVSize
	first := offset / bs * bs
	last := (end + bs - 1) / bs * bs
	from := max(first-bs, 0)

	raw, err := s.store.GetRange(ctx, f.Path, from, last-from)
	if err != nil {
		return nil, nil, s.fetchError(ctx, f, err)
	}
	if int64(len(raw)) != last-from {
		s.logger.Error(ctx, "file blob is truncated", "file_id", f.ID, "want", last-from, "got", len(raw))
		return nil, nil, fmt.Errorf("blob range %d bytes, want %d: %w", len(raw), last-from, common.ErrCorruptPayload)
	}

	iv, body := params.IV, raw
	if first > 0 {
		iv, body = raw[:bs], raw[bs:]
	}

	key := cryptox.DeriveFileKey(f.UserID, params.Salt)
	plaintext, err := cryptox.DecryptCBCBlocks(body, key, iv)
	common.WipeByteArray(key)
	if err != nil {
		s.logger.Error(ctx, "file range failed to decrypt", "file_id", f.ID, "error", err)
		return nil, nil, fmt.Errorf("error decrypting file: %w", err)
	}
	return f, plaintext[offset-first : end-first], nil
}

// GetFile returns metadata of an active file.
func (s *FileService) GetFile(ctx context.Context, userID, fileID string) (*models.File, error) {
	f, err := s.repomanager.Files(s.db).GetActive(ctx, userID, fileID)
	if err != nil {
		return nil, fmt.Errorf("error loading file: %w", err)
	}
	return f, nil
}

// ListFiles lists active files of a folder, or of the root when folderID is nil.
func (s *FileService) ListFiles(ctx context.Context, userID string, folderID *string) ([]*models.File, error) {
	if err := s.checkFolder(ctx, userID, folderID); err != nil {
		return nil, err
	}
	files, err := s.repomanager.Files(s.db).ListByFolder(ctx, userID, folderID)
	if err != nil {
		return nil, fmt.Errorf("error listing files: %w", err)
	}
	return files, nil
}

func (s *FileService) ListTrash(ctx context.Context, userID string) ([]*models.File, error) {
	files, err := s.repomanager.Files(s.db).ListTrash(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing trash: %w", err)
	}
	return files, nil
}

// Search clamps the page size to 1..MaxSearchLimit, DefaultSearchLimit when unset.
func (s *FileService) Search(ctx context.Context, userID string, filter models.FileFilter) ([]*models.File, error) {
	if filter.Offset < 0 {
		return nil, fmt.Errorf("negative offset: %w", common.ErrInvalidArgument)
	}
	switch {
	case filter.Limit <= 0:
		filter.Limit = DefaultSearchLimit
	case filter.Limit > MaxSearchLimit:
		filter.Limit = MaxSearchLimit
	}
	files, err := s.repomanager.Files(s.db).Search(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("error searching files: %w", err)
	}
	return files, nil
}

func (s *FileService) Stats(ctx context.Context, userID string) (*models.FileStats, error) {
	stats, err := s.repomanager.Files(s.db).Stats(ctx, userID, TopFilesCount)
	if err != nil {
		return nil, fmt.Errorf("error computing stats: %w", err)
	}
	return stats, nil
}

func (s *FileService) Usage(ctx context.Context, userID string) (Usage, error) {
	return s.quota.Usage(ctx, userID)
}

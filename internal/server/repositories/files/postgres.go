// Package files stores file metadata rows in PostgreSQL.
package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/dbx"
	"github.com/dmitrijs2005/filevault/internal/server/models"
)

// ActiveNameIndex is the partial unique index guarding active names per folder.
const ActiveNameIndex = "files_active_name_key"

const fileColumns = `id, user_id, folder_id, filename, content_type, size, path, is_deleted, deleted_at, is_infected, uploaded_at`

// PostgresRepository implements file storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFile(s scanner) (*models.File, error) {
	f := &models.File{}
	err := s.Scan(&f.ID, &f.UserID, &f.FolderID, &f.Filename, &f.ContentType, &f.Size, &f.Path,
		&f.IsDeleted, &f.DeletedAt, &f.IsInfected, &f.UploadedAt)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// validFolder treats a nil folder (the root) as valid.
func validFolder(folderID *string) bool {
	return folderID == nil || dbx.ValidID(*folderID)
}

func (r *PostgresRepository) queryFiles(ctx context.Context, query string, args ...any) ([]*models.File, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbx.Wrap("failed to select files", err)
	}
	defer rows.Close()

	var result []*models.File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Create inserts an ACTIVE file row and fills UploadedAt from the database.
// A name clash with another active file in the same folder yields
// common.ErrDuplicateName.
func (r *PostgresRepository) Create(ctx context.Context, file *models.File) error {
	query := `
		INSERT INTO files (id, user_id, folder_id, filename, content_type, size, path)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING uploaded_at`

	err := r.db.QueryRowContext(ctx, query,
		file.ID, file.UserID, file.FolderID, file.Filename, file.ContentType, file.Size, file.Path).
		Scan(&file.UploadedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err, ActiveNameIndex) {
			return common.ErrDuplicateName
		}
		return dbx.Wrap("db error", err)
	}
	return nil
}

// Get returns the file in any state.
func (r *PostgresRepository) Get(ctx context.Context, userID, id string) (*models.File, error) {
	if !dbx.ValidID(id) {
		return nil, common.ErrorNotFound
	}
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1 AND user_id = $2`
	f, err := scanFile(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, dbx.Wrap("failed to select file", err)
	}
	return f, nil
}

// GetActive returns the file only while it is not in the trash.
func (r *PostgresRepository) GetActive(ctx context.Context, userID, id string) (*models.File, error) {
	if !dbx.ValidID(id) {
		return nil, common.ErrorNotFound
	}
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1 AND user_id = $2 AND NOT is_deleted`
	f, err := scanFile(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, dbx.Wrap("failed to select file", err)
	}
	return f, nil
}

// NameTaken reports whether an active file other than excludeID already uses
// filename in the folder (nil folder is the root).
func (r *PostgresRepository) NameTaken(ctx context.Context, userID string, folderID *string, filename, excludeID string) (bool, error) {
	if !validFolder(folderID) {
		return false, common.ErrorNotFound
	}
	query := `
		SELECT EXISTS (
			SELECT 1 FROM files
			WHERE user_id = $1 AND folder_id IS NOT DISTINCT FROM $2 AND filename = $3
			  AND NOT is_deleted AND ($4 = '' OR id::text <> $4)
		)`
	var taken bool
	if err := r.db.QueryRowContext(ctx, query, userID, folderID, filename, excludeID).Scan(&taken); err != nil {
		return false, dbx.Wrap("db error", err)
	}
	return taken, nil
}

// UsedBytes is the sum of plaintext sizes of the user's active files.
func (r *PostgresRepository) UsedBytes(ctx context.Context, userID string) (int64, error) {
	query := `SELECT COALESCE(SUM(size), 0)::bigint FROM files WHERE user_id = $1 AND NOT is_deleted`
	var used int64
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&used); err != nil {
		return 0, dbx.Wrap("db error", err)
	}
	return used, nil
}

func expectOne(res sql.Result, err error) error {
	if err != nil {
		if dbx.IsUniqueViolation(err, ActiveNameIndex) {
			return common.ErrDuplicateName
		}
		return dbx.Wrap("db error", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return dbx.Wrap("rows affected error", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrorNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

// SoftDelete moves an active file to the trash.
func (r *PostgresRepository) SoftDelete(ctx context.Context, userID, id string, at time.Time) error {
	if !dbx.ValidID(id) {
		return common.ErrorNotFound
	}
	query := `UPDATE files SET is_deleted = true, deleted_at = $3 WHERE id = $1 AND user_id = $2 AND NOT is_deleted`
	return expectOne(r.db.ExecContext(ctx, query, id, userID, at))
}

// Restore brings a trashed file back. The partial unique index rejects the
// restore when an active file with the same name exists in the folder.
func (r *PostgresRepository) Restore(ctx context.Context, userID, id string) error {
	if !dbx.ValidID(id) {
		return common.ErrorNotFound
	}
	query := `UPDATE files SET is_deleted = false, deleted_at = NULL WHERE id = $1 AND user_id = $2 AND is_deleted`
	return expectOne(r.db.ExecContext(ctx, query, id, userID))
}

// Relocate changes folder and name of an active file in one statement.
func (r *PostgresRepository) Relocate(ctx context.Context, userID, id string, folderID *string, filename string) error {
	if !dbx.ValidID(id) || !validFolder(folderID) {
		return common.ErrorNotFound
	}
	query := `UPDATE files SET folder_id = $3, filename = $4 WHERE id = $1 AND user_id = $2 AND NOT is_deleted`
	return expectOne(r.db.ExecContext(ctx, query, id, userID, folderID, filename))
}

// TrashFolderFiles detaches every file of the folder to the root and trashes
// the active ones. Files that were already in the trash keep their deleted_at.
func (r *PostgresRepository) TrashFolderFiles(ctx context.Context, userID, folderID string, at time.Time) (int64, error) {
	if !dbx.ValidID(folderID) {
		return 0, nil
	}
	query := `
		UPDATE files
		SET folder_id = NULL, is_deleted = true, deleted_at = COALESCE(deleted_at, $3)
		WHERE user_id = $1 AND folder_id = $2`
	res, err := r.db.ExecContext(ctx, query, userID, folderID, at)
	if err != nil {
		return 0, dbx.Wrap("db error", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, dbx.Wrap("rows affected error", err)
	}
	return n, nil
}

// MarkInfected flags the file so downloads are refused.
func (r *PostgresRepository) MarkInfected(ctx context.Context, id string) error {
	if !dbx.ValidID(id) {
		return common.ErrorNotFound
	}
	query := `UPDATE files SET is_infected = true WHERE id = $1`
	return expectOne(r.db.ExecContext(ctx, query, id))
}

// Delete removes a trashed row. Encryption params go with it (ON DELETE
// CASCADE). Active files are reported as common.ErrorNotFound.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	if !dbx.ValidID(id) {
		return common.ErrorNotFound
	}
	query := `DELETE FROM files WHERE id = $1 AND is_deleted`
	return expectOne(r.db.ExecContext(ctx, query, id))
}

// ListByFolder returns active files of one folder ordered by name.
func (r *PostgresRepository) ListByFolder(ctx context.Context, userID string, folderID *string) ([]*models.File, error) {
	if !validFolder(folderID) {
		return nil, common.ErrorNotFound
	}
	query := `SELECT ` + fileColumns + ` FROM files
		WHERE user_id = $1 AND folder_id IS NOT DISTINCT FROM $2 AND NOT is_deleted
		ORDER BY filename`
	return r.queryFiles(ctx, query, userID, folderID)
}

// ListTrash returns trashed files, most recently deleted first.
func (r *PostgresRepository) ListTrash(ctx context.Context, userID string) ([]*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files
		WHERE user_id = $1 AND is_deleted
		ORDER BY deleted_at DESC`
	return r.queryFiles(ctx, query, userID)
}

// Search matches active files by case-insensitive name substring and exact
// content type. Empty filter fields match everything.
func (r *PostgresRepository) Search(ctx context.Context, userID string, filter models.FileFilter) ([]*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files
		WHERE user_id = $1 AND NOT is_deleted
		  AND ($2 = '' OR filename ILIKE '%' || $2 || '%' ESCAPE '\')
		  AND ($3 = '' OR content_type = $3)
		ORDER BY uploaded_at DESC
		LIMIT $4 OFFSET $5`
	return r.queryFiles(ctx, query, userID, escapeLike(filter.Filename), filter.ContentType, filter.Limit, filter.Offset)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside a LIKE pattern escaped with '\'.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// Stats counts active files and returns the top largest ones.
func (r *PostgresRepository) Stats(ctx context.Context, userID string, top int) (*models.FileStats, error) {
	query := `SELECT COUNT(*), COALESCE(SUM(size), 0)::bigint FROM files WHERE user_id = $1 AND NOT is_deleted`
	stats := &models.FileStats{}
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&stats.TotalFiles, &stats.TotalSize); err != nil {
		return nil, dbx.Wrap("db error", err)
	}

	topQuery := `SELECT ` + fileColumns + ` FROM files
		WHERE user_id = $1 AND NOT is_deleted
		ORDER BY size DESC, filename
		LIMIT $2`
	topFiles, err := r.queryFiles(ctx, topQuery, userID, top)
	if err != nil {
		return nil, err
	}
	stats.TopFiles = topFiles
	return stats, nil
}

// ExpiredTrash lists trashed files deleted at or before cutoff. A nil userID
// covers all users.
func (r *PostgresRepository) ExpiredTrash(ctx context.Context, userID *string, cutoff time.Time) ([]*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files
		WHERE is_deleted AND deleted_at <= $1 AND ($2::uuid IS NULL OR user_id = $2)
		ORDER BY deleted_at`
	return r.queryFiles(ctx, query, cutoff, userID)
}

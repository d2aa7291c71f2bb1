// Package uploads persists in-flight multipart upload sessions.
package uploads

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/dbx"
	"github.com/dmitrijs2005/filevault/internal/server/models"
)

const sessionColumns = `upload_id, user_id, object_path, filename, content_type, folder_id, declared_size, created_at, expires_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, s *models.UploadSession) error {
	query := `
		INSERT INTO upload_sessions (upload_id, user_id, object_path, filename, content_type, folder_id, declared_size, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`
	err := r.db.QueryRowContext(ctx, query,
		s.UploadID, s.UserID, s.ObjectPath, s.Filename, s.ContentType, s.FolderID, s.DeclaredSize, s.ExpiresAt).
		Scan(&s.CreatedAt)
	if err != nil {
		return dbx.Wrap("db error", err)
	}
	return nil
}

// Get returns common.ErrSessionNotFound for unknown ids.
func (r *PostgresRepository) Get(ctx context.Context, uploadID string) (*models.UploadSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM upload_sessions WHERE upload_id = $1`
	s := &models.UploadSession{}
	err := r.db.QueryRowContext(ctx, query, uploadID).
		Scan(&s.UploadID, &s.UserID, &s.ObjectPath, &s.Filename, &s.ContentType, &s.FolderID, &s.DeclaredSize, &s.CreatedAt, &s.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrSessionNotFound
		}
		return nil, dbx.Wrap("db error", err)
	}
	return s, nil
}

// Delete is idempotent.
func (r *PostgresRepository) Delete(ctx context.Context, uploadID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM upload_sessions WHERE upload_id = $1`, uploadID); err != nil {
		return dbx.Wrap("db error", err)
	}
	return nil
}

// ListExpired returns up to limit sessions whose expires_at is not after now.
func (r *PostgresRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]*models.UploadSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM upload_sessions
		WHERE expires_at <= $1
		ORDER BY expires_at
		LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, dbx.Wrap("failed to select upload sessions", err)
	}
	defer rows.Close()

	var result []*models.UploadSession
	for rows.Next() {
		s := &models.UploadSession{}
		if err := rows.Scan(&s.UploadID, &s.UserID, &s.ObjectPath, &s.Filename, &s.ContentType, &s.FolderID, &s.DeclaredSize, &s.CreatedAt, &s.ExpiresAt); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

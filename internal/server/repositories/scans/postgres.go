// Package scans keeps the durable list of files still waiting for a
// post-upload scan.
package scans

import (
	"context"

	"github.com/dmitrijs2005/filevault/internal/dbx"
	"github.com/dmitrijs2005/filevault/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Add(ctx context.Context, scan *models.PendingScan) error {
	query := `
		INSERT INTO pending_scans (file_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (file_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, scan.FileID, scan.UserID); err != nil {
		return dbx.Wrap("db error", err)
	}
	return nil
}

// Remove is a no-op for files that are not pending.
func (r *PostgresRepository) Remove(ctx context.Context, fileID string) error {
	if !dbx.ValidID(fileID) {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM pending_scans WHERE file_id = $1`, fileID); err != nil {
		return dbx.Wrap("db error", err)
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context, limit int) ([]*models.PendingScan, error) {
	query := `SELECT file_id, user_id, enqueued_at FROM pending_scans ORDER BY enqueued_at LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, dbx.Wrap("failed to select pending scans", err)
	}
	defer rows.Close()

	var result []*models.PendingScan
	for rows.Next() {
		s := &models.PendingScan{}
		if err := rows.Scan(&s.FileID, &s.UserID, &s.EnqueuedAt); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, dbx.Wrap("failed to read pending scans", err)
	}
	return result, nil
}

// Package settings stores per-user limits.
package settings

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/dbx"
	"github.com/dmitrijs2005/filevault/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, s *models.Settings) error {
	query := `INSERT INTO user_settings (user_id, storage_limit) VALUES ($1, $2)`
	if _, err := r.db.ExecContext(ctx, query, s.UserID, s.StorageLimit); err != nil {
		return dbx.Wrap("db error", err)
	}
	return nil
}

// Update overwrites the storage limit. A user without a settings row gets
// ErrSettingsMissing.
func (r *PostgresRepository) Update(ctx context.Context, s *models.Settings) error {
	if !dbx.ValidID(s.UserID) {
		return common.ErrSettingsMissing
	}
	query := `UPDATE user_settings SET storage_limit = $2 WHERE user_id = $1`
	res, err := r.db.ExecContext(ctx, query, s.UserID, s.StorageLimit)
	if err != nil {
		return dbx.Wrap("db error", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return dbx.Wrap("db error", err)
	}
	if n == 0 {
		return common.ErrSettingsMissing
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, userID string) (*models.Settings, error) {
	return r.get(ctx, `SELECT user_id, storage_limit FROM user_settings WHERE user_id = $1`, userID)
}

func (r *PostgresRepository) GetForUpdate(ctx context.Context, userID string) (*models.Settings, error) {
	return r.get(ctx, `SELECT user_id, storage_limit FROM user_settings WHERE user_id = $1 FOR UPDATE`, userID)
}

func (r *PostgresRepository) get(ctx context.Context, query, userID string) (*models.Settings, error) {
	s := &models.Settings{}
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&s.UserID, &s.StorageLimit); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrSettingsMissing
		}
		return nil, dbx.Wrap("db error", err)
	}
	return s, nil
}

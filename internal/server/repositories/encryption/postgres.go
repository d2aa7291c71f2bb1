// Package encryption stores per-file key derivation salt and cipher IV.
package encryption

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

func (r *PostgresRepository) Create(ctx context.Context, params *models.FileEncryption) error {
	query := `INSERT INTO file_encryption (file_id, salt, iv) VALUES ($1, $2, $3)`
	if _, err := r.db.ExecContext(ctx, query, params.FileID, params.Salt, params.IV); err != nil {
		return dbx.Wrap("db error", err)
	}
	return nil
}

// Get returns common.ErrEncryptionParamsMissing when the file has no params.
func (r *PostgresRepository) Get(ctx context.Context, fileID string) (*models.FileEncryption, error) {
	query := `SELECT file_id, salt, iv FROM file_encryption WHERE file_id = $1`
	p := &models.FileEncryption{}
	if err := r.db.QueryRowContext(ctx, query, fileID).Scan(&p.FileID, &p.Salt, &p.IV); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrEncryptionParamsMissing
		}
		return nil, dbx.Wrap("db error", err)
	}
	return p, nil
}

// DeleteByFileID is a no-op when no params exist.
func (r *PostgresRepository) DeleteByFileID(ctx context.Context, fileID string) error {
	query := `DELETE FROM file_encryption WHERE file_id = $1`
	if _, err := r.db.ExecContext(ctx, query, fileID); err != nil {
		return dbx.Wrap("db error", err)
	}
	return nil
}

// Package folders stores the per-user folder tree.
package folders

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/dbx"
	"github.com/dmitrijs2005/filevault/internal/server/models"
)

const subtreeCTE = `
	WITH RECURSIVE subtree AS (
		SELECT id FROM folders WHERE id = $1 AND user_id = $2
		UNION ALL
		SELECT f.id FROM folders f JOIN subtree s ON f.parent_id = s.id
	)`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts the folder and fills its timestamps.
func (r *PostgresRepository) Create(ctx context.Context, folder *models.Folder) error {
	query := `
		INSERT INTO folders (id, user_id, name, parent_id)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, folder.ID, folder.UserID, folder.Name, folder.ParentID).
		Scan(&folder.CreatedAt, &folder.UpdatedAt)
	if err != nil {
		return dbx.Wrap("db error", err)
	}
	return nil
}

// Get reports ids that are not UUIDs as common.ErrorNotFound.
func (r *PostgresRepository) Get(ctx context.Context, userID, id string) (*models.Folder, error) {
	if !dbx.ValidID(id) {
		return nil, common.ErrorNotFound
	}
	query := `SELECT id, user_id, name, parent_id, created_at, updated_at FROM folders WHERE id = $1 AND user_id = $2`
	f := &models.Folder{}
	err := r.db.QueryRowContext(ctx, query, id, userID).
		Scan(&f.ID, &f.UserID, &f.Name, &f.ParentID, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, dbx.Wrap("db error", err)
	}
	return f, nil
}

// List returns the direct children of parentID (nil lists the root level).
func (r *PostgresRepository) List(ctx context.Context, userID string, parentID *string) ([]*models.Folder, error) {
	if parentID != nil && !dbx.ValidID(*parentID) {
		return nil, common.ErrorNotFound
	}
	query := `
		SELECT id, user_id, name, parent_id, created_at, updated_at FROM folders
		WHERE user_id = $1 AND parent_id IS NOT DISTINCT FROM $2
		ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query, userID, parentID)
	if err != nil {
		return nil, dbx.Wrap("failed to select folders", err)
	}
	defer rows.Close()

	var result []*models.Folder
	for rows.Next() {
		f := &models.Folder{}
		if err := rows.Scan(&f.ID, &f.UserID, &f.Name, &f.ParentID, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Update writes name and parent and refreshes UpdatedAt.
func (r *PostgresRepository) Update(ctx context.Context, folder *models.Folder) error {
	if !dbx.ValidID(folder.ID) || (folder.ParentID != nil && !dbx.ValidID(*folder.ParentID)) {
		return common.ErrorNotFound
	}
	query := `
		UPDATE folders SET name = $3, parent_id = $4, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query, folder.ID, folder.UserID, folder.Name, folder.ParentID).
		Scan(&folder.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorNotFound
		}
		return dbx.Wrap("db error", err)
	}
	return nil
}

func (r *PostgresRepository) InSubtree(ctx context.Context, userID, rootID, candidateID string) (bool, error) {
	if !dbx.ValidID(rootID) || !dbx.ValidID(candidateID) {
		return false, nil
	}
	query := subtreeCTE + ` SELECT EXISTS (SELECT 1 FROM subtree WHERE id = $3)`
	var found bool
	if err := r.db.QueryRowContext(ctx, query, rootID, userID, candidateID).Scan(&found); err != nil {
		return false, dbx.Wrap("db error", err)
	}
	return found, nil
}

func (r *PostgresRepository) Subtree(ctx context.Context, userID, rootID string) ([]string, error) {
	if !dbx.ValidID(rootID) {
		return nil, nil
	}
	query := subtreeCTE + ` SELECT id FROM subtree`
	rows, err := r.db.QueryContext(ctx, query, rootID, userID)
	if err != nil {
		return nil, dbx.Wrap("failed to select folders", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// DeleteTree removes rootID and its descendants in one statement, so the
// parent foreign key is checked only once the whole subtree is gone.
func (r *PostgresRepository) DeleteTree(ctx context.Context, userID, rootID string) (int64, error) {
	if !dbx.ValidID(rootID) {
		return 0, common.ErrorNotFound
	}
	query := subtreeCTE + ` DELETE FROM folders WHERE id IN (SELECT id FROM subtree)`
	res, err := r.db.ExecContext(ctx, query, rootID, userID)
	if err != nil {
		return 0, dbx.Wrap("db error", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, dbx.Wrap("rows affected error", err)
	}
	if n == 0 {
		return 0, common.ErrorNotFound
	}
	return n, nil
}

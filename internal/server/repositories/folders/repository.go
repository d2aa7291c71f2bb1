package folders

import (
	"context"

	"github.com/dmitrijs2005/filevault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, folder *models.Folder) error
	Get(ctx context.Context, userID, id string) (*models.Folder, error)
	List(ctx context.Context, userID string, parentID *string) ([]*models.Folder, error)
	Update(ctx context.Context, folder *models.Folder) error
	// InSubtree reports whether candidateID is rootID or one of its descendants.
	InSubtree(ctx context.Context, userID, rootID, candidateID string) (bool, error)
	// Subtree returns rootID and all descendant ids.
	Subtree(ctx context.Context, userID, rootID string) ([]string, error)
	DeleteTree(ctx context.Context, userID, rootID string) (int64, error)
}

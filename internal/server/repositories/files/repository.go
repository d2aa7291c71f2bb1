package files

import (
	"context"
	"time"

	"github.com/dmitrijs2005/filevault/internal/server/models"
)

// Repository persists file metadata. Every lookup that takes a userID is
// scoped to that owner, so a foreign file reads as common.ErrorNotFound.
type Repository interface {
	Create(ctx context.Context, file *models.File) error
	Get(ctx context.Context, userID, id string) (*models.File, error)
	GetActive(ctx context.Context, userID, id string) (*models.File, error)
	NameTaken(ctx context.Context, userID string, folderID *string, filename, excludeID string) (bool, error)
	UsedBytes(ctx context.Context, userID string) (int64, error)

	SoftDelete(ctx context.Context, userID, id string, at time.Time) error
	Restore(ctx context.Context, userID, id string) error
	Relocate(ctx context.Context, userID, id string, folderID *string, filename string) error
	TrashFolderFiles(ctx context.Context, userID, folderID string, at time.Time) (int64, error)
	MarkInfected(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error

	ListByFolder(ctx context.Context, userID string, folderID *string) ([]*models.File, error)
	ListTrash(ctx context.Context, userID string) ([]*models.File, error)
	Search(ctx context.Context, userID string, filter models.FileFilter) ([]*models.File, error)
	Stats(ctx context.Context, userID string, top int) (*models.FileStats, error)
	ExpiredTrash(ctx context.Context, userID *string, cutoff time.Time) ([]*models.File, error)
}

package encryption

import (
	"context"

	"github.com/dmitrijs2005/filevault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, params *models.FileEncryption) error
	Get(ctx context.Context, fileID string) (*models.FileEncryption, error)
	DeleteByFileID(ctx context.Context, fileID string) error
}

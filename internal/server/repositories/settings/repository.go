package settings

import (
	"context"

	"github.com/dmitrijs2005/filevault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, s *models.Settings) error
	Get(ctx context.Context, userID string) (*models.Settings, error)
	Update(ctx context.Context, s *models.Settings) error
	// GetForUpdate locks the settings row until the surrounding
	// transaction ends.
	GetForUpdate(ctx context.Context, userID string) (*models.Settings, error)
}

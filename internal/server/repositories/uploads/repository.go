package uploads

import (
	"context"
	"time"

	"github.com/dmitrijs2005/filevault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, s *models.UploadSession) error
	Get(ctx context.Context, uploadID string) (*models.UploadSession, error)
	Delete(ctx context.Context, uploadID string) error
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*models.UploadSession, error)
}

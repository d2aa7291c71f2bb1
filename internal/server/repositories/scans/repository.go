package scans

import (
	"context"

	"github.com/dmitrijs2005/filevault/internal/server/models"
)

type Repository interface {
	// Add is idempotent per file.
	Add(ctx context.Context, scan *models.PendingScan) error
	Remove(ctx context.Context, fileID string) error
	// List returns the oldest pending scans first.
	List(ctx context.Context, limit int) ([]*models.PendingScan, error)
}

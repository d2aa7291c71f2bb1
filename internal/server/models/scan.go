package models

import "time"

// PendingScan marks a stored file whose post-upload scan has not produced a
// verdict yet. The row outlives restarts until a scan clears it.
type PendingScan struct {
	FileID     string
	UserID     string
	EnqueuedAt time.Time
}

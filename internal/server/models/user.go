package models

import "time"

type User struct {
	ID           string
	UserName     string
	PasswordHash []byte
	CreatedAt    time.Time
}

// Settings carries per-user limits. StorageLimit is in bytes.
type Settings struct {
	UserID       string
	StorageLimit int64
}

// Package models defines server-side data models persisted in the database.
package models

import "time"

// File is the metadata of one logical file. The encrypted bytes live in the
// blob store at Path.
type File struct {
	ID     string
	UserID string
	// FolderID is nil for files at the root.
	FolderID    *string
	Filename    string
	ContentType string
	// Size is the plaintext length recorded at upload time, not the
	// ciphertext length.
	Size int64
	Path string

	IsDeleted  bool
	DeletedAt  *time.Time
	IsInfected bool

	UploadedAt time.Time
}

// FileEncryption holds the per-file parameters needed to re-derive the key
// and decrypt the blob. It exists exactly when its File exists.
type FileEncryption struct {
	FileID string
	Salt   []byte
	IV     []byte
}

// FileStats summarizes a user's active files.
type FileStats struct {
	TotalFiles int64
	TotalSize  int64
	TopFiles   []*File
}

// FileFilter narrows a file search. Empty fields are ignored.
type FileFilter struct {
	Filename    string
	ContentType string
	Limit       int
	Offset      int
}

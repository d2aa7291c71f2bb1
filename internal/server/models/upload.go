package models

import "time"

// UploadSession tracks one in-flight multipart upload. ObjectPath is the
// staging object the parts are merged into.
type UploadSession struct {
	UploadID     string
	UserID       string
	ObjectPath   string
	Filename     string
	ContentType  string
	FolderID     *string
	DeclaredSize int64
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// UploadedPart identifies one part for the completion call.
type UploadedPart struct {
	PartNumber int32
	ETag       string
}

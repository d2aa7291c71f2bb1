package api

import "time"

type Empty struct{}

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	UserID string `json:"user_id"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
}

type PingRequest struct{}

type PingResponse struct {
	Status string `json:"status"`
}

// FileInfo is the client view of a file record. The blob path and the
// encryption parameters never leave the server.
type FileInfo struct {
	ID          string     `json:"id"`
	FolderID    *string    `json:"folder_id,omitempty"`
	Filename    string     `json:"filename"`
	ContentType string     `json:"content_type"`
	Size        int64      `json:"size"`
	IsDeleted   bool       `json:"is_deleted"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
	IsInfected  bool       `json:"is_infected"`
	UploadedAt  time.Time  `json:"uploaded_at"`
}

type FileRequest struct {
	FileID string `json:"file_id"`
}

type FileResponse struct {
	File *FileInfo `json:"file"`
}

type FilesResponse struct {
	Files []*FileInfo `json:"files"`
}

type UploadRequest struct {
	FolderID    *string `json:"folder_id,omitempty"`
	Filename    string  `json:"filename"`
	ContentType string  `json:"content_type"`
	Data        []byte  `json:"data"`
}

type DownloadResponse struct {
	File *FileInfo `json:"file"`
	Data []byte    `json:"data"`
}

// DownloadRangeRequest asks for Length plaintext bytes from Offset. Length
// is capped at MaxDataSize.
type DownloadRangeRequest struct {
	FileID string `json:"file_id"`
	Offset int64  `json:"offset"`
	Length int64  `json:"length"`
}

type DownloadRangeResponse struct {
	File *FileInfo `json:"file"`
	Data []byte    `json:"data"`
}

type ListFilesRequest struct {
	FolderID *string `json:"folder_id,omitempty"`
}

type SearchFilesRequest struct {
	Filename    string `json:"filename,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Limit       int    `json:"limit,omitempty"`
	Offset      int    `json:"offset,omitempty"`
}

type FileStatsResponse struct {
	TotalFiles int64       `json:"total_files"`
	TotalSize  int64       `json:"total_size"`
	TopFiles   []*FileInfo `json:"top_files"`
}

type UsageResponse struct {
	Used      int64 `json:"used"`
	Limit     int64 `json:"limit"`
	Available int64 `json:"available"`
}

type MoveFileRequest struct {
	FileID   string  `json:"file_id"`
	FolderID *string `json:"folder_id,omitempty"`
}

type RenameFileRequest struct {
	FileID   string `json:"file_id"`
	Filename string `json:"filename"`
}

type InitiateUploadRequest struct {
	FolderID    *string `json:"folder_id,omitempty"`
	Filename    string  `json:"filename"`
	ContentType string  `json:"content_type"`
	Size        int64   `json:"size"`
}

type InitiateUploadResponse struct {
	UploadID   string    `json:"upload_id"`
	ObjectPath string    `json:"object_path"`
	ExpiresAt  time.Time `json:"expires_at"`
}

type UploadChunkRequest struct {
	UploadID   string `json:"upload_id"`
	PartNumber int32  `json:"part_number"`
	Data       []byte `json:"data"`
}

type UploadChunkResponse struct {
	ETag string `json:"etag"`
}

type CompletedPart struct {
	PartNumber int32  `json:"part_number"`
	ETag       string `json:"etag"`
}

type CompleteUploadRequest struct {
	UploadID   string          `json:"upload_id"`
	ObjectPath string          `json:"object_path,omitempty"`
	Parts      []CompletedPart `json:"parts"`
}

type AbortUploadRequest struct {
	UploadID string `json:"upload_id"`
}

type CleanupTrashResponse struct {
	Status string `json:"status"`
}

type FolderInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ParentID  *string   `json:"parent_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateFolderRequest struct {
	Name     string  `json:"name"`
	ParentID *string `json:"parent_id,omitempty"`
}

type FolderResponse struct {
	Folder *FolderInfo `json:"folder"`
}

type ListFoldersRequest struct {
	ParentID *string `json:"parent_id,omitempty"`
}

type FoldersResponse struct {
	Folders []*FolderInfo `json:"folders"`
}

type RenameFolderRequest struct {
	FolderID string `json:"folder_id"`
	Name     string `json:"name"`
}

type MoveFolderRequest struct {
	FolderID string  `json:"folder_id"`
	ParentID *string `json:"parent_id,omitempty"`
}

type DeleteFolderRequest struct {
	FolderID string `json:"folder_id"`
}

type DeleteFolderResponse struct {
	TrashedFiles int64 `json:"trashed_files"`
}

type SettingsResponse struct {
	StorageLimit int64 `json:"storage_limit"`
}

type UpdateSettingsRequest struct {
	StorageLimit int64 `json:"storage_limit"`
}

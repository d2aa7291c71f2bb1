package client

import (
	"context"

	"github.com/dmitrijs2005/filevault/internal/api"
)

// Client is the FileVault API as the CLI uses it.
type Client interface {
	Close() error
	Register(ctx context.Context, username string, password []byte) (string, error)
	Login(ctx context.Context, username string, password []byte) error
	Logout()
	Ping(ctx context.Context) error

	Upload(ctx context.Context, folderID *string, filename, contentType string, data []byte) (*api.FileInfo, error)
	Download(ctx context.Context, fileID string) (*api.FileInfo, []byte, error)
	ListFiles(ctx context.Context, folderID *string) ([]*api.FileInfo, error)
	ListTrash(ctx context.Context) ([]*api.FileInfo, error)
	Search(ctx context.Context, query api.SearchFilesRequest) ([]*api.FileInfo, error)
	Usage(ctx context.Context) (*api.UsageResponse, error)
	Delete(ctx context.Context, fileID string) error
	Restore(ctx context.Context, fileID string) (*api.FileInfo, error)
	Move(ctx context.Context, fileID string, folderID *string) (*api.FileInfo, error)
	Rename(ctx context.Context, fileID, filename string) (*api.FileInfo, error)
	CleanupTrash(ctx context.Context) error
	Settings(ctx context.Context) (*api.SettingsResponse, error)
	UpdateSettings(ctx context.Context, storageLimit int64) (*api.SettingsResponse, error)

	CreateFolder(ctx context.Context, name string, parentID *string) (*api.FolderInfo, error)
	ListFolders(ctx context.Context, parentID *string) ([]*api.FolderInfo, error)
	DeleteFolder(ctx context.Context, folderID string) (int64, error)
}

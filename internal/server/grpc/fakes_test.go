package grpc

import (
	"context"
	"time"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/dmitrijs2005/filevault/internal/server/blobstore"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/dmitrijs2005/filevault/internal/server/services"
)

type fakeUsers struct {
	user     *models.User
	token    string
	err      error
	username string
	password string
	userID   string
	limit    int64
}

func (f *fakeUsers) Register(_ context.Context, username, password string) (*models.User, error) {
	f.username, f.password = username, password
	return f.user, f.err
}

func (f *fakeUsers) Login(_ context.Context, username, password string) (string, error) {
	f.username, f.password = username, password
	return f.token, f.err
}

func (f *fakeUsers) GetSettings(_ context.Context, userID string) (*models.Settings, error) {
	f.userID = userID
	if f.err != nil {
		return nil, f.err
	}
	return &models.Settings{UserID: userID, StorageLimit: f.limit}, nil
}

func (f *fakeUsers) UpdateSettings(_ context.Context, userID string, storageLimit int64) (*models.Settings, error) {
	f.userID = userID
	if f.err != nil {
		return nil, f.err
	}
	f.limit = storageLimit
	return &models.Settings{UserID: userID, StorageLimit: storageLimit}, nil
}

// fakeFiles implements the calls the tests make; the embedded interface
// panics on anything else.
type fakeFiles struct {
	FileService

	file   *models.File
	data   []byte
	err    error
	userID string
	upload services.UploadInput
	parts  []blobstore.Part
	filter models.FileFilter
	offset int64
	length int64
}

func (f *fakeFiles) Upload(_ context.Context, in services.UploadInput) (*models.File, error) {
	f.upload, f.userID = in, in.UserID
	if f.err != nil {
		return nil, f.err
	}
	return &models.File{ID: "f1", UserID: in.UserID, Filename: in.Filename, Size: int64(len(in.Data)), Path: "secret/path"}, nil
}

func (f *fakeFiles) Download(_ context.Context, userID, _ string) (*models.File, []byte, error) {
	f.userID = userID
	return f.file, f.data, f.err
}

func (f *fakeFiles) DownloadRange(_ context.Context, userID, _ string, offset, length int64) (*models.File, []byte, error) {
	f.userID, f.offset, f.length = userID, offset, length
	return f.file, f.data, f.err
}

func (f *fakeFiles) Search(_ context.Context, userID string, filter models.FileFilter) ([]*models.File, error) {
	f.userID, f.filter = userID, filter
	return []*models.File{f.file}, f.err
}

func (f *fakeFiles) Usage(_ context.Context, userID string) (services.Usage, error) {
	f.userID = userID
	return services.Usage{Used: 40, Limit: 100}, f.err
}

func (f *fakeFiles) Restore(_ context.Context, userID, _ string) (*models.File, error) {
	f.userID = userID
	return f.file, f.err
}

func (f *fakeFiles) CompleteUpload(_ context.Context, userID, _, _ string, parts []blobstore.Part) (*models.File, error) {
	f.userID, f.parts = userID, parts
	return f.file, f.err
}

type fakeFolders struct {
	FolderService

	trashed int64
	err     error
}

func (f *fakeFolders) Create(_ context.Context, userID, name string, parentID *string) (*models.Folder, error) {
	if f.err != nil {
		return nil, f.err
	}
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return &models.Folder{ID: "d1", UserID: userID, Name: name, ParentID: parentID, CreatedAt: now, UpdatedAt: now}, nil
}

func (f *fakeFolders) Delete(context.Context, string, string) (int64, error) {
	return f.trashed, f.err
}

type fakeCleaner struct {
	users   []string
	stopped bool
}

func (c *fakeCleaner) CleanupUser(userID string) bool {
	if c.stopped {
		return false
	}
	c.users = append(c.users, userID)
	return true
}

func newTestServer(secret string) *GRPCServer {
	return NewGRPCServer("127.0.0.1:0", logging.Discard(), &fakeUsers{}, &fakeFiles{}, &fakeFolders{}, &fakeCleaner{}, secret)
}

func withUser(userID string) context.Context {
	return context.WithValue(context.Background(), userIDKey, userID)
}

var errNotFound = common.ErrorNotFound

package cli

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/dmitrijs2005/filevault/internal/api"
	"github.com/dmitrijs2005/filevault/internal/client/client"
	"github.com/dmitrijs2005/filevault/internal/client/config"
)

// fakeClient records calls; unlisted methods panic through the embedded
// interface.
type fakeClient struct {
	client.Client

	calls    []string
	loggedIn bool
	password string
	folderID *string
	uploaded []byte
	ctype    string
	files    []*api.FileInfo
	folders  map[string][]*api.FolderInfo
	download []byte
	limit    int64
	err      error
}

func (f *fakeClient) Close() error { return nil }

func (f *fakeClient) Ping(context.Context) error { return nil }

func (f *fakeClient) Register(_ context.Context, username string, password []byte) (string, error) {
	f.calls = append(f.calls, "register "+username)
	f.password = string(password)
	return "u1", f.err
}

func (f *fakeClient) Login(_ context.Context, username string, password []byte) error {
	f.calls = append(f.calls, "login "+username)
	f.password = string(password)
	if f.err == nil {
		f.loggedIn = true
	}
	return f.err
}

func (f *fakeClient) Logout() {
	f.calls = append(f.calls, "logout")
	f.loggedIn = false
}

func (f *fakeClient) Upload(_ context.Context, folderID *string, filename, contentType string, data []byte) (*api.FileInfo, error) {
	f.calls = append(f.calls, "upload "+filename)
	f.folderID, f.uploaded, f.ctype = folderID, data, contentType
	return &api.FileInfo{ID: "f1", Filename: filename, Size: int64(len(data))}, f.err
}

func (f *fakeClient) Download(_ context.Context, fileID string) (*api.FileInfo, []byte, error) {
	f.calls = append(f.calls, "download "+fileID)
	return &api.FileInfo{ID: fileID, Filename: "report.txt"}, f.download, f.err
}

func (f *fakeClient) ListFiles(_ context.Context, folderID *string) ([]*api.FileInfo, error) {
	f.folderID = folderID
	return f.files, f.err
}

func (f *fakeClient) ListFolders(_ context.Context, parentID *string) ([]*api.FolderInfo, error) {
	key := ""
	if parentID != nil {
		key = *parentID
	}
	return f.folders[key], f.err
}

func (f *fakeClient) Move(_ context.Context, fileID string, folderID *string) (*api.FileInfo, error) {
	f.calls = append(f.calls, "move "+fileID)
	f.folderID = folderID
	return &api.FileInfo{ID: fileID, Filename: "a.txt"}, f.err
}

func (f *fakeClient) DeleteFolder(_ context.Context, folderID string) (int64, error) {
	f.calls = append(f.calls, "rmdir "+folderID)
	return 2, f.err
}

func (f *fakeClient) CleanupTrash(context.Context) error {
	f.calls = append(f.calls, "cleanup")
	return f.err
}

func (f *fakeClient) Usage(context.Context) (*api.UsageResponse, error) {
	return &api.UsageResponse{Used: 10, Limit: 100, Available: 90}, f.err
}

func (f *fakeClient) Settings(context.Context) (*api.SettingsResponse, error) {
	return &api.SettingsResponse{StorageLimit: f.limit}, f.err
}

func (f *fakeClient) UpdateSettings(_ context.Context, storageLimit int64) (*api.SettingsResponse, error) {
	f.calls = append(f.calls, fmt.Sprintf("settings %d", storageLimit))
	if f.err != nil {
		return nil, f.err
	}
	f.limit = storageLimit
	return &api.SettingsResponse{StorageLimit: storageLimit}, nil
}

func newTestApp(t *testing.T, fc *fakeClient, input string) (*App, *bytes.Buffer) {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.DownloadDir = t.TempDir()

	out := &bytes.Buffer{}
	return newApp(cfg, fc, strings.NewReader(input), out), out
}

func stubPassword(t *testing.T, pw string) {
	t.Helper()
	old := readPassword
	readPassword = func(int) ([]byte, error) { return []byte(pw), nil }
	t.Cleanup(func() { readPassword = old })
}

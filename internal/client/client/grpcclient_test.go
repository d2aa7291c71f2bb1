package client

import (
	"bytes"
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/filevault/internal/api"
	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/dmitrijs2005/filevault/internal/server/auth"
	"github.com/dmitrijs2005/filevault/internal/server/blobstore"
	gs "github.com/dmitrijs2005/filevault/internal/server/grpc"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/dmitrijs2005/filevault/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"
)

const testSecret = "test-secret"

type stubUsers struct{}

func (stubUsers) Register(_ context.Context, username, _ string) (*models.User, error) {
	if username == "taken" {
		return nil, common.ErrUserExists
	}
	return &models.User{ID: "u-" + username, UserName: username}, nil
}

func (stubUsers) Login(_ context.Context, username, password string) (string, error) {
	if password != "pw" {
		return "", common.ErrorUnauthorized
	}
	return auth.GenerateToken("u-"+username, []byte(testSecret), time.Minute)
}

func (stubUsers) GetSettings(_ context.Context, userID string) (*models.Settings, error) {
	return &models.Settings{UserID: userID, StorageLimit: 100}, nil
}

func (stubUsers) UpdateSettings(_ context.Context, userID string, storageLimit int64) (*models.Settings, error) {
	if storageLimit < 0 {
		return nil, common.ErrInvalidArgument
	}
	return &models.Settings{UserID: userID, StorageLimit: storageLimit}, nil
}

// stubFiles records what reaches the service; unlisted methods panic.
type stubFiles struct {
	gs.FileService

	mu        sync.Mutex
	userID    string
	single    []byte
	chunks    map[int32][]byte
	completed []blobstore.Part
	aborted   bool
	failPart  int32
	uploadErr error
	content   []byte
	offsets   []int64
	whole     int
}

func (f *stubFiles) body() []byte {
	if f.content == nil {
		return []byte("hello")
	}
	return f.content
}

func (f *stubFiles) Upload(_ context.Context, in services.UploadInput) (*models.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	f.userID, f.single = in.UserID, in.Data
	return &models.File{ID: "f1", Filename: in.Filename, Size: int64(len(in.Data))}, nil
}

func (f *stubFiles) ListFiles(_ context.Context, userID string, _ *string) ([]*models.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userID = userID
	return []*models.File{{ID: "f1", Filename: "a.txt"}}, nil
}

func (f *stubFiles) GetFile(_ context.Context, _, fileID string) (*models.File, error) {
	if fileID != "f1" {
		return nil, common.ErrorNotFound
	}
	return &models.File{ID: "f1", Filename: "a.txt", Size: int64(len(f.body()))}, nil
}

func (f *stubFiles) Download(_ context.Context, _, fileID string) (*models.File, []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.whole++
	return &models.File{ID: fileID, Filename: "a.txt", Size: int64(len(f.body()))}, f.body(), nil
}

func (f *stubFiles) DownloadRange(_ context.Context, _, fileID string, offset, length int64) (*models.File, []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offsets = append(f.offsets, offset)
	b := f.body()
	size := int64(len(b))
	file := &models.File{ID: fileID, Filename: "a.txt", Size: size}
	if offset >= size {
		return file, nil, nil
	}
	return file, b[offset:min(offset+length, size)], nil
}

func (f *stubFiles) Usage(context.Context, string) (services.Usage, error) {
	return services.Usage{Used: 30, Limit: 100}, nil
}

func (f *stubFiles) InitiateUpload(_ context.Context, in services.InitiateInput) (*models.UploadSession, error) {
	return &models.UploadSession{UploadID: "up1", ObjectPath: "staging/" + in.UserID + "/up1", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (f *stubFiles) UploadChunk(_ context.Context, _, _ string, partNumber int32, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if partNumber == f.failPart {
		return "", blobstore.ErrUnavailable
	}
	if f.chunks == nil {
		f.chunks = map[int32][]byte{}
	}
	f.chunks[partNumber] = bytes.Clone(data)
	return "etag-" + string(rune('0'+partNumber)), nil
}

func (f *stubFiles) CompleteUpload(_ context.Context, _, _, _ string, parts []blobstore.Part) (*models.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = parts
	var size int64
	for _, p := range parts {
		size += int64(len(f.chunks[p.Number]))
	}
	return &models.File{ID: "big", Size: size}, nil
}

func (f *stubFiles) AbortUpload(context.Context, string, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.aborted = true
	return nil
}

type stubFolders struct{ gs.FolderService }

func newTestClient(t *testing.T, files *stubFiles) *GRPCClient {
	t.Helper()
	srv := gs.NewGRPCServer("bufnet", logging.Discard(), stubUsers{}, files, stubFolders{}, nil, testSecret)

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Serve(ctx, lis)
	}()

	c, err := NewFileVaultClient("passthrough:///bufnet", 5*time.Second, minChunkSize,
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = c.Close()
		cancel()
		<-done
	})
	return c
}

func TestClient_LoginAttachesToken(t *testing.T) {
	ctx := context.Background()
	files := &stubFiles{}
	c := newTestClient(t, files)

	require.NoError(t, c.Ping(ctx))

	_, err := c.ListFiles(ctx, nil)
	require.ErrorIs(t, err, ErrUnauthorized)

	require.ErrorIs(t, c.Login(ctx, "alice", []byte("wrong")), ErrUnauthorized)
	require.NoError(t, c.Login(ctx, "alice", []byte("pw")))

	list, err := c.ListFiles(ctx, nil)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "u-alice", files.userID)

	c.Logout()
	_, err = c.ListFiles(ctx, nil)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestClient_Register(t *testing.T) {
	c := newTestClient(t, &stubFiles{})

	id, err := c.Register(context.Background(), "bob", []byte("pw"))
	require.NoError(t, err)
	assert.Equal(t, "u-bob", id)

	_, err = c.Register(context.Background(), "taken", []byte("pw"))
	require.ErrorIs(t, err, ErrAlreadyExists)
}

func TestClient_SingleShotUpload(t *testing.T) {
	ctx := context.Background()
	files := &stubFiles{}
	c := newTestClient(t, files)
	require.NoError(t, c.Login(ctx, "alice", []byte("pw")))

	f, err := c.Upload(ctx, nil, "a.txt", "text/plain", []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, int64(5), f.Size)
	assert.Equal(t, []byte("hello"), files.single)
	assert.Empty(t, files.chunks)

	files.uploadErr = common.ErrQuotaExceeded
	_, err = c.Upload(ctx, nil, "b.txt", "text/plain", []byte("x"))
	require.ErrorIs(t, err, ErrQuotaExceeded)
}

func TestClient_ChunkedUpload(t *testing.T) {
	ctx := context.Background()
	files := &stubFiles{}
	c := newTestClient(t, files)
	require.NoError(t, c.Login(ctx, "alice", []byte("pw")))

	data := bytes.Repeat([]byte{'z'}, minChunkSize+10)
	f, err := c.Upload(ctx, nil, "big.bin", "application/octet-stream", data)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), f.Size)

	require.Len(t, files.completed, 2)
	assert.Equal(t, blobstore.Part{Number: 1, ETag: "etag-1"}, files.completed[0])
	assert.Equal(t, blobstore.Part{Number: 2, ETag: "etag-2"}, files.completed[1])
	assert.Len(t, files.chunks[1], minChunkSize)
	assert.Len(t, files.chunks[2], 10)
	assert.Nil(t, files.single)
	assert.False(t, files.aborted)
}

func TestClient_ChunkedUploadAbortsOnFailure(t *testing.T) {
	ctx := context.Background()
	files := &stubFiles{failPart: 2}
	c := newTestClient(t, files)
	require.NoError(t, c.Login(ctx, "alice", []byte("pw")))

	_, err := c.Upload(ctx, nil, "big.bin", "", make([]byte, minChunkSize+1))
	require.ErrorIs(t, err, ErrUnavailable)
	assert.True(t, files.aborted)
	assert.Nil(t, files.completed)
}

func TestClient_DownloadAndUsage(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t, &stubFiles{})
	require.NoError(t, c.Login(ctx, "alice", []byte("pw")))

	f, data, err := c.Download(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, "a.txt", f.Filename)
	assert.Equal(t, "hello", string(data))

	_, _, err = c.Download(ctx, "other")
	require.ErrorIs(t, err, ErrNotFound)

	u, err := c.Usage(ctx)
	require.NoError(t, err)
	assert.Equal(t, &api.UsageResponse{Used: 30, Limit: 100, Available: 70}, u)
}

func TestClient_LargeDownloadUsesRanges(t *testing.T) {
	ctx := context.Background()
	files := &stubFiles{content: []byte("0123456789abcdefghij")}
	c := newTestClient(t, files)
	require.NoError(t, c.Login(ctx, "alice", []byte("pw")))
	c.rangeSize = 8

	f, data, err := c.Download(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, "0123456789abcdefghij", string(data))
	assert.Equal(t, int64(20), f.Size)
	assert.Equal(t, []int64{0, 8, 16}, files.offsets)
	assert.Zero(t, files.whole)

	c.rangeSize = 20
	_, data, err = c.Download(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, "0123456789abcdefghij", string(data))
	assert.Equal(t, 1, files.whole)
}

// 50 MiB base64-encodes to more than api.MaxMessageSize, so only ranged
// reads get it through.
func TestClient_DownloadLargerThanMessageLimit(t *testing.T) {
	if testing.Short() {
		t.Skip("moves 50 MiB through the transport")
	}
	ctx := context.Background()
	content := bytes.Repeat([]byte("0123456789abcdef"), (50<<20)/16)
	files := &stubFiles{content: content}
	c := newTestClient(t, files)
	require.NoError(t, c.Login(ctx, "alice", []byte("pw")))

	_, data, err := c.Download(ctx, "f1")
	require.NoError(t, err)
	assert.True(t, bytes.Equal(content, data))
	assert.Equal(t, []int64{0, api.MaxDataSize}, files.offsets)
	assert.Zero(t, files.whole)
}

func TestClient_ChunkSizeBoundedByMessageLimit(t *testing.T) {
	c, err := NewFileVaultClient("passthrough:///x", time.Second, 1<<40)
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, int64(api.MaxDataSize), c.chunkSize)
	assert.Equal(t, int64(api.MaxDataSize), c.rangeSize)

	small, err := NewFileVaultClient("passthrough:///x", time.Second, 1)
	require.NoError(t, err)
	defer small.Close()
	assert.Equal(t, int64(minChunkSize), small.chunkSize)
}

func TestClient_Settings(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t, &stubFiles{})
	require.NoError(t, c.Login(ctx, "alice", []byte("pw")))

	got, err := c.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.StorageLimit)

	upd, err := c.UpdateSettings(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), upd.StorageLimit)

	_, err = c.UpdateSettings(ctx, -1)
	require.ErrorIs(t, err, ErrRejected)
}

func TestMapError_PassesThroughPlainErrors(t *testing.T) {
	c := &GRPCClient{}
	plain := errors.New("boom")
	assert.Same(t, plain, c.mapError(plain))
	assert.NoError(t, c.mapError(nil))
}

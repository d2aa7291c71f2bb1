package services

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/server/blobstore"
	"github.com/dmitrijs2005/filevault/internal/server/scanner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initiate(t *testing.T, e *testEnv, userID, name string, size int64) (string, string) {
	t.Helper()
	s, err := e.files.InitiateUpload(context.Background(), InitiateInput{
		UserID:      userID,
		Filename:    name,
		ContentType: "application/octet-stream",
		Size:        size,
	})
	require.NoError(t, err)
	require.NotEmpty(t, s.UploadID)
	require.False(t, s.ExpiresAt.IsZero())
	return s.UploadID, s.ObjectPath
}

func TestChunkedUpload_TwoParts(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.db.addUser("u1", 10<<20)

	part1 := bytes.Repeat([]byte{'A'}, 5<<20)
	part2 := bytes.Repeat([]byte{'B'}, 1<<10)

	uploadID, objectPath := initiate(t, e, "u1", "big.bin", int64(len(part1)+len(part2)))

	etag1, err := e.files.UploadChunk(ctx, "u1", uploadID, 1, part1)
	require.NoError(t, err)
	etag2, err := e.files.UploadChunk(ctx, "u1", uploadID, 2, part2)
	require.NoError(t, err)

	f, err := e.files.CompleteUpload(ctx, "u1", uploadID, objectPath, []blobstore.Part{
		{Number: 1, ETag: etag1},
		{Number: 2, ETag: etag2},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5<<20+1<<10), f.Size)

	_, body, err := e.files.Download(ctx, "u1", f.ID)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(append(bytes.Clone(part1), part2...), body))

	// only the sealed blob remains, and it is not plaintext
	assert.Equal(t, []string{f.Path}, e.store.Keys())
	stored, _ := e.store.Get(ctx, f.Path)
	assert.False(t, bytes.Equal(stored[:16], part1[:16]))

	_, err = e.files.Uploads().Resolve(ctx, "u1", uploadID)
	require.ErrorIs(t, err, common.ErrSessionNotFound)

	require.Len(t, e.queue.jobs, 1)
	assert.Equal(t, ScanJob{UserID: "u1", FileID: f.ID}, e.queue.jobs[0])
	assert.True(t, e.db.pendingScan(f.ID))
	e.assertQuotaInvariant(t, "u1")
}

func TestChunkedUpload_PendingScanKeptUntilVerdict(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.db.addUser("u1", 1<<20)

	uploadID, objectPath := initiate(t, e, "u1", "late.bin", 3)
	etag, err := e.files.UploadChunk(ctx, "u1", uploadID, 1, []byte("abc"))
	require.NoError(t, err)
	f, err := e.files.CompleteUpload(ctx, "u1", uploadID, objectPath, []blobstore.Part{{Number: 1, ETag: etag}})
	require.NoError(t, err)

	jobs, err := e.files.PendingScans(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []ScanJob{{UserID: "u1", FileID: f.ID}}, jobs)

	e.oracle.set(scanner.Unavailable, "", errors.New("clamd down"))
	_, err = e.files.ScanStoredFile(ctx, "u1", f.ID)
	require.ErrorIs(t, err, common.ErrScanUnavailable)
	assert.True(t, e.db.pendingScan(f.ID), "an outage must not clear the record")

	e.oracle.set(scanner.Clean, "", nil)
	_, err = e.files.ScanStoredFile(ctx, "u1", f.ID)
	require.NoError(t, err)
	assert.False(t, e.db.pendingScan(f.ID))

	jobs, err = e.files.PendingScans(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestUpload_InlineScanLeavesNothingPending(t *testing.T) {
	e := newTestEnv(t)
	e.db.addUser("u1", 1000)
	f := e.mustUpload(t, "u1", nil, "a.txt", []byte("hi"))
	assert.False(t, e.db.pendingScan(f.ID))
}

func TestPurge_DropsPendingScan(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.db.addUser("u1", 1<<20)

	uploadID, objectPath := initiate(t, e, "u1", "x.bin", 1)
	etag, err := e.files.UploadChunk(ctx, "u1", uploadID, 1, []byte("x"))
	require.NoError(t, err)
	f, err := e.files.CompleteUpload(ctx, "u1", uploadID, objectPath, []blobstore.Part{{Number: 1, ETag: etag}})
	require.NoError(t, err)

	require.NoError(t, e.files.Delete(ctx, "u1", f.ID))
	trashed, _ := e.db.file(f.ID)
	_, err = e.files.Purge(ctx, trashed)
	require.NoError(t, err)
	assert.False(t, e.db.pendingScan(f.ID))
}

func TestChunkedUpload_SessionRules(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.db.addUser("u1", 1<<20)
	e.db.addUser("u2", 1<<20)

	uploadID, _ := initiate(t, e, "u1", "a.bin", 10)

	_, err := e.files.UploadChunk(ctx, "u2", uploadID, 1, []byte("x"))
	require.ErrorIs(t, err, common.ErrSessionNotFound, "foreign session")

	_, err = e.files.UploadChunk(ctx, "u1", "unknown", 1, []byte("x"))
	require.ErrorIs(t, err, common.ErrSessionNotFound)

	_, err = e.files.UploadChunk(ctx, "u1", uploadID, 0, []byte("x"))
	require.ErrorIs(t, err, common.ErrInvalidArgument)

	_, err = e.files.CompleteUpload(ctx, "u1", uploadID, "staging/other", []blobstore.Part{{Number: 1, ETag: "x"}})
	require.ErrorIs(t, err, common.ErrInvalidArgument)

	require.NoError(t, e.files.AbortUpload(ctx, "u1", uploadID))
	assert.Equal(t, 0, e.store.OpenUploads())

	_, err = e.files.UploadChunk(ctx, "u1", uploadID, 1, []byte("x"))
	require.ErrorIs(t, err, common.ErrSessionNotFound, "closed session")
	require.ErrorIs(t, e.files.AbortUpload(ctx, "u1", uploadID), common.ErrSessionNotFound)
}

func TestChunkedUpload_Expired(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.db.addUser("u1", 1<<20)

	uploadID, _ := initiate(t, e, "u1", "a.bin", 10)
	e.clock.Advance(DefaultUploadTTL)

	_, err := e.files.UploadChunk(ctx, "u1", uploadID, 1, []byte("x"))
	require.ErrorIs(t, err, common.ErrSessionNotFound)

	expired, err := e.files.Uploads().Expired(ctx, 10)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	require.NoError(t, e.files.Uploads().Abort(ctx, expired[0]))
	assert.Equal(t, 0, e.store.OpenUploads())
}

func TestChunkedUpload_AdmissionPrechecks(t *testing.T) {
	e := newTestEnv(t)
	e.db.addUser("u1", 100)
	e.mustUpload(t, "u1", nil, "a.txt", []byte("x"))

	_, err := e.files.InitiateUpload(context.Background(), InitiateInput{UserID: "u1", Filename: "big", Size: 100})
	require.ErrorIs(t, err, common.ErrQuotaExceeded)

	_, err = e.files.InitiateUpload(context.Background(), InitiateInput{UserID: "u1", Filename: "a.txt", Size: 1})
	require.ErrorIs(t, err, common.ErrDuplicateName)

	_, err = e.files.InitiateUpload(context.Background(), InitiateInput{UserID: "nobody", Filename: "x", Size: 1})
	require.ErrorIs(t, err, common.ErrSettingsMissing)

	assert.Equal(t, 0, e.store.OpenUploads())
}

func TestChunkedUpload_QuotaCheckedOnMergedSize(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.db.addUser("u1", 100)

	// declared small, actually large
	uploadID, objectPath := initiate(t, e, "u1", "liar.bin", 1)
	etag, err := e.files.UploadChunk(ctx, "u1", uploadID, 1, make([]byte, 101))
	require.NoError(t, err)

	_, err = e.files.CompleteUpload(ctx, "u1", uploadID, objectPath, []blobstore.Part{{Number: 1, ETag: etag}})
	require.ErrorIs(t, err, common.ErrQuotaExceeded)

	assert.Equal(t, 0, e.store.Len(), "staging object removed")
	assert.Equal(t, 0, e.db.fileCount())
	_, err = e.files.Uploads().Resolve(ctx, "u1", uploadID)
	require.ErrorIs(t, err, common.ErrSessionNotFound)
}

func TestChunkedUpload_InvalidPartsKeepSession(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.db.addUser("u1", 10<<20)

	uploadID, objectPath := initiate(t, e, "u1", "a.bin", 0)
	etag1, err := e.files.UploadChunk(ctx, "u1", uploadID, 1, []byte("too small for a non-final part"))
	require.NoError(t, err)
	etag2, err := e.files.UploadChunk(ctx, "u1", uploadID, 2, []byte("tail"))
	require.NoError(t, err)

	_, err = e.files.CompleteUpload(ctx, "u1", uploadID, objectPath, []blobstore.Part{{Number: 2, ETag: etag2}, {Number: 1, ETag: etag1}})
	require.ErrorIs(t, err, common.ErrInvalidArgument, "descending order")

	_, err = e.files.CompleteUpload(ctx, "u1", uploadID, objectPath, []blobstore.Part{{Number: 1, ETag: etag1}, {Number: 2, ETag: etag2}})
	require.ErrorIs(t, err, blobstore.ErrInvalidPart)

	_, err = e.files.Uploads().Resolve(ctx, "u1", uploadID)
	require.NoError(t, err, "a rejected completion can be retried")

	// a single part may be any size
	f, err := e.files.CompleteUpload(ctx, "u1", uploadID, objectPath, []blobstore.Part{{Number: 2, ETag: etag2}})
	require.NoError(t, err)
	_, body, err := e.files.Download(ctx, "u1", f.ID)
	require.NoError(t, err)
	assert.Equal(t, "tail", string(body))
}

func TestChunkedUpload_FolderDeletedMidway(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.db.addUser("u1", 1<<20)
	folder, err := e.fold.Create(ctx, "u1", "tmp", nil)
	require.NoError(t, err)

	s, err := e.files.InitiateUpload(ctx, InitiateInput{UserID: "u1", FolderID: &folder.ID, Filename: "a.bin", Size: 3})
	require.NoError(t, err)
	etag, err := e.files.UploadChunk(ctx, "u1", s.UploadID, 1, []byte("abc"))
	require.NoError(t, err)

	_, err = e.fold.Delete(ctx, "u1", folder.ID)
	require.NoError(t, err)

	f, err := e.files.CompleteUpload(ctx, "u1", s.UploadID, "", []blobstore.Part{{Number: 1, ETag: etag}})
	require.NoError(t, err)
	assert.Nil(t, f.FolderID)
}

func TestUploadTracker_CloseIsIdempotent(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	require.NoError(t, e.files.Uploads().Close(ctx, "never-opened"))
	require.NoError(t, e.files.Uploads().Close(ctx, "never-opened"))
}

package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/dbx"
	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/dmitrijs2005/filevault/internal/server/blobstore"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/encryption"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/files"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/folders"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/scans"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/settings"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/uploads"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/users"
	"github.com/dmitrijs2005/filevault/internal/server/scanner"
)

// --- in-memory metadata store ---

// memDB mimics the Postgres schema closely enough for service tests: owner
// scoping, the partial unique index on active names and cascading params.
type memDB struct {
	mu       sync.Mutex
	users    map[string]*models.User
	settings map[string]*models.Settings
	files    map[string]*models.File
	params   map[string]*models.FileEncryption
	folders  map[string]*models.Folder
	sessions map[string]*models.UploadSession
	scans    map[string]*models.PendingScan

	clock func() time.Time

	failFileCreate error
}

func newMemDB(clock func() time.Time) *memDB {
	return &memDB{
		users:    map[string]*models.User{},
		settings: map[string]*models.Settings{},
		files:    map[string]*models.File{},
		params:   map[string]*models.FileEncryption{},
		folders:  map[string]*models.Folder{},
		sessions: map[string]*models.UploadSession{},
		scans:    map[string]*models.PendingScan{},
		clock:    clock,
	}
}

func cloneMap[V any](m map[string]*V) map[string]*V {
	out := make(map[string]*V, len(m))
	for k, v := range m {
		c := *v
		out[k] = &c
	}
	return out
}

type memSnapshot struct {
	users    map[string]*models.User
	settings map[string]*models.Settings
	files    map[string]*models.File
	params   map[string]*models.FileEncryption
	folders  map[string]*models.Folder
	sessions map[string]*models.UploadSession
	scans    map[string]*models.PendingScan
}

// tx runs fn and rolls every map back when it fails.
func (d *memDB) tx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	d.mu.Lock()
	snap := memSnapshot{
		users: cloneMap(d.users), settings: cloneMap(d.settings), files: cloneMap(d.files),
		params: cloneMap(d.params), folders: cloneMap(d.folders), sessions: cloneMap(d.sessions),
		scans: cloneMap(d.scans),
	}
	d.mu.Unlock()

	if err := fn(ctx, nil); err != nil {
		d.mu.Lock()
		d.users, d.settings, d.files = snap.users, snap.settings, snap.files
		d.params, d.folders, d.sessions = snap.params, snap.folders, snap.sessions
		d.scans = snap.scans
		d.mu.Unlock()
		return err
	}
	return nil
}

func sameFolder(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// activeConflict reports whether another active file holds the name. Callers hold mu.
func (d *memDB) activeConflict(userID string, folderID *string, filename, excludeID string) bool {
	for _, f := range d.files {
		if f.ID != excludeID && f.UserID == userID && !f.IsDeleted &&
			sameFolder(f.FolderID, folderID) && f.Filename == filename {
			return true
		}
	}
	return false
}

func (d *memDB) activeSize(userID string) int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	var sum int64
	for _, f := range d.files {
		if f.UserID == userID && !f.IsDeleted {
			sum += f.Size
		}
	}
	return sum
}

func (d *memDB) file(id string) (*models.File, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	f, ok := d.files[id]
	if !ok {
		return nil, false
	}
	c := *f
	return &c, true
}

func (d *memDB) fileCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.files)
}

func (d *memDB) addUser(id string, limit int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[id] = &models.User{ID: id, UserName: id}
	d.settings[id] = &models.Settings{UserID: id, StorageLimit: limit}
}

// --- repositories ---

type memFiles struct{ d *memDB }

func (r memFiles) Create(_ context.Context, f *models.File) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if r.d.failFileCreate != nil {
		return r.d.failFileCreate
	}
	if r.d.activeConflict(f.UserID, f.FolderID, f.Filename, "") {
		return common.ErrDuplicateName
	}
	for _, o := range r.d.files {
		if o.Path == f.Path {
			return errors.New("duplicate path")
		}
	}
	f.UploadedAt = r.d.clock()
	c := *f
	r.d.files[f.ID] = &c
	return nil
}

func (r memFiles) get(userID, id string, activeOnly bool) (*models.File, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	f, ok := r.d.files[id]
	if !ok || f.UserID != userID || (activeOnly && f.IsDeleted) {
		return nil, common.ErrorNotFound
	}
	c := *f
	return &c, nil
}

func (r memFiles) Get(_ context.Context, userID, id string) (*models.File, error) {
	return r.get(userID, id, false)
}

func (r memFiles) GetActive(_ context.Context, userID, id string) (*models.File, error) {
	return r.get(userID, id, true)
}

func (r memFiles) NameTaken(_ context.Context, userID string, folderID *string, filename, excludeID string) (bool, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	return r.d.activeConflict(userID, folderID, filename, excludeID), nil
}

func (r memFiles) UsedBytes(_ context.Context, userID string) (int64, error) {
	return r.d.activeSize(userID), nil
}

func (r memFiles) SoftDelete(_ context.Context, userID, id string, at time.Time) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	f, ok := r.d.files[id]
	if !ok || f.UserID != userID || f.IsDeleted {
		return common.ErrorNotFound
	}
	f.IsDeleted = true
	f.DeletedAt = &at
	return nil
}

func (r memFiles) Restore(_ context.Context, userID, id string) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	f, ok := r.d.files[id]
	if !ok || f.UserID != userID || !f.IsDeleted {
		return common.ErrorNotFound
	}
	if r.d.activeConflict(userID, f.FolderID, f.Filename, f.ID) {
		return common.ErrDuplicateName
	}
	f.IsDeleted = false
	f.DeletedAt = nil
	return nil
}

func (r memFiles) Relocate(_ context.Context, userID, id string, folderID *string, filename string) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	f, ok := r.d.files[id]
	if !ok || f.UserID != userID || f.IsDeleted {
		return common.ErrorNotFound
	}
	if r.d.activeConflict(userID, folderID, filename, f.ID) {
		return common.ErrDuplicateName
	}
	f.FolderID = folderID
	f.Filename = filename
	return nil
}

func (r memFiles) TrashFolderFiles(_ context.Context, userID, folderID string, at time.Time) (int64, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	var n int64
	for _, f := range r.d.files {
		if f.UserID == userID && f.FolderID != nil && *f.FolderID == folderID {
			f.FolderID = nil
			if !f.IsDeleted {
				f.IsDeleted = true
				t := at
				f.DeletedAt = &t
			}
			n++
		}
	}
	return n, nil
}

func (r memFiles) MarkInfected(_ context.Context, id string) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	f, ok := r.d.files[id]
	if !ok {
		return common.ErrorNotFound
	}
	f.IsInfected = true
	return nil
}

func (r memFiles) Delete(_ context.Context, id string) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if f, ok := r.d.files[id]; !ok || !f.IsDeleted {
		return common.ErrorNotFound
	}
	delete(r.d.files, id)
	delete(r.d.params, id)
	delete(r.d.scans, id)
	return nil
}

func (r memFiles) filter(keep func(*models.File) bool) []*models.File {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	var out []*models.File
	for _, f := range r.d.files {
		if keep(f) {
			c := *f
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Filename < out[j].Filename })
	return out
}

func (r memFiles) ListByFolder(_ context.Context, userID string, folderID *string) ([]*models.File, error) {
	return r.filter(func(f *models.File) bool {
		return f.UserID == userID && !f.IsDeleted && sameFolder(f.FolderID, folderID)
	}), nil
}

func (r memFiles) ListTrash(_ context.Context, userID string) ([]*models.File, error) {
	return r.filter(func(f *models.File) bool { return f.UserID == userID && f.IsDeleted }), nil
}

func (r memFiles) Search(_ context.Context, userID string, filter models.FileFilter) ([]*models.File, error) {
	out := r.filter(func(f *models.File) bool {
		return f.UserID == userID && !f.IsDeleted &&
			strings.Contains(strings.ToLower(f.Filename), strings.ToLower(filter.Filename)) &&
			(filter.ContentType == "" || f.ContentType == filter.ContentType)
	})
	if filter.Offset >= len(out) {
		return nil, nil
	}
	out = out[filter.Offset:]
	if len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r memFiles) Stats(_ context.Context, userID string, top int) (*models.FileStats, error) {
	active := r.filter(func(f *models.File) bool { return f.UserID == userID && !f.IsDeleted })
	stats := &models.FileStats{TotalFiles: int64(len(active))}
	for _, f := range active {
		stats.TotalSize += f.Size
	}
	sort.SliceStable(active, func(i, j int) bool { return active[i].Size > active[j].Size })
	if len(active) > top {
		active = active[:top]
	}
	stats.TopFiles = active
	return stats, nil
}

func (r memFiles) ExpiredTrash(_ context.Context, userID *string, cutoff time.Time) ([]*models.File, error) {
	return r.filter(func(f *models.File) bool {
		return f.IsDeleted && !f.DeletedAt.After(cutoff) && (userID == nil || f.UserID == *userID)
	}), nil
}

type memParams struct{ d *memDB }

func (r memParams) Create(_ context.Context, p *models.FileEncryption) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if _, ok := r.d.files[p.FileID]; !ok {
		return errors.New("foreign key violation")
	}
	c := *p
	r.d.params[p.FileID] = &c
	return nil
}

func (r memParams) Get(_ context.Context, fileID string) (*models.FileEncryption, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	p, ok := r.d.params[fileID]
	if !ok {
		return nil, common.ErrEncryptionParamsMissing
	}
	c := *p
	return &c, nil
}

func (r memParams) DeleteByFileID(_ context.Context, fileID string) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	delete(r.d.params, fileID)
	return nil
}

type memSettings struct{ d *memDB }

func (r memSettings) Create(_ context.Context, s *models.Settings) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	c := *s
	r.d.settings[s.UserID] = &c
	return nil
}

func (r memSettings) Get(_ context.Context, userID string) (*models.Settings, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	s, ok := r.d.settings[userID]
	if !ok {
		return nil, common.ErrSettingsMissing
	}
	c := *s
	return &c, nil
}

func (r memSettings) Update(_ context.Context, s *models.Settings) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if _, ok := r.d.settings[s.UserID]; !ok {
		return common.ErrSettingsMissing
	}
	c := *s
	r.d.settings[s.UserID] = &c
	return nil
}

func (r memSettings) GetForUpdate(ctx context.Context, userID string) (*models.Settings, error) {
	return r.Get(ctx, userID)
}

type memFolders struct{ d *memDB }

func (r memFolders) Create(_ context.Context, f *models.Folder) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	f.CreatedAt = r.d.clock()
	f.UpdatedAt = f.CreatedAt
	c := *f
	r.d.folders[f.ID] = &c
	return nil
}

func (r memFolders) Get(_ context.Context, userID, id string) (*models.Folder, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	f, ok := r.d.folders[id]
	if !ok || f.UserID != userID {
		return nil, common.ErrorNotFound
	}
	c := *f
	return &c, nil
}

func (r memFolders) List(_ context.Context, userID string, parentID *string) ([]*models.Folder, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	var out []*models.Folder
	for _, f := range r.d.folders {
		if f.UserID == userID && sameFolder(f.ParentID, parentID) {
			c := *f
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r memFolders) Update(_ context.Context, f *models.Folder) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	cur, ok := r.d.folders[f.ID]
	if !ok || cur.UserID != f.UserID {
		return common.ErrorNotFound
	}
	f.UpdatedAt = r.d.clock()
	c := *f
	r.d.folders[f.ID] = &c
	return nil
}

// subtree walks parent links. Callers hold mu.
func (r memFolders) subtree(userID, rootID string) []string {
	root, ok := r.d.folders[rootID]
	if !ok || root.UserID != userID {
		return nil
	}
	ids := []string{rootID}
	for i := 0; i < len(ids); i++ {
		for _, f := range r.d.folders {
			if f.UserID == userID && f.ParentID != nil && *f.ParentID == ids[i] {
				ids = append(ids, f.ID)
			}
		}
	}
	return ids
}

func (r memFolders) InSubtree(_ context.Context, userID, rootID, candidateID string) (bool, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	for _, id := range r.subtree(userID, rootID) {
		if id == candidateID {
			return true, nil
		}
	}
	return false, nil
}

func (r memFolders) Subtree(_ context.Context, userID, rootID string) ([]string, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	return r.subtree(userID, rootID), nil
}

func (r memFolders) DeleteTree(_ context.Context, userID, rootID string) (int64, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	ids := r.subtree(userID, rootID)
	if len(ids) == 0 {
		return 0, common.ErrorNotFound
	}
	for _, id := range ids {
		for _, f := range r.d.files {
			if f.FolderID != nil && *f.FolderID == id {
				return 0, fmt.Errorf("foreign key violation: file %s", f.ID)
			}
		}
		for _, s := range r.d.sessions {
			if s.FolderID != nil && *s.FolderID == id {
				s.FolderID = nil
			}
		}
		delete(r.d.folders, id)
	}
	return int64(len(ids)), nil
}

type memUploads struct{ d *memDB }

func (r memUploads) Create(_ context.Context, s *models.UploadSession) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if _, ok := r.d.sessions[s.UploadID]; ok {
		return errors.New("duplicate upload id")
	}
	c := *s
	r.d.sessions[s.UploadID] = &c
	return nil
}

func (r memUploads) Get(_ context.Context, uploadID string) (*models.UploadSession, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	s, ok := r.d.sessions[uploadID]
	if !ok {
		return nil, common.ErrSessionNotFound
	}
	c := *s
	return &c, nil
}

func (r memUploads) Delete(_ context.Context, uploadID string) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	delete(r.d.sessions, uploadID)
	return nil
}

func (r memUploads) ListExpired(_ context.Context, now time.Time, limit int) ([]*models.UploadSession, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	var out []*models.UploadSession
	for _, s := range r.d.sessions {
		if !s.ExpiresAt.After(now) && len(out) < limit {
			c := *s
			out = append(out, &c)
		}
	}
	return out, nil
}

type memScans struct{ d *memDB }

func (r memScans) Add(_ context.Context, p *models.PendingScan) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if _, ok := r.d.files[p.FileID]; !ok {
		return errors.New("foreign key violation")
	}
	if _, ok := r.d.scans[p.FileID]; ok {
		return nil
	}
	c := *p
	c.EnqueuedAt = r.d.clock()
	r.d.scans[p.FileID] = &c
	return nil
}

func (r memScans) Remove(_ context.Context, fileID string) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	delete(r.d.scans, fileID)
	return nil
}

func (r memScans) List(_ context.Context, limit int) ([]*models.PendingScan, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	var out []*models.PendingScan
	for _, p := range r.d.scans {
		c := *p
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FileID < out[j].FileID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (d *memDB) pendingScan(fileID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.scans[fileID]
	return ok
}

type memUsers struct{ d *memDB }

func (r memUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	for _, o := range r.d.users {
		if o.UserName == u.UserName {
			return nil, common.ErrUserExists
		}
	}
	u.CreatedAt = r.d.clock()
	c := *u
	r.d.users[u.ID] = &c
	return u, nil
}

func (r memUsers) GetUserByLogin(_ context.Context, login string) (*models.User, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	for _, u := range r.d.users {
		if u.UserName == login {
			c := *u
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

// memRepoManager hands out repositories over one memDB regardless of the handle.
type memRepoManager struct{ d *memDB }

func (m memRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m memRepoManager) Users(dbx.DBTX) users.Repository { return memUsers{m.d} }
func (m memRepoManager) Settings(dbx.DBTX) settings.Repository { return memSettings{m.d} }
func (m memRepoManager) Files(dbx.DBTX) files.Repository { return memFiles{m.d} }
func (m memRepoManager) Encryption(dbx.DBTX) encryption.Repository { return memParams{m.d} }
func (m memRepoManager) Folders(dbx.DBTX) folders.Repository { return memFolders{m.d} }
func (m memRepoManager) Uploads(dbx.DBTX) uploads.Repository { return memUploads{m.d} }
func (m memRepoManager) Scans(dbx.DBTX) scans.Repository { return memScans{m.d} }

// --- collaborators ---

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeOracle struct {
	mu      sync.Mutex
	verdict scanner.Verdict
	sig     string
	err     error
	calls   int
}

func (o *fakeOracle) Scan(context.Context, []byte) (scanner.Result, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls++
	if o.err != nil {
		return scanner.Result{Verdict: scanner.Unavailable}, o.err
	}
	return scanner.Result{Verdict: o.verdict, Signature: o.sig}, nil
}

func (o *fakeOracle) Ping(context.Context) error { return o.err }

func (o *fakeOracle) set(v scanner.Verdict, sig string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.verdict, o.sig, o.err = v, sig, err
}

type recordingQueue struct {
	mu   sync.Mutex
	jobs []ScanJob
}

func (q *recordingQueue) Enqueue(_ context.Context, job ScanJob) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
}

// flakyStore fails Delete for the configured keys.
type flakyStore struct {
	*blobstore.MemStore
	failDelete map[string]bool
}

func (s *flakyStore) Delete(ctx context.Context, key string) error {
	if s.failDelete[key] {
		return fmt.Errorf("blobstore delete %q: %w", key, blobstore.ErrUnavailable)
	}
	return s.MemStore.Delete(ctx, key)
}

// --- environment ---

type testEnv struct {
	db     *memDB
	clock  *fakeClock
	store  *blobstore.MemStore
	oracle *fakeOracle
	queue  *recordingQueue
	files  *FileService
	fold   *FolderService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithStore(t, nil)
}

// newTestEnvWithStore lets a test wrap the MemStore; wrap may be nil.
func newTestEnvWithStore(t *testing.T, wrap func(*blobstore.MemStore) blobstore.Store) *testEnv {
	t.Helper()
	clock := newFakeClock()
	db := newMemDB(clock.Now)
	mem := blobstore.NewMemStore()
	var store blobstore.Store = mem
	if wrap != nil {
		store = wrap(mem)
	}
	oracle := &fakeOracle{verdict: scanner.Clean}
	queue := &recordingQueue{}
	rm := memRepoManager{db}

	fs := NewFileService(nil, rm, store, oracle, logging.Discard(), WithClock(clock.Now), WithScanQueue(queue))
	fs.runTx = db.tx

	folders := NewFolderService(nil, rm, logging.Discard())
	folders.now = clock.Now
	folders.runTx = db.tx

	return &testEnv{db: db, clock: clock, store: mem, oracle: oracle, queue: queue, files: fs, fold: folders}
}

func (e *testEnv) upload(t *testing.T, userID string, folderID *string, name string, data []byte) (*models.File, error) {
	t.Helper()
	return e.files.Upload(context.Background(), UploadInput{
		UserID:      userID,
		FolderID:    folderID,
		Filename:    name,
		ContentType: "text/plain",
		Data:        data,
	})
}

func (e *testEnv) mustUpload(t *testing.T, userID string, folderID *string, name string, data []byte) *models.File {
	t.Helper()
	f, err := e.upload(t, userID, folderID, name, data)
	if err != nil {
		t.Fatalf("upload %q: %v", name, err)
	}
	return f
}

// assertQuotaInvariant checks the ledger against a direct sum over active rows.
func (e *testEnv) assertQuotaInvariant(t *testing.T, userID string) {
	t.Helper()
	used, err := e.files.Quota().UsedBytes(context.Background(), userID)
	if err != nil {
		t.Fatalf("UsedBytes: %v", err)
	}
	var want int64
	e.db.mu.Lock()
	for _, f := range e.db.files {
		if f.UserID == userID && !f.IsDeleted {
			want += f.Size
		}
	}
	e.db.mu.Unlock()
	if used != want {
		t.Fatalf("used bytes %d, active sum %d", used, want)
	}
}

func ptr(s string) *string { return &s }

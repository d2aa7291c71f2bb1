package services

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/filevault/internal/server/blobstore"
	"github.com/dmitrijs2005/filevault/internal/server/models"
)

// Accessors for tests in package services_test, which may import packages
// that depend on services.

func NewMemoryEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnv(t)
}

func (e *testEnv) Files() *FileService { return e.files }
func (e *testEnv) Store() *blobstore.MemStore { return e.store }
func (e *testEnv) Now() time.Time { return e.clock.Now() }
func (e *testEnv) Advance(d time.Duration) { e.clock.Advance(d) }
func (e *testEnv) AddUser(id string, limit int64) { e.db.addUser(id, limit) }

func (e *testEnv) Record(id string) (*models.File, bool) {
	return e.db.file(id)
}

package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/filevault/internal/dbx"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/encryption"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/files"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/folders"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/scans"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/settings"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/uploads"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to either the pool or a
// transaction, so services can run several of them under one dbx.WithTx.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Settings(db dbx.DBTX) settings.Repository
	Files(db dbx.DBTX) files.Repository
	Encryption(db dbx.DBTX) encryption.Repository
	Folders(db dbx.DBTX) folders.Repository
	Uploads(db dbx.DBTX) uploads.Repository
	Scans(db dbx.DBTX) scans.Repository
}

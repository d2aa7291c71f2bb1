// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/filevault/internal/dbx"
	"github.com/dmitrijs2005/filevault/internal/server/migrations"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/encryption"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/files"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/folders"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/scans"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/settings"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/uploads"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository implementations
// and exposes a schema migration hook.
type PostgresRepositoryManager struct{}

func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Settings(db dbx.DBTX) settings.Repository {
	return settings.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Files(db dbx.DBTX) files.Repository {
	return files.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Encryption(db dbx.DBTX) encryption.Repository {
	return encryption.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Folders(db dbx.DBTX) folders.Repository {
	return folders.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Uploads(db dbx.DBTX) uploads.Repository {
	return uploads.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Scans(db dbx.DBTX) scans.Repository {
	return scans.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
func NewPostgresRepositoryManager() RepositoryManager {
	return &PostgresRepositoryManager{}
}

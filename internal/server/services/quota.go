package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/dbx"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/repomanager"
)

// QuotaLedger answers admission questions from live metadata. Usage is the
// sum of sizes of the user's active files and is never cached.
type QuotaLedger struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewQuotaLedger(db *sql.DB, m repomanager.RepositoryManager) *QuotaLedger {
	return &QuotaLedger{db: db, repomanager: m}
}

// Usage is a snapshot of a user's storage accounting.
type Usage struct {
	Used  int64
	Limit int64
}

func (u Usage) Available() int64 {
	if u.Used >= u.Limit {
		return 0
	}
	return u.Limit - u.Used
}

func (q *QuotaLedger) UsedBytes(ctx context.Context, userID string) (int64, error) {
	used, err := q.repomanager.Files(q.db).UsedBytes(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("error computing used bytes: %w", err)
	}
	return used, nil
}

// Usage returns used bytes next to the user's limit.
func (q *QuotaLedger) Usage(ctx context.Context, userID string) (Usage, error) {
	return q.usage(ctx, q.db, userID, false)
}

// Admit fails with ErrSettingsMissing or ErrQuotaExceeded unless extra more
// bytes fit into the user's limit. It is a pre-check only; AdmitLocked must
// repeat it inside the commit transaction.
func (q *QuotaLedger) Admit(ctx context.Context, userID string, extra int64) error {
	return q.admit(ctx, q.db, userID, extra, false)
}

// AdmitLocked is Admit evaluated inside tx while holding the user's settings
// row lock, which serializes concurrent commits of the same user.
func (q *QuotaLedger) AdmitLocked(ctx context.Context, tx dbx.DBTX, userID string, extra int64) error {
	return q.admit(ctx, tx, userID, extra, true)
}

func (q *QuotaLedger) usage(ctx context.Context, db dbx.DBTX, userID string, lock bool) (Usage, error) {
	settingsRepo := q.repomanager.Settings(db)
	get := settingsRepo.Get
	if lock {
		get = settingsRepo.GetForUpdate
	}

	settings, err := get(ctx, userID)
	if err != nil {
		return Usage{}, fmt.Errorf("error loading settings: %w", err)
	}

	used, err := q.repomanager.Files(db).UsedBytes(ctx, userID)
	if err != nil {
		return Usage{}, fmt.Errorf("error computing used bytes: %w", err)
	}

	return Usage{Used: used, Limit: settings.StorageLimit}, nil
}

func (q *QuotaLedger) admit(ctx context.Context, db dbx.DBTX, userID string, extra int64, lock bool) error {
	u, err := q.usage(ctx, db, userID, lock)
	if err != nil {
		return err
	}
	if extra < 0 || u.Used+extra > u.Limit {
		return fmt.Errorf("%d bytes used, %d requested, limit %d: %w", u.Used, extra, u.Limit, common.ErrQuotaExceeded)
	}
	return nil
}

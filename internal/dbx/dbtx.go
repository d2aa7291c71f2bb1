// Package dbx provides the small database helpers shared by repositories:
// the DBTX interface satisfied by both *sql.DB and *sql.Tx, a transaction
// runner, and classification of driver errors.
package dbx

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgUniqueViolation is the SQLSTATE Postgres reports for unique index conflicts.
const pgUniqueViolation = "23505"

// SQLSTATE classes meaning the server went away: connection exceptions and
// operator intervention (admin shutdown, crash shutdown, cannot connect now).
var unavailableClasses = []string{"08", "57P"}

// DBTX is the subset of database/sql used by repositories.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx begins a transaction, runs fn with the transactional handle, and
// commits when fn succeeds. Any error or panic rolls the transaction back;
// panics are rethrown after the rollback.
//
//	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
//	    return files.NewPostgresRepository(tx).Create(ctx, f)
//	})
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return Wrap("begin tx", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if err = tx.Commit(); err != nil {
			err = Wrap("commit tx", err)
		}
	}()

	err = fn(ctx, tx)
	return err
}

// IsUniqueViolation reports whether err carries a Postgres unique constraint
// violation, optionally restricted to the named constraint or index.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// IsUnavailable reports whether err means the database could not be reached
// or dropped the connection, as opposed to rejecting the statement.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		for _, class := range unavailableClasses {
			if strings.HasPrefix(pgErr.Code, class) {
				return true
			}
		}
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// Wrap prefixes err with msg. Outages additionally match
// common.ErrUnavailable.
func Wrap(msg string, err error) error {
	if IsUnavailable(err) {
		return fmt.Errorf("%s: %w: %w", msg, common.ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// ValidID reports whether id can be bound to a uuid column. Postgres rejects
// anything else with 22P02 instead of matching no rows.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

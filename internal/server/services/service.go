// Package services implements the file lifecycle on top of the repositories,
// the blob store and the scan oracle.
package services

import (
	"context"
	"database/sql"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/dbx"
)

// txRunner runs fn inside one metadata transaction.
type txRunner func(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error

func sqlTx(db *sql.DB) txRunner {
	return func(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
		return dbx.WithTx(ctx, db, nil, fn)
	}
}

// BlobPath is where the ciphertext of a file lives. The file id keeps it
// unique and stable across rename, move and trash.
func BlobPath(userID string, folderID *string, fileID, filename string) string {
	folder := common.RootFolderName
	if folderID != nil {
		folder = *folderID
	}
	return path.Join(userID, folder, fileID, filename)
}

// StagingPath is where the parts of a chunked upload are merged before the
// result is encrypted to its BlobPath.
func StagingPath(userID, token string) string {
	return path.Join("staging", userID, token)
}

func validateName(kind, name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("empty %s: %w", kind, common.ErrInvalidArgument)
	case name == "." || name == "..":
		return fmt.Errorf("%s %q is reserved: %w", kind, name, common.ErrInvalidArgument)
	case strings.ContainsAny(name, "/\x00"):
		return fmt.Errorf("%s %q contains a path separator: %w", kind, name, common.ErrInvalidArgument)
	}
	return nil
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

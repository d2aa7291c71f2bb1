// Package blobstore stores encrypted file bytes in an S3-compatible object
// store. Both adapters normalize backend failures to ErrNotFound,
// ErrUnavailable and ErrPermissionDenied.
package blobstore

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/filevault/internal/common"
)

var (
	ErrNotFound         = common.ErrorNotFound
	ErrUnavailable      = common.ErrUnavailable
	ErrPermissionDenied = common.ErrPermissionDenied

	// ErrInvalidPart is returned when a completion list references a part
	// the store rejects (unknown, etag mismatch or too small).
	ErrInvalidPart = fmt.Errorf("invalid part: %w", common.ErrInvalidArgument)
)

// MaxPartNumber is the highest part number S3 accepts.
const MaxPartNumber = 10000

// Part is one uploaded part of a multipart upload.
type Part struct {
	Number int32
	ETag   string
}

// ObjectInfo is what Stat reports about a stored object.
type ObjectInfo struct {
	Size int64
	ETag string
}

// Store is the object store contract used by the file services.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	// GetRange reads length bytes starting at offset. A range running past
	// the end of the object is cut short.
	GetRange(ctx context.Context, key string, offset, length int64) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Stat(ctx context.Context, key string) (ObjectInfo, error)

	InitiateMultipart(ctx context.Context, key, contentType string) (string, error)
	UploadPart(ctx context.Context, key, uploadID string, number int32, data []byte) (string, error)
	CompleteMultipart(ctx context.Context, key, uploadID string, parts []Part) error
	AbortMultipart(ctx context.Context, key, uploadID string) error

	EnsureBucket(ctx context.Context) error
}

func validateRange(offset, length int64) error {
	if offset < 0 || length <= 0 {
		return fmt.Errorf("range %d+%d: %w", offset, length, common.ErrInvalidArgument)
	}
	return nil
}

// ValidatePartNumber checks a single part number is within 1..MaxPartNumber.
func ValidatePartNumber(n int32) error {
	if n < 1 || n > MaxPartNumber {
		return fmt.Errorf("part number %d out of range: %w", n, common.ErrInvalidArgument)
	}
	return nil
}

// ValidateParts checks a completion list is non-empty, strictly ascending
// and carries an etag for every part. The minimum non-final part size is
// left to the object store.
func ValidateParts(parts []Part) error {
	if len(parts) == 0 {
		return fmt.Errorf("no parts: %w", common.ErrInvalidArgument)
	}
	var prev int32
	for _, p := range parts {
		if err := ValidatePartNumber(p.Number); err != nil {
			return err
		}
		if p.Number <= prev {
			return fmt.Errorf("part %d out of order: %w", p.Number, common.ErrInvalidArgument)
		}
		if p.ETag == "" {
			return fmt.Errorf("part %d has no etag: %w", p.Number, common.ErrInvalidArgument)
		}
		prev = p.Number
	}
	return nil
}

func wrap(op, key string, kind, err error) error {
	return fmt.Errorf("blobstore %s %q: %w: %w", op, key, kind, err)
}

// Package common defines shared constants and sentinel errors used across the
// filevault server layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Admission errors. None of them leaves a file row or a blob behind.
	ErrSettingsMissing = errors.New("user settings not found")
	ErrQuotaExceeded   = errors.New("storage limit exceeded")
	ErrDuplicateName   = errors.New("file with this name already exists in the folder")
	ErrInfected        = errors.New("file is infected with a virus")
	ErrScanUnavailable = errors.New("antivirus service unavailable")

	// Multipart upload errors.
	ErrSessionNotFound = errors.New("upload session not found")

	// ErrTooLarge is returned when a whole file does not fit one response;
	// such files are read in ranges.
	ErrTooLarge = errors.New("file too large for a single response")

	// Data-integrity violations. These are never recovered silently.
	ErrEncryptionParamsMissing = errors.New("encryption params not found")
	ErrCorruptPayload          = errors.New("corrupt payload")

	// Dependency failures.
	ErrUnavailable      = errors.New("dependency unavailable")
	ErrPermissionDenied = errors.New("permission denied")

	// Validation errors.
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvalidMove     = errors.New("folder cannot be moved into itself or its descendant")
	ErrUserExists      = errors.New("user already exists")
)

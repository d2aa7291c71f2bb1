package client

import "errors"

var (
	ErrUnavailable   = errors.New("server unavailable")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrQuotaExceeded = errors.New("storage limit exceeded")
	ErrRejected      = errors.New("rejected")
)

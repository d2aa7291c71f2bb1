// Package filex holds small filesystem helpers for the CLI.
package filex

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var ErrUnsafeName = errors.New("unsafe file name")

// EnsureDir creates dirName (relative to the working directory unless
// absolute) and returns its absolute path.
func EnsureDir(dirName string) (string, error) {
	dir := dirName
	if !filepath.IsAbs(dir) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getwd: %w", err)
		}
		dir = filepath.Join(cwd, dirName)
	}

	if err := os.MkdirAll(dir, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return dir, nil
}

// SafeJoin joins a server supplied file name onto dir. Names that would
// escape dir are rejected.
func SafeJoin(dir, name string) (string, error) {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return "", fmt.Errorf("%w: %q", ErrUnsafeName, name)
	}
	return filepath.Join(dir, name), nil
}

// WriteNew writes data to path, refusing to overwrite an existing file.
func WriteNew(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}

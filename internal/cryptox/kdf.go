// Package cryptox implements the file encryption primitives: a slow salted key
// derivation and an AES-CBC codec with PKCS7 padding.
package cryptox

import (
	"crypto/sha256"

	"github.com/dmitrijs2005/filevault/internal/common"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// KDFIterations is the PBKDF2-HMAC-SHA256 work factor.
	KDFIterations = 100_000
	// KeySize is the derived key length, selecting AES-256.
	KeySize = 32
	// SaltSize is the length of the per-file random salt.
	SaltSize = 16
)

// NewSalt returns a fresh random per-file salt.
func NewSalt() []byte {
	return common.GenerateRandByteArray(SaltSize)
}

// DeriveFileKey derives the symmetric key for one file from the owner's
// identifier and the file's salt.
//
// The same (secret, salt) pair always yields the same key, and two salts
// give unrelated keys for the same secret. The secret is the owning user's
// id, so encryption needs no user-managed passphrase; the operator can
// therefore decrypt any file.
func DeriveFileKey(secret string, salt []byte) []byte {
	return pbkdf2.Key([]byte(secret), salt, KDFIterations, KeySize, sha256.New)
}

package cryptox

import (
	"crypto/subtle"

	"github.com/dmitrijs2005/filevault/internal/common"
	"golang.org/x/crypto/argon2"
)

const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	hashLen      = 32
	passSaltLen  = 16
)

// HashPassword returns salt||argon2id(password, salt).
func HashPassword(password string) []byte {
	salt := common.GenerateRandByteArray(passSaltLen)
	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, hashLen)

	out := make([]byte, 0, passSaltLen+hashLen)
	out = append(out, salt...)
	return append(out, hash...)
}

// VerifyPassword checks password against a value produced by HashPassword
// in constant time.
func VerifyPassword(password string, stored []byte) bool {
	if len(stored) != passSaltLen+hashLen {
		return false
	}
	salt, hash := stored[:passSaltLen], stored[passSaltLen:]
	candidate := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, hashLen)
	return subtle.ConstantTimeCompare(hash, candidate) == 1
}

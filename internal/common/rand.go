package common

import "crypto/rand"

// GenerateRandByteArray returns size bytes read from crypto/rand.
// It panics if the system random source fails, as no caller can continue
// safely without randomness for salts and IVs.
func GenerateRandByteArray(size int) []byte {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return b
}

// WipeByteArray overwrites b with zeros. Used for derived keys once a
// payload has been encrypted or decrypted.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

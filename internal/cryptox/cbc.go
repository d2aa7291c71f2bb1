package cryptox

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"github.com/dmitrijs2005/filevault/internal/common"
)

// IVSize is the AES block size; CBC uses one block of IV.
const IVSize = aes.BlockSize

// EncryptCBC pads plaintext with PKCS7 and encrypts it with AES-CBC under key.
// A fresh random IV is generated on every call and returned next to the
// ciphertext. Empty plaintext produces one full block of padding.
func EncryptCBC(plaintext, key []byte) (ciphertext, iv []byte, err error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, fmt.Errorf("new cipher: %w", err)
	}

	iv = common.GenerateRandByteArray(IVSize)
	padded := pkcs7Pad(plaintext, aes.BlockSize)

	ciphertext = make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	return ciphertext, iv, nil
}

// DecryptCBC reverses EncryptCBC. A ciphertext that is not a whole number of
// blocks, or whose padding does not verify after decryption (wrong key, wrong
// IV, tampered bytes), yields an error wrapping common.ErrCorruptPayload.
func DecryptCBC(ciphertext, key, iv []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	if len(iv) != IVSize {
		return nil, fmt.Errorf("%w: iv length %d", common.ErrCorruptPayload, len(iv))
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext length %d", common.ErrCorruptPayload, len(ciphertext))
	}

	padded := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(padded, ciphertext)

	return pkcs7Unpad(padded, aes.BlockSize)
}

// DecryptCBCBlocks decrypts whole blocks cut from the middle of an AES-CBC
// stream. iv is the ciphertext block just before them, or the stream IV when
// they start at block zero. Padding is left in place.
func DecryptCBCBlocks(ciphertext, key, iv []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	if len(iv) != IVSize {
		return nil, fmt.Errorf("%w: iv length %d", common.ErrCorruptPayload, len(iv))
	}
	if len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext length %d", common.ErrCorruptPayload, len(ciphertext))
	}
	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ciphertext)
	return out, nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	out := make([]byte, len(data), len(data)+n)
	copy(out, data)
	return append(out, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("%w: padded length %d", common.ErrCorruptPayload, len(data))
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize {
		return nil, fmt.Errorf("%w: bad padding", common.ErrCorruptPayload)
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, fmt.Errorf("%w: bad padding", common.ErrCorruptPayload)
		}
	}
	return data[:len(data)-n], nil
}

package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateRandByteArray_LengthAndUniqueness(t *testing.T) {
	a := GenerateRandByteArray(16)
	b := GenerateRandByteArray(16)

	assert.Len(t, a, 16)
	assert.Len(t, b, 16)
	assert.NotEqual(t, a, b, "two 16-byte random values must not collide")
}

func TestWipeByteArray(t *testing.T) {
	buf := []byte{1, 2, 3, 4, 5}
	WipeByteArray(buf)
	assert.Equal(t, []byte{0, 0, 0, 0, 0}, buf)

	assert.NotPanics(t, func() { WipeByteArray(nil) })
}

package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeRandDigits(t *testing.T) {
	s, err := MakeRandDigits(6)
	require.NoError(t, err)
	require.Len(t, s, 6)
	for _, r := range s {
		assert.True(t, r >= '0' && r <= '9', "unexpected rune %q", r)
	}
}

func TestWipeByteArray(t *testing.T) {
	buf := []byte("secret")
	WipeByteArray(buf)
	assert.Equal(t, make([]byte, 6), buf)

	WipeByteArray(nil)
}

package cryptox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashUsername(t *testing.T) {
	a := HashUsername("alice.07")
	b := HashUsername("alice.07")
	c := HashUsername("alice.08")

	assert.Len(t, a, HashSize)
	assert.Equal(t, a, b, "hash must be deterministic")
	assert.NotEqual(t, a, c)
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	entropy, err := NewEntropy()
	require.NoError(t, err)

	blob, err := EncryptUsername(entropy, "Alice.07")
	require.NoError(t, err)

	got, err := DecryptUsername(entropy, blob)
	require.NoError(t, err)
	assert.Equal(t, "Alice.07", got)
}

func TestEncrypt_FreshNonce(t *testing.T) {
	entropy, err := NewEntropy()
	require.NoError(t, err)

	a, err := EncryptUsername(entropy, "alice.07")
	require.NoError(t, err)
	b, err := EncryptUsername(entropy, "alice.07")
	require.NoError(t, err)

	assert.NotEqual(t, a, b, "same plaintext must not produce the same blob")
}

func TestDecrypt_WrongEntropy(t *testing.T) {
	entropy, err := NewEntropy()
	require.NoError(t, err)
	other, err := NewEntropy()
	require.NoError(t, err)

	blob, err := EncryptUsername(entropy, "alice.07")
	require.NoError(t, err)

	_, err = DecryptUsername(other, blob)
	assert.ErrorIs(t, err, ErrInvalidLinkData)
}

func TestDecrypt_TruncatedBlob(t *testing.T) {
	entropy, err := NewEntropy()
	require.NoError(t, err)

	_, err = DecryptUsername(entropy, []byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidLinkData)
}

func TestBadEntropyLength(t *testing.T) {
	short := make([]byte, 16)

	_, err := EncryptUsername(short, "alice.07")
	assert.ErrorIs(t, err, ErrInvalidEntropyLength)

	_, err = DecryptUsername(short, make([]byte, 64))
	assert.ErrorIs(t, err, ErrInvalidEntropyLength)
}

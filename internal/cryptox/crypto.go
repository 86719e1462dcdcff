// Package cryptox holds the opaque cryptographic primitives of the username
// subsystem: the username hash and the entropy-keyed AEAD that seals the
// link blob. Callers treat these as black boxes; everything above this
// package works in terms of digests and blobs.
package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// EntropySize is the link entropy length, which doubles as the AEAD key.
const EntropySize = chacha20poly1305.KeySize

// HashSize is the length of a username digest.
const HashSize = sha256.Size

var (
	// ErrInvalidEntropyLength reports entropy that is not exactly EntropySize
	// bytes. A link carrying such entropy can never decrypt anything.
	ErrInvalidEntropyLength = errors.New("invalid entropy length")

	// ErrInvalidLinkData reports a blob that is too short or fails
	// authentication under the given entropy.
	ErrInvalidLinkData = errors.New("invalid link data")
)

// HashUsername digests the canonical (case-folded) username form.
func HashUsername(canonical string) []byte {
	h := sha256.Sum256([]byte(canonical))
	return h[:]
}

// NewEntropy returns fresh random link entropy.
func NewEntropy() ([]byte, error) {
	entropy := make([]byte, EntropySize)
	if _, err := rand.Read(entropy); err != nil {
		return nil, fmt.Errorf("read entropy: %w", err)
	}
	return entropy, nil
}

// EncryptUsername seals the display-form username under the entropy.
// A fresh random nonce is prefixed to the returned blob, so encrypting the
// same username twice yields different blobs.
func EncryptUsername(entropy []byte, display string) ([]byte, error) {
	if len(entropy) != EntropySize {
		return nil, ErrInvalidEntropyLength
	}

	aead, err := chacha20poly1305.New(entropy)
	if err != nil {
		return nil, fmt.Errorf("create aead: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("read nonce: %w", err)
	}

	return aead.Seal(nonce, nonce, []byte(display), nil), nil
}

// DecryptUsername opens a blob produced by EncryptUsername. Failures are
// split the way resolution needs them: bad entropy length is distinct from
// a blob that does not authenticate.
func DecryptUsername(entropy, blob []byte) (string, error) {
	if len(entropy) != EntropySize {
		return "", ErrInvalidEntropyLength
	}

	aead, err := chacha20poly1305.New(entropy)
	if err != nil {
		return "", fmt.Errorf("create aead: %w", err)
	}

	if len(blob) < aead.NonceSize()+aead.Overhead() {
		return "", ErrInvalidLinkData
	}

	nonce, ciphertext := blob[:aead.NonceSize()], blob[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrInvalidLinkData
	}

	return string(plain), nil
}

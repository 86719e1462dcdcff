// Package username defines the Username value type, its validation grammar,
// candidate generation for reservation, and the shareable-link codec.
//
// A username is a "nickname.discriminator" pair. The nickname is the
// user-chosen part; the discriminator is a numeric suffix that disambiguates
// identical nicknames. Usernames are case-insensitive for identity purposes:
// the hash is computed over the lowercased form, while the display casing is
// preserved verbatim.
package username

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tkorchagin/namelink/internal/cryptox"
)

// Nickname and discriminator bounds.
const (
	MinNicknameLength = 3
	MaxNicknameLength = 32

	// MaxDiscriminatorDigits bounds the numeric suffix length.
	MaxDiscriminatorDigits = 9

	// Delimiter separates the nickname from the discriminator.
	Delimiter = "."
)

// Nickname validation errors. Each rule failure is a distinct value so
// callers can tell the user exactly what was wrong.
var (
	ErrNicknameTooShort        = errors.New("nickname is too short")
	ErrNicknameTooLong         = errors.New("nickname is too long")
	ErrNicknameBadCharacter    = errors.New("nickname contains an invalid character")
	ErrNicknameStartsWithDigit = errors.New("nickname cannot start with a digit")
	ErrMissingSeparator        = errors.New("username is missing the nickname/discriminator separator")
)

// Discriminator validation errors.
var (
	ErrDiscriminatorEmpty        = errors.New("discriminator cannot be empty")
	ErrDiscriminatorBadCharacter = errors.New("discriminator contains a non-digit character")
	ErrDiscriminatorZero         = errors.New("discriminator cannot be zero")
	ErrDiscriminatorSingleDigit  = errors.New("discriminator cannot be a single digit")
	ErrDiscriminatorLeadingZeros = errors.New("discriminator cannot have leading zeros")
	ErrDiscriminatorTooLarge     = errors.New("discriminator is too large")
)

// Username is an immutable, validated "nickname.discriminator" value.
// The zero value is not a valid username; construct via New or Parse.
type Username struct {
	nickname      string
	discriminator string
}

// New builds a Username from its two parts, validating both.
func New(nickname, discriminator string) (Username, error) {
	if err := validateNickname(nickname); err != nil {
		return Username{}, err
	}
	if err := validateDiscriminator(discriminator); err != nil {
		return Username{}, err
	}
	return Username{nickname: nickname, discriminator: discriminator}, nil
}

// Parse builds a Username from its combined "nickname.discriminator" form.
func Parse(s string) (Username, error) {
	nickname, discriminator, found := strings.Cut(s, Delimiter)
	if !found {
		return Username{}, ErrMissingSeparator
	}
	return New(nickname, discriminator)
}

// Nickname returns the user-chosen part with its original casing.
func (u Username) Nickname() string {
	return u.nickname
}

// Discriminator returns the numeric suffix as entered, including any
// two-digit zero padding.
func (u Username) Discriminator() string {
	return u.discriminator
}

// String returns the combined "nickname.discriminator" display form.
func (u Username) String() string {
	return u.nickname + Delimiter + u.discriminator
}

// Hash returns the digest used to identify this username on the wire.
// It is computed over the case-folded form, so usernames that differ only
// in casing hash identically.
func (u Username) Hash() []byte {
	return cryptox.HashUsername(strings.ToLower(u.String()))
}

// GeneratedLink is the client-side half of a shareable link: the entropy
// that keys the encrypted blob, and the blob itself. The server id half is
// assigned by the server when the link is pushed.
type GeneratedLink struct {
	Entropy           []byte
	EncryptedUsername []byte
}

// GenerateLink creates a link for this username using fresh random entropy.
// Sharing the resulting link requires pushing EncryptedUsername to the
// server and combining the returned server id with Entropy.
func (u Username) GenerateLink() (GeneratedLink, error) {
	entropy, err := cryptox.NewEntropy()
	if err != nil {
		return GeneratedLink{}, fmt.Errorf("generate entropy: %w", err)
	}
	return u.GenerateLinkWithEntropy(entropy)
}

// GenerateLinkWithEntropy creates a link that reuses existing entropy.
// This is what keeps previously shared links working across display-casing
// updates and reclaim: the recipient's copy of the entropy stays valid.
func (u Username) GenerateLinkWithEntropy(entropy []byte) (GeneratedLink, error) {
	blob, err := cryptox.EncryptUsername(entropy, u.String())
	if err != nil {
		return GeneratedLink{}, fmt.Errorf("encrypt username: %w", err)
	}
	return GeneratedLink{Entropy: entropy, EncryptedUsername: blob}, nil
}

func validateNickname(nickname string) error {
	if len(nickname) < MinNicknameLength {
		return ErrNicknameTooShort
	}
	if len(nickname) > MaxNicknameLength {
		return ErrNicknameTooLong
	}
	if nickname[0] >= '0' && nickname[0] <= '9' {
		return ErrNicknameStartsWithDigit
	}
	for _, c := range nickname {
		if !isNicknameChar(c) {
			return ErrNicknameBadCharacter
		}
	}
	return nil
}

func isNicknameChar(c rune) bool {
	switch {
	case c >= 'a' && c <= 'z':
		return true
	case c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return true
	case c == '_':
		return true
	}
	return false
}

// validateDiscriminator accepts strings of ASCII digits. Values 1–9 must be
// zero-padded to two digits ("01".."09"); longer values must not have
// leading zeros.
func validateDiscriminator(d string) error {
	if d == "" {
		return ErrDiscriminatorEmpty
	}
	allZero := true
	for _, c := range d {
		if c < '0' || c > '9' {
			return ErrDiscriminatorBadCharacter
		}
		if c != '0' {
			allZero = false
		}
	}
	if len(d) > MaxDiscriminatorDigits {
		return ErrDiscriminatorTooLarge
	}
	if allZero {
		return ErrDiscriminatorZero
	}
	if len(d) == 1 {
		return ErrDiscriminatorSingleDigit
	}
	if len(d) > 2 && d[0] == '0' {
		return ErrDiscriminatorLeadingZeros
	}
	return nil
}

package username

import (
	"encoding/base64"
	"errors"
	"regexp"

	"github.com/google/uuid"
)

// EntropyLength is the number of random bytes that key a link's encrypted
// username blob.
const EntropyLength = 32

// linkBytesLength is entropy plus a 16-byte server id.
const linkBytesLength = EntropyLength + 16

// DefaultOrigin is the canonical host links are formatted under.
const DefaultOrigin = "https://nl.example.com"

// ErrLinkInvalid is returned for any malformed link: wrong prefix, bad
// base64, or a payload that is not exactly 48 bytes.
var ErrLinkInvalid = errors.New("invalid username link")

// linkPattern matches "<origin>/#eu/<base64url>". The scheme is optional so
// links pasted without "https://" still resolve.
var linkPattern = regexp.MustCompile(`^(?:https://)?[A-Za-z0-9.-]+/?#eu/([A-Za-z0-9_-]+)$`)

// LinkComponents is the decoded form of a shareable link: the entropy that
// decrypts the username blob and the server id the blob is stored under.
// Exactly one live instance exists per account; rotating the link replaces
// both halves.
type LinkComponents struct {
	Entropy  []byte    `json:"entropy"`
	ServerID uuid.UUID `json:"server_id"`
}

// FormatLink encodes components into the shareable string form:
// origin + "/#eu/" + base64url(entropy || serverID), unpadded.
// An empty origin falls back to DefaultOrigin.
func FormatLink(c LinkComponents, origin string) (string, error) {
	if len(c.Entropy) != EntropyLength {
		return "", ErrLinkInvalid
	}
	if origin == "" {
		origin = DefaultOrigin
	}

	combined := make([]byte, 0, linkBytesLength)
	combined = append(combined, c.Entropy...)
	combined = append(combined, c.ServerID[:]...)

	return origin + "/#eu/" + base64.RawURLEncoding.EncodeToString(combined), nil
}

// ParseLink decodes a shareable link back into its components. It is total:
// any malformed input yields ErrLinkInvalid, never a panic.
func ParseLink(link string) (LinkComponents, error) {
	m := linkPattern.FindStringSubmatch(link)
	if m == nil {
		return LinkComponents{}, ErrLinkInvalid
	}

	raw, err := base64.RawURLEncoding.DecodeString(m[1])
	if err != nil {
		return LinkComponents{}, ErrLinkInvalid
	}
	if len(raw) != linkBytesLength {
		return LinkComponents{}, ErrLinkInvalid
	}

	serverID, err := uuid.FromBytes(raw[EntropyLength:])
	if err != nil {
		return LinkComponents{}, ErrLinkInvalid
	}

	entropy := make([]byte, EntropyLength)
	copy(entropy, raw[:EntropyLength])

	return LinkComponents{Entropy: entropy, ServerID: serverID}, nil
}

// IsValidLink reports whether the string parses as a username link.
func IsValidLink(link string) bool {
	_, err := ParseLink(link)
	return err == nil
}

// Package models defines the directory server's domain types and the
// sentinel errors shared between its repository, service, and handlers.
package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// UsernameHashSize is the exact digest length the directory accepts.
const UsernameHashSize = 32

// MaxReserveCandidates bounds the ordered hash list a single reservation
// request may carry.
const MaxReserveCandidates = 20

// ReservationTTL is how long an unconfirmed reservation is held before the
// hash becomes claimable again.
const ReservationTTL = 5 * time.Minute

var (
	// ErrUsernameTaken means none of the submitted candidate hashes was
	// available.
	ErrUsernameTaken = errors.New("username taken")
	// ErrMalformedHash means a submitted hash list or hash failed validation.
	ErrMalformedHash = errors.New("malformed username hash")
	// ErrReservationInvalid means the hash being confirmed is not reserved
	// by this account, or the reservation expired.
	ErrReservationInvalid = errors.New("reservation invalid")
	// ErrUsernameGone means the username is no longer claimable by this
	// account.
	ErrUsernameGone = errors.New("username gone")
	// ErrNotFound covers unknown server ids, hashes, and accounts.
	ErrNotFound = errors.New("not found")
)

// UsernameRecord is a row in the usernames table: a candidate hash and who
// holds it. Unconfirmed rows expire at ReservedUntil.
type UsernameRecord struct {
	// Hash is the username digest; the server never sees the plaintext.
	Hash []byte
	// AccountID is the reserving or owning account.
	AccountID uuid.UUID
	// Confirmed marks a finalized claim; confirmed rows do not expire.
	Confirmed bool
	// ReservedUntil is the reservation deadline for unconfirmed rows.
	ReservedUntil time.Time
}

// LinkRecord is a row in the username_links table: an opaque server id
// mapping to an encrypted username blob. The server cannot correlate it to
// any username hash it stores.
type LinkRecord struct {
	ServerID  uuid.UUID
	AccountID uuid.UUID
	Blob      []byte
}

// Package api defines the directory-service client used by the username
// protocols, plus the typed errors that mirror the wire contract. Any error
// that is not one of the sentinels below is a network-class failure and may
// be retried by the caller.
package api

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Wire-contract errors. Each maps to a specific server response so protocol
// code can branch on the cause instead of a status code.
var (
	// ErrUsernameTaken: none of the submitted candidate hashes was available.
	ErrUsernameTaken = errors.New("username taken")
	// ErrUsernameMalformed: the server rejected the submission as invalid.
	ErrUsernameMalformed = errors.New("username malformed")
	// ErrRateLimited: the server asked us to back off.
	ErrRateLimited = errors.New("rate limited")
	// ErrReservationInvalid: the reservation expired or was never held.
	ErrReservationInvalid = errors.New("reservation invalid")
	// ErrUsernameGone: the username is no longer claimable by this account.
	ErrUsernameGone = errors.New("username gone")
	// ErrNotFound: the requested server id or username hash is unknown.
	ErrNotFound = errors.New("not found")
)

// Client issues the username/link requests against the directory service.
// Implementations return the sentinel errors above for contract-level
// failures and arbitrary wrapped errors for transport failures.
type Client interface {
	// ReserveUsername submits an ordered list of candidate hashes. The
	// server reserves the first available one and returns it.
	ReserveUsername(ctx context.Context, hashes [][]byte) ([]byte, error)

	// ConfirmUsername finalizes a reserved username and atomically installs
	// a new link blob, returning the server id assigned to the blob.
	ConfirmUsername(ctx context.Context, hash, encryptedUsername []byte) (uuid.UUID, error)

	// CreateUsernameLink replaces the account's link with a fresh one
	// holding the given blob, returning the new server id.
	CreateUsernameLink(ctx context.Context, encryptedUsername []byte) (uuid.UUID, error)

	// UpdateUsernameLink replaces only the blob stored at an existing
	// server id, keeping the link itself stable.
	UpdateUsernameLink(ctx context.Context, serverID uuid.UUID, encryptedUsername []byte) error

	// GetUsernameLinkBlob fetches the encrypted blob stored at a server id.
	GetUsernameLinkBlob(ctx context.Context, serverID uuid.UUID) ([]byte, error)

	// LookupAccountByHash resolves a username hash to the owning account.
	LookupAccountByHash(ctx context.Context, hash []byte) (uuid.UUID, error)

	// DeleteUsername removes the account's username and link.
	DeleteUsername(ctx context.Context) error
}

// Package account defines the persisted identity fields of the local
// account (username, link components, sync state) and the repository
// interface the protocol layer reads and writes them through.
package account

import (
	"context"
	"fmt"

	"github.com/tkorchagin/namelink/internal/username"
)

// SyncState tracks whether the locally cached username and link still match
// the server's authoritative state.
type SyncState int

const (
	// SyncStateInSync means no sustained divergence has been observed.
	SyncStateInSync SyncState = iota
	// SyncStateLinkCorrupted means the link repeatedly mismatched; the
	// stored link has been cleared and must be rotated.
	SyncStateLinkCorrupted
	// SyncStateUsernameAndLinkCorrupted means the whole identity repeatedly
	// mismatched; both fields are suspect and the user must re-claim.
	SyncStateUsernameAndLinkCorrupted
)

func (s SyncState) String() string {
	switch s {
	case SyncStateInSync:
		return "in_sync"
	case SyncStateLinkCorrupted:
		return "link_corrupted"
	case SyncStateUsernameAndLinkCorrupted:
		return "username_and_link_corrupted"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Record holds the account's identity fields as persisted between runs.
type Record struct {
	// Username is the combined display form, empty when unset.
	Username string `json:"username,omitempty"`
	// Link is the live link's components, nil when no link exists.
	Link *username.LinkComponents `json:"link,omitempty"`
	// SyncState and MismatchCount belong to the consistency state machine.
	SyncState     SyncState `json:"sync_state"`
	MismatchCount int       `json:"mismatch_count"`
	// NeedsRestore is a one-shot flag asking the next cold start to reclaim
	// the cached identity against the server.
	NeedsRestore bool `json:"needs_restore"`
}

// Repository is the injected handle to the persisted account record. The
// protocol layer performs read-modify-write cycles through it and never
// assumes a process-wide singleton.
type Repository interface {
	// Load returns the current record. A store with no saved record returns
	// the zero Record, not an error.
	Load(ctx context.Context) (Record, error)
	// Save replaces the record.
	Save(ctx context.Context, rec Record) error
	// MarkNeedsSync flags the account metadata for propagation to linked
	// devices/storage. Implementations may treat this as a no-op.
	MarkNeedsSync(ctx context.Context) error
}

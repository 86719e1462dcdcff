// Package identity implements the username identity and link protocols:
// reservation, confirmation, display updates, link rotation, link
// resolution, the consistency state machine, and the cold-start reclaim
// flow.
//
// All state-mutating operations serialize on a single mutex: they
// read-modify-write the persisted account record, and interleaving, say, a
// confirmation with a reclaim could leave the stored entropy out of step
// with the server-held blob. Resolving a foreign link touches no local
// state and takes no lock.
package identity

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/tkorchagin/namelink/internal/account"
	"github.com/tkorchagin/namelink/internal/client/api"
	"github.com/tkorchagin/namelink/internal/username"
)

var (
	// ErrCandidateGeneration means the server returned a hash that is not in
	// the candidate list we submitted. That is a local/remote hash-function
	// disagreement, a logic bug rather than user error, and is never
	// silently swallowed.
	ErrCandidateGeneration = errors.New("candidate generation mismatch")

	// ErrNoUsername is returned by operations that require a claimed
	// username when none is stored.
	ErrNoUsername = errors.New("no username set")

	// ErrNoLink is returned by operations that require a live link when
	// none is stored.
	ErrNoLink = errors.New("no username link set")
)

// Reserved is a reservation result: a candidate the server is holding for
// us, pending confirmation. It is not persisted; confirm it promptly.
type Reserved struct {
	Username username.Username
}

// Manager drives the username protocols against an injected account store
// and directory client.
type Manager struct {
	mu     sync.Mutex
	repo   account.Repository
	client api.Client
	log    *zap.Logger
	origin string
}

// NewManager wires a Manager. An empty origin falls back to the canonical
// link origin.
func NewManager(repo account.Repository, client api.Client, log *zap.Logger, origin string) *Manager {
	if origin == "" {
		origin = username.DefaultOrigin
	}
	return &Manager{repo: repo, client: client, log: log, origin: origin}
}

// Reserve generates candidates for the nickname, submits their hashes, and
// returns the candidate the server reserved. When discriminator is empty a
// fresh random candidate list is generated; a non-empty discriminator pins
// the one exact candidate.
//
// Callers retrying after a network error must call Reserve again rather
// than reuse an old Reserved value: per-candidate availability changes.
func (m *Manager) Reserve(ctx context.Context, nickname, discriminator string) (Reserved, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var candidates []username.Username
	if discriminator == "" {
		c, err := username.CandidatesFrom(nickname)
		if err != nil {
			return Reserved{}, err
		}
		candidates = c
	} else {
		u, err := username.New(nickname, discriminator)
		if err != nil {
			return Reserved{}, err
		}
		candidates = []username.Username{u}
	}

	// Order matters: the server reserves the first available hash, and we
	// find the chosen candidate again by position-preserving lookup.
	hashes := make([][]byte, len(candidates))
	for i, c := range candidates {
		hashes[i] = c.Hash()
	}

	chosen, err := m.client.ReserveUsername(ctx, hashes)
	if err != nil {
		m.log.Warn("username reservation failed", zap.Error(err))
		return Reserved{}, err
	}

	idx := -1
	for i, h := range hashes {
		if bytes.Equal(h, chosen) {
			idx = i
			break
		}
	}
	if idx == -1 {
		m.log.Warn("server returned a hash absent from our candidate list")
		return Reserved{}, ErrCandidateGeneration
	}

	m.log.Info("username reserved", zap.String("discriminator", candidates[idx].Discriminator()))
	return Reserved{Username: candidates[idx]}, nil
}

// ConfirmAndCreateLink finalizes a reserved username and establishes a
// fresh link for it. It always rotates the link: callers who only want to
// change display casing must use UpdateDisplayCasing, or previously shared
// links go stale.
func (m *Manager) ConfirmAndCreateLink(ctx context.Context, u username.Username) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	gl, err := u.GenerateLink()
	if err != nil {
		return err
	}

	serverID, err := m.client.ConfirmUsername(ctx, u.Hash(), gl.EncryptedUsername)
	if err != nil {
		m.log.Warn("username confirmation failed", zap.Error(err))
		return err
	}

	rec, err := m.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}
	rec.Username = u.String()
	rec.Link = &username.LinkComponents{Entropy: gl.Entropy, ServerID: serverID}
	rec.SyncState = account.SyncStateInSync
	rec.MismatchCount = 0
	if err := m.repo.Save(ctx, rec); err != nil {
		return fmt.Errorf("save account: %w", err)
	}
	if err := m.repo.MarkNeedsSync(ctx); err != nil {
		m.log.Warn("failed to mark account for resync", zap.Error(err))
	}

	m.log.Info("username confirmed and link created")
	return nil
}

// UpdateDisplayCasing re-encrypts the username under the existing link's
// entropy and swaps only the blob at the current server id. The link stays
// valid for everyone who already has it; only the stored display string
// changes. The given username must hash identically to the current one,
// so casing is the only thing that can vary.
func (m *Manager) UpdateDisplayCasing(ctx context.Context, u username.Username) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, err := m.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}
	if rec.Link == nil {
		return ErrNoLink
	}

	gl, err := u.GenerateLinkWithEntropy(rec.Link.Entropy)
	if err != nil {
		return err
	}

	if err := m.client.UpdateUsernameLink(ctx, rec.Link.ServerID, gl.EncryptedUsername); err != nil {
		m.log.Warn("username display update failed", zap.Error(err))
		return err
	}

	rec.Username = u.String()
	rec.SyncState = account.SyncStateInSync
	rec.MismatchCount = 0
	if err := m.repo.Save(ctx, rec); err != nil {
		return fmt.Errorf("save account: %w", err)
	}
	if err := m.repo.MarkNeedsSync(ctx); err != nil {
		m.log.Warn("failed to mark account for resync", zap.Error(err))
	}

	m.log.Info("username display updated, link preserved")
	return nil
}

// CreateOrResetLink rotates the account's link: fresh entropy, new server
// id, same username. The previous link becomes unresolvable. Rotation heals
// a link-corrupted sync state.
func (m *Manager) CreateOrResetLink(ctx context.Context) (username.LinkComponents, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, err := m.repo.Load(ctx)
	if err != nil {
		return username.LinkComponents{}, fmt.Errorf("load account: %w", err)
	}
	if rec.Username == "" {
		return username.LinkComponents{}, ErrNoUsername
	}
	u, err := username.Parse(rec.Username)
	if err != nil {
		return username.LinkComponents{}, fmt.Errorf("stored username invalid: %w", err)
	}

	// Drop the old link before the call; if the rotation fails partway
	// we would rather have no link than a link that no longer resolves.
	rec.Link = nil
	if err := m.repo.Save(ctx, rec); err != nil {
		return username.LinkComponents{}, fmt.Errorf("save account: %w", err)
	}

	gl, err := u.GenerateLink()
	if err != nil {
		return username.LinkComponents{}, err
	}

	serverID, err := m.client.CreateUsernameLink(ctx, gl.EncryptedUsername)
	if err != nil {
		m.log.Warn("link rotation failed", zap.Error(err))
		return username.LinkComponents{}, err
	}

	components := username.LinkComponents{Entropy: gl.Entropy, ServerID: serverID}
	rec.Link = &components
	if rec.SyncState == account.SyncStateLinkCorrupted {
		rec.SyncState = account.SyncStateInSync
		rec.MismatchCount = 0
	}
	if err := m.repo.Save(ctx, rec); err != nil {
		return username.LinkComponents{}, fmt.Errorf("save account: %w", err)
	}
	if err := m.repo.MarkNeedsSync(ctx); err != nil {
		m.log.Warn("failed to mark account for resync", zap.Error(err))
	}

	m.log.Info("username link rotated")
	return components, nil
}

// DeleteUsernameAndLink removes the username and link from the server and
// clears the local identity fields.
func (m *Manager) DeleteUsernameAndLink(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.client.DeleteUsername(ctx); err != nil {
		m.log.Warn("username deletion failed", zap.Error(err))
		return err
	}

	rec, err := m.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}
	rec.Username = ""
	rec.Link = nil
	rec.SyncState = account.SyncStateInSync
	rec.MismatchCount = 0
	if err := m.repo.Save(ctx, rec); err != nil {
		return fmt.Errorf("save account: %w", err)
	}
	if err := m.repo.MarkNeedsSync(ctx); err != nil {
		m.log.Warn("failed to mark account for resync", zap.Error(err))
	}

	m.log.Info("username and link deleted")
	return nil
}

// FormatCurrentLink renders the stored link as a shareable string.
func (m *Manager) FormatCurrentLink(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, err := m.repo.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("load account: %w", err)
	}
	if rec.Link == nil {
		return "", ErrNoLink
	}
	return username.FormatLink(*rec.Link, m.origin)
}

package identity

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/tkorchagin/namelink/internal/account"
	"github.com/tkorchagin/namelink/internal/client/api"
	"github.com/tkorchagin/namelink/internal/username"
)

// ReclaimResult classifies a reclaim attempt.
type ReclaimResult int

const (
	// ReclaimSuccess: the identity was reclaimed, or there was nothing to do.
	ReclaimSuccess ReclaimResult = iota
	// ReclaimPermanentError: the server will never accept this identity
	// again; the needs-restore flag is cleared and the identity is marked
	// corrupted. No automatic retries.
	ReclaimPermanentError
	// ReclaimNetworkError: transient; the flag stays set so the next cold
	// start retries.
	ReclaimNetworkError
)

// ReclaimIfNecessary re-asserts the cached (username, link) pair against
// the server. It is meant to run once per cold start, typically after
// account metadata was restored from a backup that may predate the server's
// current state. The confirmation reuses the cached link's entropy, so a
// previously shared link keeps decrypting after a successful reclaim.
//
// The returned error covers only local store failures; the classification
// of the server's answer is the ReclaimResult.
func (m *Manager) ReclaimIfNecessary(ctx context.Context) (ReclaimResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, err := m.repo.Load(ctx)
	if err != nil {
		return ReclaimNetworkError, fmt.Errorf("load account: %w", err)
	}

	if !rec.NeedsRestore {
		m.log.Debug("no username restore needed, skipping")
		return ReclaimSuccess, nil
	}

	if rec.Username == "" || rec.Link == nil {
		m.log.Debug("no cached username or link to restore, clearing flag")
		rec.NeedsRestore = false
		if err := m.repo.Save(ctx, rec); err != nil {
			return ReclaimNetworkError, fmt.Errorf("save account: %w", err)
		}
		return ReclaimSuccess, nil
	}

	u, err := username.Parse(rec.Username)
	if err != nil {
		// A cached username that no longer validates can never be
		// reclaimed; treat it like the server refusing it.
		m.log.Warn("cached username failed validation during reclaim", zap.Error(err))
		return m.finishReclaimPermanent(ctx, rec)
	}

	gl, err := u.GenerateLinkWithEntropy(rec.Link.Entropy)
	if err != nil {
		m.log.Warn("cached link entropy unusable during reclaim", zap.Error(err))
		return m.finishReclaimPermanent(ctx, rec)
	}

	serverID, err := m.client.ConfirmUsername(ctx, u.Hash(), gl.EncryptedUsername)
	switch {
	case err == nil:
		m.log.Info("successfully reclaimed username and link")
		rec.NeedsRestore = false
		// The server reassigned the blob; keep the entropy, adopt the id.
		rec.Link = &username.LinkComponents{Entropy: rec.Link.Entropy, ServerID: serverID}
		if err := m.repo.Save(ctx, rec); err != nil {
			return ReclaimNetworkError, fmt.Errorf("save account: %w", err)
		}
		return ReclaimSuccess, nil

	case errors.Is(err, api.ErrReservationInvalid),
		errors.Is(err, api.ErrUsernameGone),
		errors.Is(err, api.ErrUsernameMalformed):
		m.log.Warn("permanently failed to reclaim username and link", zap.Error(err))
		return m.finishReclaimPermanent(ctx, rec)

	default:
		m.log.Warn("transient network error while reclaiming username and link", zap.Error(err))
		return ReclaimNetworkError, nil
	}
}

// finishReclaimPermanent marks the identity corrupted and clears the
// one-shot flag so we do not retry forever.
func (m *Manager) finishReclaimPermanent(ctx context.Context, rec account.Record) (ReclaimResult, error) {
	rec.SyncState = account.SyncStateUsernameAndLinkCorrupted
	rec.MismatchCount = 0
	rec.NeedsRestore = false
	if err := m.repo.Save(ctx, rec); err != nil {
		return ReclaimNetworkError, fmt.Errorf("save account: %w", err)
	}
	return ReclaimPermanentError, nil
}

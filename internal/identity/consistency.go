package identity

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tkorchagin/namelink/internal/account"
)

// mismatchThreshold is how many consecutive mismatch reports it takes to
// mark the identity corrupted. A single mismatch can be a transient race
// (a concurrent rotation from another linked device); only a sustained
// pattern is worth alarming the user about.
const mismatchThreshold = 3

// OnUsernameMismatchDetected records that the cached username disagreed
// with the server. At the threshold the whole identity is marked corrupted:
// a full-identity mismatch makes both fields suspect.
func (m *Manager) OnUsernameMismatchDetected(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, err := m.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}

	rec.MismatchCount++
	if rec.MismatchCount >= mismatchThreshold {
		m.log.Warn("username mismatch threshold reached, marking username and link corrupted",
			zap.Int("mismatches", rec.MismatchCount))
		rec.SyncState = account.SyncStateUsernameAndLinkCorrupted
		rec.MismatchCount = 0
	} else {
		m.log.Warn("username mismatch reported",
			zap.Int("count", rec.MismatchCount), zap.Int("threshold", mismatchThreshold))
	}

	return m.repo.Save(ctx, rec)
}

// OnLinkMismatchDetected records that the cached link disagreed with the
// server. At the threshold the stored link is cleared, so resolving the
// old link fails instead of returning stale data, and a metadata resync
// is requested.
func (m *Manager) OnLinkMismatchDetected(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, err := m.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}

	rec.MismatchCount++
	if rec.MismatchCount >= mismatchThreshold {
		m.log.Warn("link mismatch threshold reached, marking link corrupted",
			zap.Int("mismatches", rec.MismatchCount))
		rec.SyncState = account.SyncStateLinkCorrupted
		rec.Link = nil
		rec.MismatchCount = 0
		if err := m.repo.Save(ctx, rec); err != nil {
			return err
		}
		if err := m.repo.MarkNeedsSync(ctx); err != nil {
			m.log.Warn("failed to mark account for resync", zap.Error(err))
		}
		return nil
	}

	m.log.Warn("link mismatch reported",
		zap.Int("count", rec.MismatchCount), zap.Int("threshold", mismatchThreshold))
	return m.repo.Save(ctx, rec)
}

// OnConsistencyValidated records a successful external consistency check:
// the state machine returns to in-sync and the mismatch counter resets.
// This is the only way out of a corrupted state besides a successful
// confirmation, display update, or rotation.
func (m *Manager) OnConsistencyValidated(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, err := m.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}

	rec.SyncState = account.SyncStateInSync
	if rec.MismatchCount > 0 {
		m.log.Info("username consistency validated after prior mismatches",
			zap.Int("previous_mismatches", rec.MismatchCount))
		rec.MismatchCount = 0
	}

	return m.repo.Save(ctx, rec)
}

// SyncState reports the current consistency state for UI collaborators.
func (m *Manager) SyncState(ctx context.Context) (account.SyncState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, err := m.repo.Load(ctx)
	if err != nil {
		return account.SyncStateInSync, fmt.Errorf("load account: %w", err)
	}
	return rec.SyncState, nil
}

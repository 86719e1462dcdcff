package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tkorchagin/namelink/internal/client/api"
	"github.com/tkorchagin/namelink/internal/cryptox"
	"github.com/tkorchagin/namelink/internal/username"
)

// Resolution is the outcome of resolving a link or username to an account.
// On api.ErrNotFound the Username field may still carry the decrypted
// username: a stale-but-valid link decrypts fine even though nobody owns
// the name anymore, and callers want to show what was decrypted.
type Resolution struct {
	Username  string
	AccountID uuid.UUID
}

// ResolveLink resolves a link found in the wild to a (username, account id)
// pair via two sequential lookups: blob fetch + decrypt, then account
// lookup by hash.
//
// Outcomes:
//   - nil error: both hops succeeded.
//   - username.ErrLinkInvalid: malformed link, or the blob did not decrypt
//     under the link's entropy. Terminal.
//   - api.ErrNotFound: the server id is unknown, or nobody owns the
//     decrypted username. Terminal; see Resolution.Username.
//   - anything else: network-class, retryable.
//
// Foreign-link resolution is read-only and takes no lock.
func (m *Manager) ResolveLink(ctx context.Context, link string) (Resolution, error) {
	components, err := username.ParseLink(link)
	if err != nil {
		return Resolution{}, username.ErrLinkInvalid
	}

	blob, err := m.client.GetUsernameLinkBlob(ctx, components.ServerID)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return Resolution{}, api.ErrNotFound
		}
		return Resolution{}, fmt.Errorf("fetch link blob: %w", err)
	}

	display, err := cryptox.DecryptUsername(components.Entropy, blob)
	if err != nil {
		m.log.Warn("link blob failed to decrypt", zap.Error(err))
		return Resolution{}, username.ErrLinkInvalid
	}

	u, err := username.Parse(display)
	if err != nil {
		m.log.Warn("decrypted link blob is not a valid username", zap.Error(err))
		return Resolution{}, username.ErrLinkInvalid
	}

	accountID, err := m.client.LookupAccountByHash(ctx, u.Hash())
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			// Stale but valid link: decryption worked, the name is unowned.
			return Resolution{Username: display}, api.ErrNotFound
		}
		return Resolution{}, fmt.Errorf("lookup account: %w", err)
	}

	return Resolution{Username: display, AccountID: accountID}, nil
}

// LookupByUsername resolves a plain username string to the owning account.
func (m *Manager) LookupByUsername(ctx context.Context, s string) (uuid.UUID, error) {
	u, err := username.Parse(s)
	if err != nil {
		return uuid.Nil, err
	}
	return m.client.LookupAccountByHash(ctx, u.Hash())
}

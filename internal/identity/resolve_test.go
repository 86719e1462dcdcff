package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkorchagin/namelink/internal/client/api"
	"github.com/tkorchagin/namelink/internal/cryptox"
	"github.com/tkorchagin/namelink/internal/username"
)

// linkFixture builds a valid link string plus the blob its entropy decrypts.
func linkFixture(t *testing.T, display string) (string, []byte) {
	t.Helper()
	entropy := mustEntropy(t)
	blob, err := cryptox.EncryptUsername(entropy, display)
	require.NoError(t, err)
	link, err := username.FormatLink(username.LinkComponents{Entropy: entropy, ServerID: uuid.New()}, "")
	require.NoError(t, err)
	return link, blob
}

func TestResolveLink_MalformedLink(t *testing.T) {
	mgr := newTestManager(&fakeRepo{}, &fakeClient{})

	_, err := mgr.ResolveLink(context.Background(), "https://nl.example.com/#eu/short")
	assert.ErrorIs(t, err, username.ErrLinkInvalid)
}

func TestResolveLink_ServerIDUnknown(t *testing.T) {
	link, _ := linkFixture(t, "alice.07")
	client := &fakeClient{
		GetUsernameLinkBlobFunc: func(context.Context, uuid.UUID) ([]byte, error) {
			return nil, api.ErrNotFound
		},
	}
	mgr := newTestManager(&fakeRepo{}, client)

	res, err := mgr.ResolveLink(context.Background(), link)
	assert.ErrorIs(t, err, api.ErrNotFound)
	assert.Empty(t, res.Username)
}

func TestResolveLink_ForeignBlobIsInvalid(t *testing.T) {
	// The blob at the server id was encrypted under different entropy:
	// terminal "invalid", not "not found".
	link, _ := linkFixture(t, "alice.07")
	_, foreignBlob := linkFixture(t, "mallory.99")
	client := &fakeClient{
		GetUsernameLinkBlobFunc: func(context.Context, uuid.UUID) ([]byte, error) {
			return foreignBlob, nil
		},
	}
	mgr := newTestManager(&fakeRepo{}, client)

	_, err := mgr.ResolveLink(context.Background(), link)
	assert.ErrorIs(t, err, username.ErrLinkInvalid)
}

func TestResolveLink_StaleLinkCarriesUsername(t *testing.T) {
	entropy := mustEntropy(t)
	blob, err := cryptox.EncryptUsername(entropy, "alice.07")
	require.NoError(t, err)
	link, err := username.FormatLink(username.LinkComponents{Entropy: entropy, ServerID: uuid.New()}, "")
	require.NoError(t, err)

	client := &fakeClient{
		GetUsernameLinkBlobFunc: func(context.Context, uuid.UUID) ([]byte, error) {
			return blob, nil
		},
		LookupAccountByHashFunc: func(context.Context, []byte) (uuid.UUID, error) {
			return uuid.Nil, api.ErrNotFound
		},
	}
	mgr := newTestManager(&fakeRepo{}, client)

	res, err := mgr.ResolveLink(context.Background(), link)
	assert.ErrorIs(t, err, api.ErrNotFound)
	assert.Equal(t, "alice.07", res.Username,
		"callers still get to show what the stale link decrypted to")
}

func TestResolveLink_NetworkErrorsAreRetryable(t *testing.T) {
	link, _ := linkFixture(t, "alice.07")
	netErr := errors.New("timeout")
	client := &fakeClient{
		GetUsernameLinkBlobFunc: func(context.Context, uuid.UUID) ([]byte, error) {
			return nil, netErr
		},
	}
	mgr := newTestManager(&fakeRepo{}, client)

	_, err := mgr.ResolveLink(context.Background(), link)
	assert.ErrorIs(t, err, netErr)
	assert.False(t, errors.Is(err, username.ErrLinkInvalid))
	assert.False(t, errors.Is(err, api.ErrNotFound))
}

func TestLookupByUsername(t *testing.T) {
	accountID := uuid.New()
	client := &fakeClient{
		LookupAccountByHashFunc: func(context.Context, []byte) (uuid.UUID, error) {
			return accountID, nil
		},
	}
	mgr := newTestManager(&fakeRepo{}, client)

	got, err := mgr.LookupByUsername(context.Background(), "alice.07")
	require.NoError(t, err)
	assert.Equal(t, accountID, got)

	_, err = mgr.LookupByUsername(context.Background(), "not a username")
	assert.ErrorIs(t, err, username.ErrMissingSeparator)
}

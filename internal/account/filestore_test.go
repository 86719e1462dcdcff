package account

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkorchagin/namelink/internal/username"
)

func TestFileStore_MissingFileIsEmptyRecord(t *testing.T) {
	fs := NewFileStore(filepath.Join(t.TempDir(), "state.json"))

	rec, err := fs.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Record{}, rec)
}

func TestFileStore_SaveLoadRoundTrip(t *testing.T) {
	fs := NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	ctx := context.Background()

	entropy := make([]byte, username.EntropyLength)
	for i := range entropy {
		entropy[i] = byte(i)
	}
	want := Record{
		Username: "Alice.07",
		Link: &username.LinkComponents{
			Entropy:  entropy,
			ServerID: uuid.New(),
		},
		SyncState:     SyncStateLinkCorrupted,
		MismatchCount: 2,
		NeedsRestore:  true,
	}

	require.NoError(t, fs.Save(ctx, want))

	got, err := fs.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFileStore_MarkNeedsSync(t *testing.T) {
	fs := NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	ctx := context.Background()

	pending, err := fs.PendingSync()
	require.NoError(t, err)
	assert.False(t, pending)

	require.NoError(t, fs.Save(ctx, Record{Username: "alice.07"}))
	require.NoError(t, fs.MarkNeedsSync(ctx))

	pending, err = fs.PendingSync()
	require.NoError(t, err)
	assert.True(t, pending)

	// Marking must not clobber the record.
	rec, err := fs.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice.07", rec.Username)
}

func TestSyncState_String(t *testing.T) {
	assert.Equal(t, "in_sync", SyncStateInSync.String())
	assert.Equal(t, "link_corrupted", SyncStateLinkCorrupted.String())
	assert.Equal(t, "username_and_link_corrupted", SyncStateUsernameAndLinkCorrupted.String())
}

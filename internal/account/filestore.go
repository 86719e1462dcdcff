package account

import (
	"context"
	"encoding/json"
	"os"
	"sync"
)

// fileState is the on-disk layout: the record plus the pending-sync marker.
type fileState struct {
	Record    Record `json:"record"`
	NeedsSync bool   `json:"needs_sync"`
}

// FileStore is a JSON-file Repository used by the CLI client. A missing
// file reads as an empty record.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a store backed by the given file path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (fs *FileStore) Load(_ context.Context) (Record, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	st, err := fs.read()
	if err != nil {
		return Record{}, err
	}
	return st.Record, nil
}

func (fs *FileStore) Save(_ context.Context, rec Record) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	st, err := fs.read()
	if err != nil {
		return err
	}
	st.Record = rec
	return fs.write(st)
}

// MarkNeedsSync records that account metadata changed since the last
// propagation. The CLI has no storage-sync backend, so the marker is only
// persisted for inspection.
func (fs *FileStore) MarkNeedsSync(_ context.Context) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	st, err := fs.read()
	if err != nil {
		return err
	}
	st.NeedsSync = true
	return fs.write(st)
}

// PendingSync reports whether MarkNeedsSync was called since the last clear.
func (fs *FileStore) PendingSync() (bool, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	st, err := fs.read()
	if err != nil {
		return false, err
	}
	return st.NeedsSync, nil
}

func (fs *FileStore) read() (fileState, error) {
	var st fileState
	data, err := os.ReadFile(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			return st, nil
		}
		return st, err
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return fileState{}, err
	}
	return st, nil
}

func (fs *FileStore) write(st fileState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return os.WriteFile(fs.path, data, 0o600)
}

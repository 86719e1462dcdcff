// Package service provides the directory business logic, delegating
// persistence to a DirectoryRepository.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tkorchagin/namelink/internal/models"
)

// DirectoryRepository defines the persistence operations required by the
// directory service.
type DirectoryRepository interface {
	// EnsureAccount creates the account row if missing.
	EnsureAccount(ctx context.Context, accountID uuid.UUID) error
	// ReserveFirstAvailable reserves the first available hash of an ordered
	// list until the given deadline and returns it.
	ReserveFirstAvailable(ctx context.Context, accountID uuid.UUID, hashes [][]byte, until time.Time) ([]byte, error)
	// Confirm finalizes a reserved hash and installs a fresh link blob.
	Confirm(ctx context.Context, accountID uuid.UUID, hash, blob []byte) (uuid.UUID, error)
	// CreateLink replaces the account's link with a new server id.
	CreateLink(ctx context.Context, accountID uuid.UUID, blob []byte) (uuid.UUID, error)
	// UpdateLinkBlob swaps the blob at an existing server id.
	UpdateLinkBlob(ctx context.Context, accountID, serverID uuid.UUID, blob []byte) error
	// GetLinkBlob fetches the blob stored at a server id.
	GetLinkBlob(ctx context.Context, serverID uuid.UUID) ([]byte, error)
	// LookupAccountByHash resolves a confirmed hash to its account.
	LookupAccountByHash(ctx context.Context, hash []byte) (uuid.UUID, error)
	// DeleteUsername removes the account's username and link.
	DeleteUsername(ctx context.Context, accountID uuid.UUID) error
}

// DirectoryService implements the username directory operations by
// validating requests and delegating to a DirectoryRepository.
type DirectoryService struct {
	repo DirectoryRepository
	ttl  time.Duration
}

// NewDirectoryService constructs a DirectoryService using the provided
// repository. A non-positive ttl falls back to models.ReservationTTL.
func NewDirectoryService(repo DirectoryRepository, ttl time.Duration) *DirectoryService {
	if ttl <= 0 {
		ttl = models.ReservationTTL
	}
	return &DirectoryService{repo: repo, ttl: ttl}
}

// Reserve validates the candidate hash list and reserves the first
// available hash for the account.
func (s *DirectoryService) Reserve(ctx context.Context, accountID uuid.UUID, hashes [][]byte) ([]byte, error) {
	if err := validateHashes(hashes); err != nil {
		return nil, err
	}
	if err := s.repo.EnsureAccount(ctx, accountID); err != nil {
		return nil, err
	}
	return s.repo.ReserveFirstAvailable(ctx, accountID, hashes, time.Now().Add(s.ttl))
}

// Confirm finalizes a reservation and installs the link blob atomically.
func (s *DirectoryService) Confirm(ctx context.Context, accountID uuid.UUID, hash, blob []byte) (uuid.UUID, error) {
	if err := validateHash(hash); err != nil {
		return uuid.Nil, err
	}
	if len(blob) == 0 {
		return uuid.Nil, models.ErrMalformedHash
	}
	return s.repo.Confirm(ctx, accountID, hash, blob)
}

// CreateLink rotates the account's link.
func (s *DirectoryService) CreateLink(ctx context.Context, accountID uuid.UUID, blob []byte) (uuid.UUID, error) {
	if len(blob) == 0 {
		return uuid.Nil, models.ErrMalformedHash
	}
	return s.repo.CreateLink(ctx, accountID, blob)
}

// UpdateLink swaps the blob at an existing server id.
func (s *DirectoryService) UpdateLink(ctx context.Context, accountID, serverID uuid.UUID, blob []byte) error {
	if len(blob) == 0 {
		return models.ErrMalformedHash
	}
	return s.repo.UpdateLinkBlob(ctx, accountID, serverID, blob)
}

// GetLinkBlob fetches the blob stored at a server id.
func (s *DirectoryService) GetLinkBlob(ctx context.Context, serverID uuid.UUID) ([]byte, error) {
	return s.repo.GetLinkBlob(ctx, serverID)
}

// Lookup resolves a confirmed username hash to the owning account.
func (s *DirectoryService) Lookup(ctx context.Context, hash []byte) (uuid.UUID, error) {
	if err := validateHash(hash); err != nil {
		return uuid.Nil, err
	}
	return s.repo.LookupAccountByHash(ctx, hash)
}

// Delete removes the account's username and link.
func (s *DirectoryService) Delete(ctx context.Context, accountID uuid.UUID) error {
	return s.repo.DeleteUsername(ctx, accountID)
}

func validateHashes(hashes [][]byte) error {
	if len(hashes) == 0 || len(hashes) > models.MaxReserveCandidates {
		return models.ErrMalformedHash
	}
	for _, h := range hashes {
		if err := validateHash(h); err != nil {
			return err
		}
	}
	return nil
}

func validateHash(hash []byte) error {
	if len(hash) != models.UsernameHashSize {
		return models.ErrMalformedHash
	}
	return nil
}

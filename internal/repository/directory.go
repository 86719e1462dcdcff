// Package repository provides the PostgreSQL persistence layer of the
// username directory: hashed reservations, confirmed claims, and encrypted
// link blobs.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tkorchagin/namelink/internal/models"
)

// PostgresDirectoryRepository implements the directory's storage operations
// against a PostgreSQL database.
type PostgresDirectoryRepository struct {
	// DB is the database handle for executing queries and transactions.
	DB *sql.DB
}

// NewPostgresDirectoryRepository creates a repository using the provided *sql.DB.
// db must be a valid connection to a PostgreSQL instance.
func NewPostgresDirectoryRepository(db *sql.DB) *PostgresDirectoryRepository {
	return &PostgresDirectoryRepository{DB: db}
}

// EnsureAccount creates the account row if it does not exist yet.
func (r *PostgresDirectoryRepository) EnsureAccount(ctx context.Context, accountID uuid.UUID) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO accounts (id) VALUES ($1) ON CONFLICT DO NOTHING`,
		accountID,
	)
	if err != nil {
		return fmt.Errorf("EnsureAccount failed: %w", err)
	}
	return nil
}

// ReserveFirstAvailable walks the ordered hash list and reserves the first
// hash that is free, expired, or already held by this account. It returns
// the reserved hash, or models.ErrUsernameTaken when every candidate is
// held by someone else.
func (r *PostgresDirectoryRepository) ReserveFirstAvailable(ctx context.Context, accountID uuid.UUID, hashes [][]byte, until time.Time) ([]byte, error) {
	for _, hash := range hashes {
		res, err := r.DB.ExecContext(ctx, `
			INSERT INTO usernames (hash, account_id, confirmed, reserved_until)
			VALUES ($1, $2, false, $3)
			ON CONFLICT (hash) DO UPDATE
			   SET account_id = $2, reserved_until = $3
			 WHERE usernames.confirmed = false
			   AND (usernames.reserved_until < NOW() OR usernames.account_id = $2)
		`, hash, accountID, until)
		if err != nil {
			return nil, fmt.Errorf("ReserveFirstAvailable failed: %w", err)
		}
		if rows, err := res.RowsAffected(); err == nil && rows > 0 {
			return hash, nil
		}
	}
	return nil, models.ErrUsernameTaken
}

// Confirm finalizes the reservation for hash, replaces the account's link
// with a fresh server id holding blob, and frees any previously confirmed
// username of the account. Returns the new server id.
//
// Outcomes mirror the wire contract: a hash held by another account (or
// missing entirely) is models.ErrUsernameGone; an expired reservation is
// models.ErrReservationInvalid. A hash this account already confirmed may
// be re-confirmed, which is what the client's reclaim flow relies on.
func (r *PostgresDirectoryRepository) Confirm(ctx context.Context, accountID uuid.UUID, hash, blob []byte) (uuid.UUID, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("Confirm begin failed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var (
		owner         uuid.UUID
		confirmed     bool
		reservedUntil sql.NullTime
	)
	err = tx.QueryRowContext(ctx, `
		SELECT account_id, confirmed, reserved_until
		  FROM usernames
		 WHERE hash = $1
		   FOR UPDATE
	`, hash).Scan(&owner, &confirmed, &reservedUntil)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, models.ErrUsernameGone
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("Confirm lookup failed: %w", err)
	}

	switch {
	case owner != accountID:
		if confirmed {
			return uuid.Nil, models.ErrUsernameGone
		}
		return uuid.Nil, models.ErrReservationInvalid
	case !confirmed && reservedUntil.Valid && reservedUntil.Time.Before(time.Now()):
		return uuid.Nil, models.ErrReservationInvalid
	}

	// Free any other username this account held and finalize this one.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM usernames WHERE account_id = $1 AND hash <> $2`,
		accountID, hash,
	); err != nil {
		return uuid.Nil, fmt.Errorf("Confirm cleanup failed: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE usernames SET confirmed = true, reserved_until = NULL WHERE hash = $1`,
		hash,
	); err != nil {
		return uuid.Nil, fmt.Errorf("Confirm update failed: %w", err)
	}

	serverID, err := r.replaceLink(ctx, tx, accountID, blob)
	if err != nil {
		return uuid.Nil, err
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("Confirm commit failed: %w", err)
	}
	return serverID, nil
}

// CreateLink rotates the account's link: the old row is dropped and a new
// server id holding blob is inserted. Requires a confirmed username.
func (r *PostgresDirectoryRepository) CreateLink(ctx context.Context, accountID uuid.UUID, blob []byte) (uuid.UUID, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("CreateLink begin failed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM usernames WHERE account_id = $1 AND confirmed = true)`,
		accountID,
	).Scan(&exists)
	if err != nil {
		return uuid.Nil, fmt.Errorf("CreateLink lookup failed: %w", err)
	}
	if !exists {
		return uuid.Nil, models.ErrNotFound
	}

	serverID, err := r.replaceLink(ctx, tx, accountID, blob)
	if err != nil {
		return uuid.Nil, err
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("CreateLink commit failed: %w", err)
	}
	return serverID, nil
}

// UpdateLinkBlob swaps the blob stored at serverID without changing the id.
// Returns models.ErrNotFound when the id does not exist or belongs to a
// different account.
func (r *PostgresDirectoryRepository) UpdateLinkBlob(ctx context.Context, accountID, serverID uuid.UUID, blob []byte) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE username_links SET blob = $1 WHERE server_id = $2 AND account_id = $3`,
		blob, serverID, accountID,
	)
	if err != nil {
		return fmt.Errorf("UpdateLinkBlob failed: %w", err)
	}
	if rows, err := res.RowsAffected(); err != nil || rows == 0 {
		return models.ErrNotFound
	}
	return nil
}

// GetLinkBlob fetches the encrypted blob stored at serverID.
func (r *PostgresDirectoryRepository) GetLinkBlob(ctx context.Context, serverID uuid.UUID) ([]byte, error) {
	var blob []byte
	err := r.DB.QueryRowContext(ctx,
		`SELECT blob FROM username_links WHERE server_id = $1`,
		serverID,
	).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetLinkBlob failed: %w", err)
	}
	return blob, nil
}

// LookupAccountByHash resolves a confirmed username hash to its account.
func (r *PostgresDirectoryRepository) LookupAccountByHash(ctx context.Context, hash []byte) (uuid.UUID, error) {
	var accountID uuid.UUID
	err := r.DB.QueryRowContext(ctx,
		`SELECT account_id FROM usernames WHERE hash = $1 AND confirmed = true`,
		hash,
	).Scan(&accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, models.ErrNotFound
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("LookupAccountByHash failed: %w", err)
	}
	return accountID, nil
}

// DeleteUsername drops the account's username rows and link.
func (r *PostgresDirectoryRepository) DeleteUsername(ctx context.Context, accountID uuid.UUID) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("DeleteUsername begin failed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM usernames WHERE account_id = $1`, accountID,
	); err != nil {
		return fmt.Errorf("DeleteUsername failed: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM username_links WHERE account_id = $1`, accountID,
	); err != nil {
		return fmt.Errorf("DeleteUsername link cleanup failed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("DeleteUsername commit failed: %w", err)
	}
	return nil
}

// replaceLink deletes the account's current link row and inserts a new one.
func (r *PostgresDirectoryRepository) replaceLink(ctx context.Context, tx *sql.Tx, accountID uuid.UUID, blob []byte) (uuid.UUID, error) {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM username_links WHERE account_id = $1`, accountID,
	); err != nil {
		return uuid.Nil, fmt.Errorf("replace link cleanup failed: %w", err)
	}

	serverID := uuid.New()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO username_links (server_id, account_id, blob) VALUES ($1, $2, $3)`,
		serverID, accountID, blob,
	); err != nil {
		return uuid.Nil, fmt.Errorf("replace link insert failed: %w", err)
	}
	return serverID, nil
}

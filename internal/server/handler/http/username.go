// Package http provides HTTP handlers for the username directory API:
// hashed reservation, confirmation, link management, and resolution.
package http

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tkorchagin/namelink/internal/middleware"
	"github.com/tkorchagin/namelink/internal/models"
)

// DirectoryService defines the directory operations required by the HTTP
// handlers.
type DirectoryService interface {
	// Reserve reserves the first available hash of an ordered candidate list.
	Reserve(ctx context.Context, accountID uuid.UUID, hashes [][]byte) ([]byte, error)
	// Confirm finalizes a reserved hash and installs a fresh link blob.
	Confirm(ctx context.Context, accountID uuid.UUID, hash, blob []byte) (uuid.UUID, error)
	// CreateLink rotates the account's link.
	CreateLink(ctx context.Context, accountID uuid.UUID, blob []byte) (uuid.UUID, error)
	// UpdateLink swaps the blob at an existing server id.
	UpdateLink(ctx context.Context, accountID, serverID uuid.UUID, blob []byte) error
	// GetLinkBlob fetches the blob stored at a server id.
	GetLinkBlob(ctx context.Context, serverID uuid.UUID) ([]byte, error)
	// Lookup resolves a confirmed username hash to the owning account.
	Lookup(ctx context.Context, hash []byte) (uuid.UUID, error)
	// Delete removes the account's username and link.
	Delete(ctx context.Context, accountID uuid.UUID) error
}

// UsernameHandler handles HTTP requests for the username directory.
type UsernameHandler struct {
	// Service performs the underlying directory operations.
	Service DirectoryService
	// Log is used for request-scoped warnings.
	Log *zap.Logger
}

// ReserveRequest is the JSON payload for a reservation: the ordered
// candidate hash list.
type ReserveRequest struct {
	UsernameHashes [][]byte `json:"username_hashes"`
}

// ConfirmRequest is the JSON payload for confirming a reserved hash along
// with the encrypted blob of the fresh link.
type ConfirmRequest struct {
	UsernameHash      []byte `json:"username_hash"`
	EncryptedUsername []byte `json:"encrypted_username"`
}

// LinkRequest carries an encrypted username blob for link create/update.
type LinkRequest struct {
	EncryptedUsername []byte `json:"encrypted_username"`
}

// Reserve handles PUT /api/v1/username/reserve.
// It responds 200 with the chosen hash, 409 when every candidate is taken,
// and 422 when the hash list is malformed.
func (h *UsernameHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.GetAccountIDFromContext(r.Context())

	var req ReserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	chosen, err := h.Service.Reserve(r.Context(), accountID, req.UsernameHashes)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, map[string]any{"username_hash": chosen})
}

// Confirm handles PUT /api/v1/username/confirm.
// It responds 200 with the new link's server id, 409 when the reservation
// is invalid or expired, and 410 when the username is gone.
func (h *UsernameHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.GetAccountIDFromContext(r.Context())

	var req ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	serverID, err := h.Service.Confirm(r.Context(), accountID, req.UsernameHash, req.EncryptedUsername)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, map[string]any{"server_id": serverID})
}

// CreateLink handles POST /api/v1/username/link, rotating the account's
// link and returning the new server id.
func (h *UsernameHandler) CreateLink(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.GetAccountIDFromContext(r.Context())

	var req LinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	serverID, err := h.Service.CreateLink(r.Context(), accountID, req.EncryptedUsername)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, map[string]any{"server_id": serverID})
}

// UpdateLink handles PUT /api/v1/username/link/{serverID}, replacing only
// the encrypted blob at an existing server id.
func (h *UsernameHandler) UpdateLink(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.GetAccountIDFromContext(r.Context())

	serverID, err := uuid.Parse(chi.URLParam(r, "serverID"))
	if err != nil {
		http.Error(w, "invalid server id", http.StatusBadRequest)
		return
	}

	var req LinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	if err := h.Service.UpdateLink(r.Context(), accountID, serverID, req.EncryptedUsername); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetLinkBlob handles GET /api/v1/username/link/{serverID}. Public: the
// blob is opaque without the link's entropy.
func (h *UsernameHandler) GetLinkBlob(w http.ResponseWriter, r *http.Request) {
	serverID, err := uuid.Parse(chi.URLParam(r, "serverID"))
	if err != nil {
		http.Error(w, "invalid server id", http.StatusBadRequest)
		return
	}

	blob, err := h.Service.GetLinkBlob(r.Context(), serverID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, map[string]any{"encrypted_username": blob})
}

// Lookup handles GET /api/v1/username/lookup/{hash}. The hash travels
// base64url-encoded without padding.
func (h *UsernameHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	hash, err := base64.RawURLEncoding.DecodeString(chi.URLParam(r, "hash"))
	if err != nil {
		http.Error(w, "invalid username hash", http.StatusUnprocessableEntity)
		return
	}

	accountID, err := h.Service.Lookup(r.Context(), hash)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, map[string]any{"account_id": accountID})
}

// Delete handles DELETE /api/v1/username.
func (h *UsernameHandler) Delete(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.GetAccountIDFromContext(r.Context())

	if err := h.Service.Delete(r.Context(), accountID); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// writeError maps directory errors onto the wire contract's status codes.
func (h *UsernameHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrUsernameTaken):
		http.Error(w, "username taken", http.StatusConflict)
	case errors.Is(err, models.ErrReservationInvalid):
		http.Error(w, "reservation invalid", http.StatusConflict)
	case errors.Is(err, models.ErrUsernameGone):
		http.Error(w, "username gone", http.StatusGone)
	case errors.Is(err, models.ErrMalformedHash):
		http.Error(w, "malformed username hash", http.StatusUnprocessableEntity)
	case errors.Is(err, models.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	default:
		h.Log.Error("directory operation failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

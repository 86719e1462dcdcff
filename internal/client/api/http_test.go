package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubServer answers every request with the given status and body and
// records what it saw.
func stubServer(t *testing.T, status int, body any) (*httptest.Server, *http.Request, *[]byte) {
	t.Helper()
	var gotReq http.Request
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReq = *r
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(status)
		if body != nil {
			json.NewEncoder(w).Encode(body)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &gotReq, &gotBody
}

func TestReserveUsername_Success(t *testing.T) {
	hash := make([]byte, 32)
	hash[0] = 0xAB
	srv, gotReq, gotBody := stubServer(t, http.StatusOK, reserveResponse{UsernameHash: hash})
	accountID := uuid.New()
	c := NewHTTPClient(srv.URL, accountID, nil)

	got, err := c.ReserveUsername(context.Background(), [][]byte{hash})
	require.NoError(t, err)
	assert.Equal(t, hash, got)

	assert.Equal(t, http.MethodPut, gotReq.Method)
	assert.Equal(t, "/api/v1/username/reserve", gotReq.URL.Path)
	assert.Equal(t, accountID.String(), gotReq.Header.Get(AccountHeader))
	var req reserveRequest
	require.NoError(t, json.Unmarshal(*gotBody, &req))
	require.Len(t, req.UsernameHashes, 1)
	assert.Equal(t, hash, req.UsernameHashes[0])
}

func TestReserveUsername_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusConflict, ErrUsernameTaken},
		{http.StatusUnprocessableEntity, ErrUsernameMalformed},
		{http.StatusTooManyRequests, ErrRateLimited},
	}
	for _, tt := range tests {
		srv, _, _ := stubServer(t, tt.status, nil)
		c := NewHTTPClient(srv.URL, uuid.New(), nil)
		_, err := c.ReserveUsername(context.Background(), [][]byte{make([]byte, 32)})
		assert.ErrorIs(t, err, tt.want, "status %d", tt.status)
	}
}

func TestConfirmUsername_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusConflict, ErrReservationInvalid},
		{http.StatusGone, ErrUsernameGone},
		{http.StatusUnprocessableEntity, ErrUsernameMalformed},
		{http.StatusTooManyRequests, ErrRateLimited},
	}
	for _, tt := range tests {
		srv, _, _ := stubServer(t, tt.status, nil)
		c := NewHTTPClient(srv.URL, uuid.New(), nil)
		_, err := c.ConfirmUsername(context.Background(), make([]byte, 32), []byte("blob"))
		assert.ErrorIs(t, err, tt.want, "status %d", tt.status)
	}
}

func TestConfirmUsername_ReturnsServerID(t *testing.T) {
	serverID := uuid.New()
	srv, gotReq, _ := stubServer(t, http.StatusOK, serverIDResponse{ServerID: serverID})
	c := NewHTTPClient(srv.URL, uuid.New(), nil)

	got, err := c.ConfirmUsername(context.Background(), make([]byte, 32), []byte("blob"))
	require.NoError(t, err)
	assert.Equal(t, serverID, got)
	assert.Equal(t, "/api/v1/username/confirm", gotReq.URL.Path)
}

func TestCreateAndUpdateLink(t *testing.T) {
	serverID := uuid.New()
	srv, gotReq, _ := stubServer(t, http.StatusOK, serverIDResponse{ServerID: serverID})
	c := NewHTTPClient(srv.URL, uuid.New(), nil)

	got, err := c.CreateUsernameLink(context.Background(), []byte("blob"))
	require.NoError(t, err)
	assert.Equal(t, serverID, got)
	assert.Equal(t, http.MethodPost, gotReq.Method)

	require.NoError(t, c.UpdateUsernameLink(context.Background(), serverID, []byte("blob2")))
	assert.Equal(t, http.MethodPut, gotReq.Method)
	assert.Equal(t, "/api/v1/username/link/"+serverID.String(), gotReq.URL.Path)
}

func TestGetUsernameLinkBlob(t *testing.T) {
	srv, _, _ := stubServer(t, http.StatusOK, linkBlobResponse{EncryptedUsername: []byte("ciphertext")})
	c := NewHTTPClient(srv.URL, uuid.New(), nil)

	blob, err := c.GetUsernameLinkBlob(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, []byte("ciphertext"), blob)

	srv404, _, _ := stubServer(t, http.StatusNotFound, nil)
	c404 := NewHTTPClient(srv404.URL, uuid.New(), nil)
	_, err = c404.GetUsernameLinkBlob(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLookupAccountByHash(t *testing.T) {
	accountID := uuid.New()
	hash := make([]byte, 32)
	hash[31] = 0x01
	srv, gotReq, _ := stubServer(t, http.StatusOK, lookupResponse{AccountID: accountID})
	c := NewHTTPClient(srv.URL, uuid.New(), nil)

	got, err := c.LookupAccountByHash(context.Background(), hash)
	require.NoError(t, err)
	assert.Equal(t, accountID, got)
	assert.Equal(t, http.MethodGet, gotReq.Method)
	assert.Equal(t,
		"/api/v1/username/lookup/"+base64.RawURLEncoding.EncodeToString(hash),
		gotReq.URL.Path, "hash travels base64url unpadded in the path")
}

func TestDeleteUsername(t *testing.T) {
	srv, gotReq, _ := stubServer(t, http.StatusOK, nil)
	c := NewHTTPClient(srv.URL, uuid.New(), nil)

	require.NoError(t, c.DeleteUsername(context.Background()))
	assert.Equal(t, http.MethodDelete, gotReq.Method)
	assert.Equal(t, "/api/v1/username", gotReq.URL.Path)
}

func TestUnexpectedStatusIsNotASentinel(t *testing.T) {
	srv, _, _ := stubServer(t, http.StatusInternalServerError, nil)
	c := NewHTTPClient(srv.URL, uuid.New(), nil)

	err := c.DeleteUsername(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRateLimited)
	assert.Contains(t, err.Error(), "500")
}

package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
)

// AccountHeader carries the caller's account id on authenticated routes.
const AccountHeader = "X-Account-ID"

// HTTPClient is the JSON-over-HTTP implementation of Client, speaking to
// the directory server in this repo.
type HTTPClient struct {
	baseURL   string
	accountID uuid.UUID
	client    *http.Client
}

// NewHTTPClient builds a client for the directory service at baseURL,
// authenticating as accountID. A nil httpClient uses http.DefaultClient;
// callers impose timeouts there.
func NewHTTPClient(baseURL string, accountID uuid.UUID, httpClient *http.Client) *HTTPClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPClient{baseURL: baseURL, accountID: accountID, client: httpClient}
}

type reserveRequest struct {
	UsernameHashes [][]byte `json:"username_hashes"`
}

type reserveResponse struct {
	UsernameHash []byte `json:"username_hash"`
}

type confirmRequest struct {
	UsernameHash      []byte `json:"username_hash"`
	EncryptedUsername []byte `json:"encrypted_username"`
}

type linkRequest struct {
	EncryptedUsername []byte `json:"encrypted_username"`
}

type serverIDResponse struct {
	ServerID uuid.UUID `json:"server_id"`
}

type linkBlobResponse struct {
	EncryptedUsername []byte `json:"encrypted_username"`
}

type lookupResponse struct {
	AccountID uuid.UUID `json:"account_id"`
}

func (c *HTTPClient) ReserveUsername(ctx context.Context, hashes [][]byte) ([]byte, error) {
	var resp reserveResponse
	err := c.do(ctx, http.MethodPut, "/api/v1/username/reserve", reserveRequest{UsernameHashes: hashes}, &resp, map[int]error{
		http.StatusConflict:            ErrUsernameTaken,
		http.StatusUnprocessableEntity: ErrUsernameMalformed,
		http.StatusTooManyRequests:     ErrRateLimited,
	})
	if err != nil {
		return nil, err
	}
	return resp.UsernameHash, nil
}

func (c *HTTPClient) ConfirmUsername(ctx context.Context, hash, encryptedUsername []byte) (uuid.UUID, error) {
	var resp serverIDResponse
	err := c.do(ctx, http.MethodPut, "/api/v1/username/confirm", confirmRequest{UsernameHash: hash, EncryptedUsername: encryptedUsername}, &resp, map[int]error{
		http.StatusConflict:            ErrReservationInvalid,
		http.StatusGone:                ErrUsernameGone,
		http.StatusUnprocessableEntity: ErrUsernameMalformed,
		http.StatusTooManyRequests:     ErrRateLimited,
	})
	if err != nil {
		return uuid.Nil, err
	}
	return resp.ServerID, nil
}

func (c *HTTPClient) CreateUsernameLink(ctx context.Context, encryptedUsername []byte) (uuid.UUID, error) {
	var resp serverIDResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/username/link", linkRequest{EncryptedUsername: encryptedUsername}, &resp, map[int]error{
		http.StatusNotFound:        ErrNotFound,
		http.StatusTooManyRequests: ErrRateLimited,
	})
	if err != nil {
		return uuid.Nil, err
	}
	return resp.ServerID, nil
}

func (c *HTTPClient) UpdateUsernameLink(ctx context.Context, serverID uuid.UUID, encryptedUsername []byte) error {
	return c.do(ctx, http.MethodPut, "/api/v1/username/link/"+serverID.String(), linkRequest{EncryptedUsername: encryptedUsername}, nil, map[int]error{
		http.StatusNotFound:        ErrNotFound,
		http.StatusTooManyRequests: ErrRateLimited,
	})
}

func (c *HTTPClient) GetUsernameLinkBlob(ctx context.Context, serverID uuid.UUID) ([]byte, error) {
	var resp linkBlobResponse
	err := c.do(ctx, http.MethodGet, "/api/v1/username/link/"+serverID.String(), nil, &resp, map[int]error{
		http.StatusNotFound:        ErrNotFound,
		http.StatusTooManyRequests: ErrRateLimited,
	})
	if err != nil {
		return nil, err
	}
	return resp.EncryptedUsername, nil
}

func (c *HTTPClient) LookupAccountByHash(ctx context.Context, hash []byte) (uuid.UUID, error) {
	var resp lookupResponse
	err := c.do(ctx, http.MethodGet, "/api/v1/username/lookup/"+base64.RawURLEncoding.EncodeToString(hash), nil, &resp, map[int]error{
		http.StatusNotFound:            ErrNotFound,
		http.StatusUnprocessableEntity: ErrUsernameMalformed,
		http.StatusTooManyRequests:     ErrRateLimited,
	})
	if err != nil {
		return uuid.Nil, err
	}
	return resp.AccountID, nil
}

func (c *HTTPClient) DeleteUsername(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/username", nil, nil, map[int]error{
		http.StatusTooManyRequests: ErrRateLimited,
	})
}

// do issues one JSON request. Statuses present in errByStatus map to their
// sentinel; 2xx decodes into out when out is non-nil; anything else is a
// network-class error.
func (c *HTTPClient) do(ctx context.Context, method, path string, in, out any, errByStatus map[int]error) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(AccountHeader, c.accountID.String())

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if sentinel, ok := errByStatus[resp.StatusCode]; ok {
		return sentinel
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

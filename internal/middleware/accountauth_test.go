package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

// dummyHandler records if it was called and the context it received.
type dummyHandler struct {
	called bool
	ctx    context.Context
}

func (d *dummyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.called = true
	d.ctx = r.Context()
	w.WriteHeader(http.StatusOK)
}

func TestAccountAuth_MissingHeader(t *testing.T) {
	dummy := &dummyHandler{}
	h := AccountAuth(dummy)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/username", nil)
	h.ServeHTTP(rec, req)

	if dummy.called {
		t.Error("did not expect next handler to be called without an account id")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 Unauthorized, got %d", rec.Code)
	}
}

func TestAccountAuth_MalformedHeader(t *testing.T) {
	dummy := &dummyHandler{}
	h := AccountAuth(dummy)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/username", nil)
	req.Header.Set(AccountHeader, "not-a-uuid")
	h.ServeHTTP(rec, req)

	if dummy.called {
		t.Error("did not expect next handler to be called with a malformed account id")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 Unauthorized, got %d", rec.Code)
	}
}

func TestAccountAuth_ValidHeader(t *testing.T) {
	accountID := uuid.New()
	dummy := &dummyHandler{}
	h := AccountAuth(dummy)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/username", nil)
	req.Header.Set(AccountHeader, accountID.String())
	h.ServeHTTP(rec, req)

	if !dummy.called {
		t.Fatal("expected next handler to be called with a valid account id")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 OK, got %d", rec.Code)
	}
	if got := GetAccountIDFromContext(dummy.ctx); got != accountID {
		t.Errorf("expected context account '%s', got '%s'", accountID, got)
	}
}

func TestGetAccountIDFromContext(t *testing.T) {
	// no value
	if got := GetAccountIDFromContext(context.Background()); got != uuid.Nil {
		t.Errorf("expected nil uuid for missing account, got '%s'", got)
	}
	// with value
	accountID := uuid.New()
	ctx := context.WithValue(context.Background(), accountKey, accountID)
	if got := GetAccountIDFromContext(ctx); got != accountID {
		t.Errorf("expected '%s', got '%s'", accountID, got)
	}
}

// Package middleware provides HTTP middlewares for account identification,
// request logging, and rate limiting.
package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type ctxKey string

const accountKey ctxKey = "account"

// AccountHeader carries the caller's account id. Accounts are provisioned
// by the registration system, which sits outside this service; transport
// auth in front of this server is expected to have verified the header.
const AccountHeader = "X-Account-ID"

// AccountAuth is a middleware that requires a well-formed account id on
// every request it wraps.
//
// On success, the parsed account UUID is stored in the request context so
// handlers can use it as the acting account.
func AccountAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(AccountHeader)
		if raw == "" {
			http.Error(w, "no account id provided", http.StatusUnauthorized)
			return
		}
		accountID, err := uuid.Parse(raw)
		if err != nil {
			http.Error(w, "invalid account id", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), accountKey, accountID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetAccountIDFromContext extracts the acting account id from the request
// context. Returns uuid.Nil if not present.
func GetAccountIDFromContext(ctx context.Context) uuid.UUID {
	val := ctx.Value(accountKey)
	if id, ok := val.(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

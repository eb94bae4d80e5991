// Package middleware provides HTTP middleware for the action run API.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// HeaderOwnerToken carries the caller's owner token.
const HeaderOwnerToken = "X-Owner-Token"

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const ownerKey contextKey = "ownerToken"

// GetOwner retrieves the owner token from the request context.
// Returns empty string if none is set.
func GetOwner(ctx context.Context) string {
	owner, _ := ctx.Value(ownerKey).(string)
	return owner
}

// WithOwner adds the owner token to ctx.
func WithOwner(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, ownerKey, owner)
}

// OwnerFromRequest extracts the owner token from the X-Owner-Token header,
// falling back to an Authorization bearer token. The token is opaque.
func OwnerFromRequest(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get(HeaderOwnerToken)); v != "" {
		return v
	}
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

// RequireOwner rejects requests without an owner token with 401 and stores
// the token in the request context otherwise.
func RequireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner := OwnerFromRequest(r)
		if owner == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error": "owner token is required",
				"code":  "OWNER_REQUIRED",
			})
			return
		}
		next.ServeHTTP(w, r.WithContext(WithOwner(r.Context(), owner)))
	})
}

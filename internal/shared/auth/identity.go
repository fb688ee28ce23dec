package auth

import (
	"context"
	"strings"
)

// Identity is the principal a request or CLI session acts as.
type Identity struct {
	UserID string
	Guest  bool
}

type identityKey struct{}

// WithIdentity returns a context carrying the given identity.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity stored in ctx, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	if !ok || strings.TrimSpace(id.UserID) == "" {
		return Identity{}, false
	}
	return id, true
}

// OwnerFromContext returns the principal used to namespace stored data.
// Contexts without an identity map to "anonymous".
func OwnerFromContext(ctx context.Context) string {
	if id, ok := IdentityFromContext(ctx); ok {
		return id.UserID
	}
	return "anonymous"
}

// Gate answers whether the caller may use the review read path.
type Gate struct {
	// AllowGuests treats guest principals as authenticated.
	AllowGuests bool
}

// IsAuthenticated reports whether ctx carries an acceptable identity.
func (g Gate) IsAuthenticated(ctx context.Context) bool {
	id, ok := IdentityFromContext(ctx)
	if !ok {
		return false
	}
	return !id.Guest || g.AllowGuests
}

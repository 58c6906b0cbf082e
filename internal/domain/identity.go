package domain

import "context"

// DefaultOpClass is used when the auth layer supplies no operation class.
const DefaultOpClass = "search"

// Identity is the tenant identity attached to every request by the
// auth layer. The pipeline trusts this input.
type Identity struct {
	TenantID string
	OpClass  string
}

type identityKey struct{}

// ContextWithIdentity stores the tenant identity in the context.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext extracts the tenant identity from the context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

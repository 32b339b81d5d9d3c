package identity

import (
	"context"

	"github.com/atrium-realty/atrium/internal/authz"
)

type resolutionContextKey struct{}

// ContextWithResolution stores the resolved identity in context. The guard
// middleware is the only writer; handlers and templates read from here
// instead of touching the identity sources themselves.
func ContextWithResolution(ctx context.Context, res Resolution) context.Context {
	return context.WithValue(ctx, resolutionContextKey{}, res)
}

// ResolutionFromContext extracts the resolution. Absent means not resolved.
func ResolutionFromContext(ctx context.Context) Resolution {
	res, _ := ctx.Value(resolutionContextKey{}).(Resolution)
	return res
}

// PrincipalFromContext is a convenience accessor for handlers that only need
// the principal and have already passed a guard.
func PrincipalFromContext(ctx context.Context) *authz.Principal {
	return ResolutionFromContext(ctx).Snapshot.Principal
}

package middleware

import (
	"context"

	"github.com/angelmondragon/soundmarket-backend/pkg/auth"
)

type contextKey string

const ctxPrincipal contextKey = "principal"

// PrincipalFromContext returns the caller resolved by Auth, or the zero principal.
func PrincipalFromContext(ctx context.Context) auth.Principal {
	if ctx == nil {
		return auth.Principal{}
	}
	if v, ok := ctx.Value(ctxPrincipal).(auth.Principal); ok {
		return v
	}
	return auth.Principal{}
}

func UserIDFromContext(ctx context.Context) string {
	principal := PrincipalFromContext(ctx)
	if principal.IsZero() {
		return ""
	}
	return principal.UserID.String()
}

// WithPrincipal injects the caller into the context.
func WithPrincipal(ctx context.Context, principal auth.Principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxPrincipal, principal)
}

package middleware

import (
	"context"

	"github.com/entregave/dispatch-backend/pkg/enums"
)

type contextKey string

const ctxPrincipal contextKey = "principal"

// PrincipalKind separates panel operators from API-key partner clients.
type PrincipalKind string

const (
	PrincipalOperator PrincipalKind = "operator"
	PrincipalPartner  PrincipalKind = "partner"
)

// Principal is the authenticated caller seeded by the auth middleware.
type Principal struct {
	Kind       PrincipalKind
	OperatorID string
	Name       string
	Role       enums.ActorRole
	Client     string
}

// Actor renders the principal as an audit-trail identity.
func (p Principal) Actor() string {
	if p.Kind == PrincipalPartner {
		return "api:" + p.Client
	}
	if p.Name != "" {
		return p.Name
	}
	return p.OperatorID
}

// IsAdmin reports whether the principal carries the admin role.
func (p Principal) IsAdmin() bool {
	return p.Kind == PrincipalOperator && p.Role == enums.ActorRoleAdmin
}

// WithPrincipal injects the authenticated caller into the context.
func WithPrincipal(ctx context.Context, principal Principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxPrincipal, principal)
}

// PrincipalFromContext returns the authenticated caller, if any.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	principal, ok := ctx.Value(ctxPrincipal).(Principal)
	return principal, ok
}

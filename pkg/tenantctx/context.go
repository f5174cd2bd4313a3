// Package tenantctx carries the resolved tenant through request contexts.
package tenantctx

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type tenantKey struct{}

// Tenant is the request-scoped view of the storefront tenant, attached by the
// license gate once the tenant's license has been validated.
type Tenant struct {
	ID   snowflake.ID
	Slug string
	Plan string
}

// WithTenant stores the tenant in the context.
func WithTenant(ctx context.Context, t Tenant) context.Context {
	return context.WithValue(ctx, tenantKey{}, t)
}

// FromContext returns the tenant from context, if set.
func FromContext(ctx context.Context) (Tenant, bool) {
	if ctx == nil {
		return Tenant{}, false
	}
	t, ok := ctx.Value(tenantKey{}).(Tenant)
	return t, ok
}

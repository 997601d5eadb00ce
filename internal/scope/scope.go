// Package scope carries the per-request tenant binding through the
// application. A Scope is created once per HTTP request or background job
// and passed explicitly (via context) into every persistence operation, so
// tenant identity is never read from global state.
package scope

import "context"

// SystemUserID is the actor recorded for operations with no authenticated
// user, such as background jobs and migrations. It is only ever assigned by
// Background; real user ids start at 1.
const SystemUserID uint = 0

// Scope binds an operation to exactly one tenant and one physical database.
type Scope struct {
	TenantID  uint
	TenantKey string
	UserID    uint
	// ConnectionString is empty for tenants living in the shared default
	// database and holds the tenant's own DSN otherwise.
	ConnectionString string
}

// IsSystem reports whether the scope runs without an authenticated user.
func (s Scope) IsSystem() bool {
	return s.UserID == SystemUserID
}

// WithUser returns a copy of the scope acting as the given user.
func (s Scope) WithUser(userID uint) Scope {
	s.UserID = userID
	return s
}

// Background returns a job-side scope for the given tenant with no
// authenticated user.
func Background(tenantID uint, tenantKey, connectionString string) Scope {
	return Scope{
		TenantID:         tenantID,
		TenantKey:        tenantKey,
		UserID:           SystemUserID,
		ConnectionString: connectionString,
	}
}

type contextKey struct{}

// NewContext returns a context carrying the scope.
func NewContext(ctx context.Context, s Scope) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext extracts the scope from the context.
func FromContext(ctx context.Context) (Scope, bool) {
	s, ok := ctx.Value(contextKey{}).(Scope)
	return s, ok
}

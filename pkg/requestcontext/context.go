// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// Context keys and getter/setter pairs for values set by middleware and
// consumed by services. The package stays free of net/http so services can
// import it without pulling transport code in.
//
// Usage in services (read values):
//
//	ident := requestcontext.Identity(ctx)
//	requestID := requestcontext.RequestID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in middleware (set values):
//
//	ctx = requestcontext.WithIdentity(ctx, ident)
//	ctx = requestcontext.WithRequestID(ctx, requestID)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"

	id "shamba/pkg/domain"
)

// CallerIdentity is the request-scoped identity supplied by the auth
// collaborator: who is calling, with which role, in which jurisdiction.
// It is explicit state passed into every engine call, never ambient.
type CallerIdentity struct {
	UserID       id.UserID
	Role         id.Role
	Jurisdiction string
}

// IsZero reports whether no identity was attached to the request.
func (c CallerIdentity) IsZero() bool {
	return c.UserID.IsNil() && c.Role == "" && c.Jurisdiction == ""
}

// Context key types (unexported for encapsulation).
type (
	identityKey    struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported context keys for tests that need raw context.WithValue.
var (
	ContextKeyIdentity    = identityKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// Identity retrieves the caller identity from the context.
// Returns the zero value if not set.
func Identity(ctx context.Context) CallerIdentity {
	if ident, ok := ctx.Value(ContextKeyIdentity).(CallerIdentity); ok {
		return ident
	}
	return CallerIdentity{}
}

// WithIdentity injects a caller identity into the context.
func WithIdentity(ctx context.Context, ident CallerIdentity) context.Context {
	return context.WithValue(ctx, ContextKeyIdentity, ident)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() for non-HTTP contexts like workers and tests.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context. Useful for service unit
// tests that don't run the full HTTP middleware chain.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}

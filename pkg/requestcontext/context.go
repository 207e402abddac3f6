// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// This package defines context keys and getter/setter functions for values that are
// typically set by middleware but consumed by services. By keeping this package free
// of net/http dependencies, services and background jobs can import only what they need.
//
// Usage in services (read values):
//
//	workspaceID := requestcontext.WorkspaceID(ctx)
//	requestID := requestcontext.RequestID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	ctx = requestcontext.WithWorkspaceID(ctx, workspaceID)
package requestcontext

import (
	"context"
	"time"

	"emailscore/pkg/domain"
)

// Context key types (unexported for encapsulation).
type (
	workspaceIDKey struct{}
	userIDKey      struct{}
	authMethodKey  struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported context keys for direct use in tests that need context.WithValue.
var (
	ContextKeyWorkspaceID = workspaceIDKey{}
	ContextKeyUserID      = userIDKey{}
	ContextKeyAuthMethod  = authMethodKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// -----------------------------------------------------------------------------
// Auth context (workspace, user)
// -----------------------------------------------------------------------------

// WorkspaceID retrieves the authenticated workspace from the context.
// Returns the zero ID if not set.
func WorkspaceID(ctx context.Context) domain.WorkspaceID {
	if id, ok := ctx.Value(ContextKeyWorkspaceID).(domain.WorkspaceID); ok {
		return id
	}
	return domain.WorkspaceID{}
}

// WithWorkspaceID injects a workspace ID into the context.
func WithWorkspaceID(ctx context.Context, workspaceID domain.WorkspaceID) context.Context {
	return context.WithValue(ctx, ContextKeyWorkspaceID, workspaceID)
}

// UserID retrieves the authenticated user from the context.
// Returns the zero ID if not set (API keys are not always bound to a user).
func UserID(ctx context.Context) domain.UserID {
	if id, ok := ctx.Value(ContextKeyUserID).(domain.UserID); ok {
		return id
	}
	return domain.UserID{}
}

// WithUserID injects a user ID into the context.
func WithUserID(ctx context.Context, userID domain.UserID) context.Context {
	return context.WithValue(ctx, ContextKeyUserID, userID)
}

// AuthMethod reports how the caller authenticated ("jwt" or "api_key").
func AuthMethod(ctx context.Context) string {
	if m, ok := ctx.Value(ContextKeyAuthMethod).(string); ok {
		return m
	}
	return ""
}

// WithAuthMethod records how the caller authenticated.
func WithAuthMethod(ctx context.Context, method string) context.Context {
	return context.WithValue(ctx, ContextKeyAuthMethod, method)
}

// -----------------------------------------------------------------------------
// Request metadata
// -----------------------------------------------------------------------------

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

// -----------------------------------------------------------------------------
// Request time
// -----------------------------------------------------------------------------

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set (for non-HTTP contexts like workers, CLI, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
// Useful for:
//   - Service unit tests that don't run the full HTTP middleware chain
//   - Bulk jobs that need one cache cutoff for a whole chunk
//   - CLI commands
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}

// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Middleware sets these values; services read them. Keeping the package free
// of net/http lets services depend on actor identity and request time without
// pulling in transport code. Auth and role resolution happen outside this
// module; operations receive the acting user explicitly through context
// instead of ambient session globals.
//
// Usage in services (read values):
//
//	actorID := requestcontext.ActorID(ctx)
//	role := requestcontext.Role(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithActor(ctx, actorID, requestcontext.RoleManager)
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"

	id "condoflow/pkg/domain"
)

// ActorRole is the coarse role the external identity resolver assigned to the
// authenticated actor.
type ActorRole string

const (
	RoleManager   ActorRole = "manager"   // building manager / sindico
	RoleResident  ActorRole = "resident"  // unit resident
	RoleAuthority ActorRole = "authority" // adjudicating authority
)

// Valid reports whether the role is one this module understands.
func (r ActorRole) Valid() bool {
	switch r {
	case RoleManager, RoleResident, RoleAuthority:
		return true
	}
	return false
}

type (
	actorIDKey     struct{}
	actorRoleKey   struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
	deviceInfoKey  struct{}
)

// Exported context keys for tests that need raw context.WithValue.
var (
	ContextKeyActorID     = actorIDKey{}
	ContextKeyActorRole   = actorRoleKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
	ContextKeyDeviceInfo  = deviceInfoKey{}
)

// ActorID retrieves the authenticated actor from the context.
// Returns the zero value (nil UUID) if not set.
func ActorID(ctx context.Context) id.ActorID {
	if actor, ok := ctx.Value(ContextKeyActorID).(id.ActorID); ok {
		return actor
	}
	return id.ActorID{}
}

// Role retrieves the actor role from the context, empty if not set.
func Role(ctx context.Context) ActorRole {
	if role, ok := ctx.Value(ContextKeyActorRole).(ActorRole); ok {
		return role
	}
	return ""
}

// WithActor injects the acting user and role into the context.
func WithActor(ctx context.Context, actorID id.ActorID, role ActorRole) context.Context {
	ctx = context.WithValue(ctx, ContextKeyActorID, actorID)
	return context.WithValue(ctx, ContextKeyActorRole, role)
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

// DeviceInfo retrieves the summarized client device string ("browser/os")
// captured by the metadata middleware. Used for audit enrichment only.
func DeviceInfo(ctx context.Context) string {
	if info, ok := ctx.Value(ContextKeyDeviceInfo).(string); ok {
		return info
	}
	return ""
}

// WithDeviceInfo injects a device summary into the context.
func WithDeviceInfo(ctx context.Context, info string) context.Context {
	return context.WithValue(ctx, ContextKeyDeviceInfo, info)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() for non-HTTP contexts (workers, tests without injection).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context. All mutations within one
// request observe the same "now", which keeps stored timestamps and deadline
// arithmetic consistent.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}

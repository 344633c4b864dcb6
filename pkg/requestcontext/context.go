// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values. Middleware sets them; services and handlers read
// them without importing net/http.
package requestcontext

import (
	"context"
	"time"
)

type (
	actorIDKey     struct{}
	requestIDKey   struct{}
	deviceLabelKey struct{}
	requestTimeKey struct{}
)

// Exported context keys for tests that need raw context.WithValue.
var (
	ContextKeyActorID     = actorIDKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyDeviceLabel = deviceLabelKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// WithActorID records the authenticated actor on the context.
func WithActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, ContextKeyActorID, actorID)
}

// ActorID returns the authenticated actor ID, or "" when unauthenticated.
func ActorID(ctx context.Context) string {
	v, _ := ctx.Value(ContextKeyActorID).(string)
	return v
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(ContextKeyRequestID).(string)
	return v
}

// WithDeviceLabel records a human-readable device description parsed from the
// User-Agent header, used in audit log fields.
func WithDeviceLabel(ctx context.Context, label string) context.Context {
	return context.WithValue(ctx, ContextKeyDeviceLabel, label)
}

func DeviceLabel(ctx context.Context) string {
	v, _ := ctx.Value(ContextKeyDeviceLabel).(string)
	return v
}

// WithTime pins the request time; tests use this to make time-dependent
// assertions deterministic.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}

// Now returns the pinned request time when present, falling back to the wall
// clock.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

package testutil

import (
	"context"
	"net/http"

	"attesto/pkg/requestcontext"
)

// WithActor adds an authenticated actor ID to the request context, simulating
// what the auth middleware does for authenticated requests.
func WithActor(req *http.Request, actorID string) *http.Request {
	if actorID == "" {
		return req
	}
	ctx := requestcontext.WithActorID(req.Context(), actorID)
	return req.WithContext(ctx)
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}

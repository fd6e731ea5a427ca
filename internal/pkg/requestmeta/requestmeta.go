// Package requestmeta propagates the request ID across HTTP service
// boundaries so a cart mutation in the gateway and the ledger write it
// caused share one identifier in the logs.
package requestmeta

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// HeaderRequestID is the wire header carrying the request ID.
const HeaderRequestID = "X-Request-Id"

// contextKey is an unexported type for context keys in this package.
// A custom type prevents collisions with keys from other packages that
// might use the same underlying string value.
type contextKey string

const ctxKeyRequestID contextKey = "request_id"

// Middleware stores the inbound request ID in the request context.
// Expects chi's middleware.RequestID to run first; falls back to the
// X-Request-Id header for requests arriving from another service.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := middleware.GetReqID(r.Context())
		if id == "" {
			id = r.Header.Get(HeaderRequestID)
		}
		ctx := context.WithValue(r.Context(), ctxKeyRequestID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// FromContext returns the request ID, or "" when none was attached.
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID).(string)
	return id
}

// Attach copies the request ID from ctx onto an outgoing request.
func Attach(ctx context.Context, req *http.Request) {
	if id := FromContext(ctx); id != "" {
		req.Header.Set(HeaderRequestID, id)
	}
}

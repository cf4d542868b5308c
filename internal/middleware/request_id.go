package middleware

import (
	"net/http"

	reqcontext "github.com/prajwalbharadwajbm/clipescrow/internal/context"
)

// RequestIDMiddleware adds request IDs to incoming requests
type RequestIDMiddleware struct{}

// NewRequestIDMiddleware creates a new request ID middleware
func NewRequestIDMiddleware() *RequestIDMiddleware {
	return &RequestIDMiddleware{}
}

// Middleware returns the HTTP middleware function for request IDs
func (m *RequestIDMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// an upstream X-Request-ID is kept so traces line up across services
		ctx := reqcontext.NewRequestContext(r.Context(), r.Header.Get("X-Request-ID"), r.RemoteAddr)

		// Add request ID to response headers for client tracking
		w.Header().Set("X-Request-ID", reqcontext.GetRequestID(ctx))

		// Continue with updated context
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

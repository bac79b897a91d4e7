// Package metadata extracts client-facing request metadata (correlation ID,
// client IP, User-Agent) into the context for services and audit trails.
package metadata

import (
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"veritas/pkg/requestcontext"
)

const (
	headerRequestID    = "X-Request-ID"
	headerForwardedFor = "X-Forwarded-For"
)

// Middleware injects request ID, client IP, and User-Agent into the context.
// A missing request ID is generated so logs always correlate.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(headerRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(headerRequestID, requestID)

		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		ctx = requestcontext.WithClientMetadata(ctx, clientIP(r), r.UserAgent())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// clientIP resolves the originating client IP, preferring the first
// X-Forwarded-For hop when present.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get(headerForwardedFor); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

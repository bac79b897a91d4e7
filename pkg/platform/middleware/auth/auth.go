// Package auth guards citizen-scoped endpoints with bearer token validation.
package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"veritas/pkg/domain"
	dErrors "veritas/pkg/domain-errors"
	"veritas/pkg/platform/httputil"
	"veritas/pkg/requestcontext"
)

// TokenValidator resolves a bearer token to a citizen ID.
type TokenValidator interface {
	CitizenFromToken(tokenString string) (domain.CitizenID, error)
}

// Middleware rejects requests without a valid bearer token and injects the
// authenticated citizen ID into the context.
func Middleware(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, ok := bearerToken(r)
			if !ok {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
				return
			}

			citizenID, err := validator.CitizenFromToken(token)
			if err != nil {
				if logger != nil {
					logger.WarnContext(ctx, "token rejected",
						"request_id", requestcontext.RequestID(ctx),
						"path", r.URL.Path,
					)
				}
				httputil.WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithCitizenID(ctx, citizenID)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

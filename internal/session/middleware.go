package session

import (
	"context"
	"net/http"
	"strings"

	"veridesk/pkg/httputil"

	dErrors "veridesk/pkg/domain-errors"
)

type contextKey string

const claimsKey contextKey = "session_claims"

// FromContext returns the session claims attached by RequireSession.
func FromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	return claims, ok
}

// RequireSession rejects requests without a live operator session. Claims
// for accepted requests are attached to the request context.
func RequireSession(m *Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing session token"))
				return
			}

			claims, err := m.Verify(r.Context(), token, r.UserAgent())
			if err != nil {
				httputil.WriteError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

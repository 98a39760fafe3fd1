package users

import (
	"context"
	"net/http"
	"strings"

	"github.com/flowdeck/flowdeck/internal/flow"
)

type contextKey struct{}

// FromContext returns the authenticated user, if any.
func FromContext(ctx context.Context) (flow.User, bool) {
	u, ok := ctx.Value(contextKey{}).(flow.User)
	return u, ok
}

// Middleware resolves a Bearer token to its user and stores it in the
// request context. Requests without a token pass through anonymously;
// requests with an unknown token get a 401 so the client can drop its
// stale session.
func (s *Store) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")
		if token == header || token == "" {
			next.ServeHTTP(w, r)
			return
		}

		u, err := s.Authenticate(r.Context(), token)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"invalid or expired token"}`))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, u)))
	})
}

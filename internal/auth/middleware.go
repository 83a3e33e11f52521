package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"conti/internal/core"
)

type userKey struct{}

func WithUser(ctx context.Context, u core.User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

func UserFromContext(ctx context.Context) (core.User, bool) {
	u, ok := ctx.Value(userKey{}).(core.User)
	return u, ok
}

// BearerToken extracts the token of an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

// Middleware rejects requests without a valid bearer token and stores the
// verified user in the request context.
func Middleware(gw Gateway) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				unauthorized(w)
				return
			}
			u, err := gw.Verify(r.Context(), token)
			if err != nil {
				if !errors.Is(err, core.ErrUnauthenticated) {
					slog.ErrorContext(r.Context(), "Token verification failed", "error", err)
				}
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="conti"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": core.ErrUnauthenticated.Error()})
}

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

type ctxKey int

const (
	userIDKey ctxKey = iota
	tokenKey
)

// WithUser returns ctx carrying the authenticated user and token.
func WithUser(ctx context.Context, userID, token string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, tokenKey, token)
}

// UserID returns the authenticated user ID, or "" outside authenticated
// requests.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// Token returns the bearer token of the authenticated request.
func Token(ctx context.Context) string {
	t, _ := ctx.Value(tokenKey).(string)
	return t
}

// ExtractTokenFromHeader returns the token of an "Authorization: Bearer" header.
func ExtractTokenFromHeader(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// Middleware rejects requests without a valid bearer token with 401 and
// stores the user ID on the request context otherwise.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := ExtractTokenFromHeader(r)
		userID, err := s.Authenticate(r.Context(), token)
		if err != nil {
			status := http.StatusUnauthorized
			msg := ErrUnauthorized.Error()
			if !errors.Is(err, ErrUnauthorized) {
				status = http.StatusInternalServerError
				msg = "internal server error"
			}
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("WWW-Authenticate", `Bearer realm="nutritrack"`)
			w.WriteHeader(status)
			json.NewEncoder(w).Encode(map[string]string{"error": msg})
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), userID, token)))
	})
}

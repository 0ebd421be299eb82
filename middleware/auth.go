package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

// The engine does not manage accounts. An external permission layer issues
// JWTs carrying the caller's id and role; this middleware only extracts
// them and makes them available to handlers.

type contextKey string

const (
	callerIDKey   contextKey = "caller_id"
	callerRoleKey contextKey = "caller_role"
)

const (
	RoleOrganizer = "organizer"
	RolePlayer    = "player"
)

type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// Authenticate validates the bearer token and stashes the caller's id and
// role in the request context.
func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		tokenString := strings.TrimPrefix(header, "Bearer ")

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return a.secret, nil
		})
		if err != nil || !token.Valid {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		callerID, _ := claims["sub"].(string)
		role, _ := claims["role"].(string)
		ctx := context.WithValue(r.Context(), callerIDKey, callerID)
		ctx = context.WithValue(ctx, callerRoleKey, role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole allows the request through only for the listed roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			callerRole := RoleFromContext(r.Context())
			for _, role := range roles {
				if role == callerRole {
					next.ServeHTTP(w, r)
					return
				}
			}
			http.Error(w, "forbidden", http.StatusForbidden)
		})
	}
}

func CallerIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(callerIDKey).(string)
	return id
}

func RoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(callerRoleKey).(string)
	return role
}

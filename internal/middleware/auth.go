package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"

	"github.com/bandroom/backend/internal/models"
)

type contextKey string

const SubjectKey contextKey = "subject"

// AdminRole is the role claim the admin endpoints require.
const AdminRole = "admin"

// AdminAuth validates an HS256 bearer token signed with secret whose "role"
// claim is admin, and stores its subject in the request context.
func AdminAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respond(w, r, http.StatusUnauthorized, models.Fail("Authorization header required"))
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				respond(w, r, http.StatusUnauthorized, models.Fail("Invalid authorization header format"))
				return
			}

			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
				return []byte(secret), nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !token.Valid {
				respond(w, r, http.StatusUnauthorized, models.Fail("Invalid or expired token"))
				return
			}

			if role, _ := claims["role"].(string); role != AdminRole {
				respond(w, r, http.StatusForbidden, models.Fail("Admin role required"))
				return
			}

			subject, _ := claims.GetSubject()
			ctx := context.WithValue(r.Context(), SubjectKey, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSubject extracts the authenticated subject from context.
func GetSubject(ctx context.Context) string {
	subject, ok := ctx.Value(SubjectKey).(string)
	if !ok {
		return ""
	}
	return subject
}

func respond(w http.ResponseWriter, r *http.Request, status int, resp models.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp.WithRequestID(chimw.GetReqID(r.Context())))
}

package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"

	"hairdash/internal/models"
)

type contextKey string

const ctxAdmin contextKey = "admin"

// Claims is the subset of an identity-provider session token the dashboard reads.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Admin identifies the caller of an /api request.
type Admin struct {
	Subject string
	Email   string
}

// Key is the caller identity used for rate limiting.
func (a Admin) Key() string {
	if a.Subject != "" {
		return a.Subject
	}
	return a.Email
}

var adminRoles = map[string]bool{"admin": true, "org:admin": true}

func AdminFromContext(ctx context.Context) (Admin, bool) {
	a, ok := ctx.Value(ctxAdmin).(Admin)
	return a, ok
}

func WithAdmin(ctx context.Context, a Admin) context.Context {
	return context.WithValue(ctx, ctxAdmin, a)
}

// AdminAuth verifies HS256 session tokens issued by the identity provider.
// When disabled every request runs as a fixed local admin.
func AdminAuth(secret string, disabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if disabled {
				next.ServeHTTP(w, r.WithContext(WithAdmin(r.Context(), Admin{Subject: "local", Email: "local@localhost"})))
				return
			}
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				deny(w, http.StatusUnauthorized, "missing token")
				return
			}
			tokenStr := strings.TrimPrefix(auth, "Bearer ")
			claims := &Claims{}
			token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
				return []byte(secret), nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
			if err != nil || !token.Valid {
				deny(w, http.StatusUnauthorized, "invalid token")
				return
			}
			if !adminRoles[claims.Role] {
				deny(w, http.StatusForbidden, "admin role required")
				return
			}
			ctx := WithAdmin(r.Context(), Admin{Subject: claims.Subject, Email: claims.Email})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewAdminToken signs a token the way the identity provider does. Used for
// local development and tests.
func NewAdminToken(secret, subject, email string, ttl time.Duration) (string, error) {
	claims := Claims{
		Email: email,
		Role:  "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func deny(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(models.ErrorResponse{Error: msg, Code: "unauthorized"})
}

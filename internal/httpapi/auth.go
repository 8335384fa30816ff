package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role is the caller's marketplace role, carried in the session token.
type Role string

const (
	RoleBusiness Role = "business"
	RoleCreator  Role = "creator"
	RoleAdmin    Role = "admin"
)

// Principal is the verified caller identity. It replaces the old
// x-user-id / x-vendor-id headers, which trusted whatever the client sent.
type Principal struct {
	UserID string
	Role   Role
}

type ctxKey int

const principalKey ctxKey = iota

type sessionClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// SignSession mints an HS256 session token. Used by ops tooling and
// tests; issuing real sessions is the identity provider's job.
func SignSession(secret, userID string, role Role, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("jwt secret not configured")
	}
	now := time.Now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: string(role),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func verifySession(secret, token string) (Principal, error) {
	if secret == "" {
		return Principal{}, fmt.Errorf("jwt secret not configured")
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &sessionClaims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return Principal{}, err
	}
	if !parsed.Valid {
		return Principal{}, fmt.Errorf("invalid session token")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return Principal{}, fmt.Errorf("session token missing subject")
	}
	role := Role(claims.Role)
	switch role {
	case RoleBusiness, RoleCreator, RoleAdmin:
	default:
		return Principal{}, fmt.Errorf("session token has unknown role %q", claims.Role)
	}
	return Principal{UserID: claims.Subject, Role: role}, nil
}

// requireSession authenticates the request from its bearer token and puts
// the Principal on the context.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			respondError(w, http.StatusUnauthorized, "missing_session", "bearer session token required")
			return
		}
		principal, err := verifySession(s.cfg.JWTSecret, strings.TrimSpace(token))
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid_session", "session token rejected")
			return
		}
		next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), principal)))
	})
}

func withPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func principalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

func (p Principal) canPostProjects() bool {
	return p.Role == RoleBusiness || p.Role == RoleAdmin
}

func (p Principal) canBid() bool {
	return p.Role == RoleCreator || p.Role == RoleAdmin
}

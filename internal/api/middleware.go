package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Authenticator verifies operator credentials on a request and returns the
// principal. Token issuance and user management live outside this service.
type Authenticator interface {
	Authenticate(r *http.Request) (string, error)
}

type principalKey struct{}

// errUnauthorized is returned for missing or invalid credentials.
var errUnauthorized = errors.New("unauthorized")

// JWTAuthenticator verifies HMAC-signed bearer tokens.
type JWTAuthenticator struct {
	secret []byte
}

// NewJWTAuthenticator creates an authenticator for the given signing secret.
func NewJWTAuthenticator(secret string) *JWTAuthenticator {
	return &JWTAuthenticator{secret: []byte(secret)}
}

// Authenticate implements Authenticator.
func (a *JWTAuthenticator) Authenticate(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	tokenString := strings.TrimPrefix(header, "Bearer ")
	if tokenString == "" || tokenString == header {
		return "", errUnauthorized
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return "", errUnauthorized
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errUnauthorized
	}
	if sub, ok := claims["sub"].(string); ok && sub != "" {
		return sub, nil
	}
	if username, ok := claims["username"].(string); ok && username != "" {
		return username, nil
	}
	return "", errUnauthorized
}

// AllowAll accepts every request as the given principal. Used when no JWT
// secret is configured (local development).
type AllowAll struct {
	Principal string
}

// Authenticate implements Authenticator.
func (a AllowAll) Authenticate(r *http.Request) (string, error) {
	return a.Principal, nil
}

// requireAuth wraps operator endpoints with credential verification and
// stores the principal on the request context.
func (h *Handler) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := h.auth.Authenticate(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "access denied")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), principalKey{}, principal)))
	}
}

// principalFrom returns the authenticated principal, if any.
func principalFrom(ctx context.Context) string {
	principal, _ := ctx.Value(principalKey{}).(string)
	return principal
}

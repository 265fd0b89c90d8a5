package auth

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/timtanatarov/daydi-spa/internal/utils"
)

var (
	// ErrMissingToken is returned when a guarded request carries no bearer token.
	ErrMissingToken = errors.New("missing bearer token")
	// ErrInvalidToken is returned when the token does not match the hash.
	ErrInvalidToken = errors.New("invalid token")
)

// TokenGuard protects administrative endpoints with a shared bearer token
// whose bcrypt hash is configured. A guard without a hash admits everything.
type TokenGuard struct {
	hash []byte
}

// NewTokenGuard returns a guard for hash. An empty hash disables the guard.
func NewTokenGuard(hash string) (*TokenGuard, error) {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return &TokenGuard{}, nil
	}
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, utils.ConfigError("invalid init token hash: %v", err)
	}
	return &TokenGuard{hash: []byte(hash)}, nil
}

// Enabled reports whether requests must carry a token.
func (g *TokenGuard) Enabled() bool {
	return g != nil && len(g.hash) > 0
}

// Verify checks token against the configured hash.
func (g *TokenGuard) Verify(token string) error {
	if !g.Enabled() {
		return nil
	}
	if token == "" {
		return ErrMissingToken
	}
	if err := bcrypt.CompareHashAndPassword(g.hash, []byte(token)); err != nil {
		return ErrInvalidToken
	}
	return nil
}

// Middleware rejects requests without a valid "Authorization: Bearer" token
// with 401 {"ok":false,"error":"unauthorized"}.
func (g *TokenGuard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := g.Verify(BearerToken(r)); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "bearer "
	if len(h) < len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}

// GenerateToken returns a random token and its bcrypt hash.
func GenerateToken() (token, hash string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	token = base64.RawURLEncoding.EncodeToString(b)
	h, err := HashToken(token)
	if err != nil {
		return "", "", err
	}
	return token, h, nil
}

// HashToken hashes token with the default bcrypt cost.
func HashToken(token string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// Package auth issues and verifies the operator's bearer tokens.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"ContactRelay/pkg/apperr"
	tokenstore "ContactRelay/pkg/token"
)

const DefaultTTL = 24 * time.Hour

var errNoSecret = errors.New("token secret is not configured")

// Identity is the operator encoded in a token.
type Identity struct {
	Username string `json:"username"`
}

type Claims struct {
	Admin Identity `json:"admin"`
	jwt.RegisteredClaims
}

type Config struct {
	Username     string
	PasswordHash string // bcrypt
	Secret       string
	TTL          time.Duration
}

// Guard checks operator credentials against a single configured account.
// It does not touch the message store.
type Guard struct {
	cfg     Config
	revoked *tokenstore.Store
	Now     func() time.Time
}

func NewGuard(cfg Config, revoked *tokenstore.Store) *Guard {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if revoked == nil {
		revoked = tokenstore.New()
	}
	return &Guard{cfg: cfg, revoked: revoked, Now: time.Now}
}

// IssueToken returns a signed token when username and password match the
// configured operator, apperr.ErrInvalidCredentials otherwise.
func (g *Guard) IssueToken(username, password string) (string, error) {
	if g.cfg.Username == "" || g.cfg.PasswordHash == "" {
		return "", apperr.ErrInvalidCredentials
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(g.cfg.Username)) == 1
	passOK := CheckPassword(g.cfg.PasswordHash, password)
	if !userOK || !passOK {
		return "", apperr.ErrInvalidCredentials
	}
	return g.Sign(username, g.cfg.TTL)
}

// Sign creates a token for username valid for ttl from now.
func (g *Guard) Sign(username string, ttl time.Duration) (string, error) {
	if g.cfg.Secret == "" {
		return "", errNoSecret
	}
	now := g.Now()
	claims := Claims{
		Admin: Identity{Username: username},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(g.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verification is the outcome of VerifyToken. Error is meant for humans.
type Verification struct {
	Valid    bool
	Identity *Identity
	Claims   *Claims
	Error    string
}

// VerifyToken fails closed: malformed, expired, mis-signed and revoked
// tokens all come back with Valid=false. It never panics or returns an error.
func (g *Guard) VerifyToken(tokenStr string) Verification {
	invalid := Verification{Error: "Invalid or expired token"}
	if tokenStr == "" || g.cfg.Secret == "" {
		return invalid
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		// only accept HMAC signing
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return []byte(g.cfg.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(g.Now),
	)
	if err != nil || !token.Valid {
		return invalid
	}
	if claims.Admin.Username == "" {
		return invalid
	}
	if g.revoked.IsRevoked(claims.ID) {
		return Verification{Error: "Token has been revoked"}
	}

	id := claims.Admin
	return Verification{Valid: true, Identity: &id, Claims: claims}
}

// Revoke invalidates a currently valid token.
func (g *Guard) Revoke(tokenStr string) error {
	v := g.VerifyToken(tokenStr)
	if !v.Valid {
		return apperr.ErrUnauthorized
	}
	var exp time.Time
	if v.Claims.ExpiresAt != nil {
		exp = v.Claims.ExpiresAt.Time
	}
	g.revoked.Revoke(v.Claims.ID, exp)
	return nil
}

// ExtractToken returns the token of a "Bearer <token>" Authorization
// header, or "" when the header is absent or malformed.
func ExtractToken(h http.Header) string {
	auth := h.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.Fields(auth)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

// HashPassword produces the bcrypt hash stored in ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

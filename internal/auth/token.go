package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/redmonkez12/eventflow/internal/user"
)

var (
	ErrMalformedToken   = errors.New("malformed token")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrExpiredToken     = errors.New("token has expired")
)

// TokenService issues and verifies access tokens.
// Implementations include PasetoService (PASETO v4.local) and JWTService (HS256).
type TokenService interface {
	Issue(userID uuid.UUID, role user.Role, ttl time.Duration) (string, error)
	Verify(token string) (*Claims, error)
}

// Claims are the verified contents of an access token.
type Claims struct {
	TokenID   string
	UserID    uuid.UUID
	Role      user.Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// hashToken keys opaque tokens in Redis without storing them in the clear.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// generateRandomToken creates a cryptographically secure random token
func generateRandomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

package auth

import (
	"fmt"
	"strings"
	"time"

	"aidanwoods.dev/go-paseto"
	"github.com/google/uuid"

	"github.com/redmonkez12/eventflow/internal/user"
)

const pasetoV4LocalHeader = "v4.local."

// PasetoService handles PASETO token creation and validation
// Uses v4.local (symmetric encryption with XChaCha20-Poly1305)
type PasetoService struct {
	symmetricKey paseto.V4SymmetricKey
	now          func() time.Time
}

func NewPasetoService(symmetricKey []byte) (*PasetoService, error) {
	if len(symmetricKey) != 32 {
		return nil, fmt.Errorf("symmetric key must be exactly 32 bytes, got %d", len(symmetricKey))
	}

	key, err := paseto.V4SymmetricKeyFromBytes(symmetricKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create symmetric key: %w", err)
	}

	return &PasetoService{
		symmetricKey: key,
		now:          time.Now,
	}, nil
}

func (s *PasetoService) Issue(userID uuid.UUID, role user.Role, ttl time.Duration) (string, error) {
	now := s.now()

	token := paseto.NewToken()
	token.SetJti(uuid.NewString())
	token.SetSubject(userID.String())
	token.SetIssuedAt(now)
	token.SetExpiration(now.Add(ttl))
	token.SetString("role", string(role))

	return token.V4Encrypt(s.symmetricKey, nil), nil
}

// Verify decrypts the token and checks expiry against the service clock.
// Expiry is checked here rather than by the parser so that it uses s.now.
func (s *PasetoService) Verify(tokenStr string) (*Claims, error) {
	if !strings.HasPrefix(tokenStr, pasetoV4LocalHeader) {
		return nil, ErrMalformedToken
	}

	parser := paseto.NewParserWithoutExpiryCheck()
	token, err := parser.ParseV4Local(s.symmetricKey, tokenStr, nil)
	if err != nil {
		// v4.local authenticates the ciphertext, so a forged or altered body
		// fails here.
		return nil, ErrInvalidSignature
	}

	expiresAt, err := token.GetExpiration()
	if err != nil {
		return nil, ErrMalformedToken
	}
	if !s.now().Before(expiresAt) {
		return nil, ErrExpiredToken
	}

	issuedAt, err := token.GetIssuedAt()
	if err != nil {
		return nil, ErrMalformedToken
	}
	jti, err := token.GetJti()
	if err != nil || jti == "" {
		return nil, ErrMalformedToken
	}
	subject, err := token.GetSubject()
	if err != nil {
		return nil, ErrMalformedToken
	}
	userID, err := uuid.Parse(subject)
	if err != nil {
		return nil, ErrMalformedToken
	}
	roleStr, err := token.GetString("role")
	if err != nil {
		return nil, ErrMalformedToken
	}
	role := user.Role(roleStr)
	if !role.Valid() {
		return nil, ErrMalformedToken
	}

	return &Claims{
		TokenID:   jti,
		UserID:    userID,
		Role:      role,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}

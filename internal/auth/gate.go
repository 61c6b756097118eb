package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/redmonkez12/eventflow/internal/apperr"
	"github.com/redmonkez12/eventflow/internal/user"
)

var (
	ErrInsufficientRole = apperr.New(apperr.ErrForbidden, "forbidden: insufficient role")
	ErrNotOwner         = apperr.New(apperr.ErrForbidden, "forbidden: not the resource owner")
)

// Principal is the identity derived from a verified access token.
type Principal struct {
	UserID    uuid.UUID
	Role      user.Role
	TokenID   string
	ExpiresAt time.Time
}

// AuthorizeRole reports whether the principal holds exactly the required role.
func AuthorizeRole(p Principal, required user.Role) bool {
	return p.Role == required
}

// AuthorizeOwnership reports whether the principal is the resource owner.
func AuthorizeOwnership(p Principal, ownerID uuid.UUID) bool {
	return p.UserID == ownerID
}

// AuthorizeAction requires both the role and ownership.
func AuthorizeAction(p Principal, required user.Role, ownerID uuid.UUID) bool {
	return AuthorizeRole(p, required) && AuthorizeOwnership(p, ownerID)
}

// Authorize checks role, then resource existence, then ownership, and returns
// the first failure. lookupOwner is only called once the role check passed;
// its error (typically a not-found) is returned unchanged.
func Authorize(p Principal, required user.Role, lookupOwner func() (uuid.UUID, error)) error {
	if !AuthorizeRole(p, required) {
		return ErrInsufficientRole
	}
	ownerID, err := lookupOwner()
	if err != nil {
		return err
	}
	if !AuthorizeOwnership(p, ownerID) {
		return ErrNotOwner
	}
	return nil
}

// Denylist records revoked tokens until they would have expired. RevokeUser
// revokes every token a user holds at the given time.
type Denylist interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	RevokeUser(ctx context.Context, userID uuid.UUID, at time.Time) error
	IsRevoked(ctx context.Context, claims *Claims) (bool, error)
}

// Gate turns raw bearer tokens into principals.
type Gate struct {
	tokens   TokenService
	denylist Denylist
}

// NewGate builds a Gate. denylist may be nil, in which case tokens are valid
// until they expire.
func NewGate(tokens TokenService, denylist Denylist) *Gate {
	return &Gate{tokens: tokens, denylist: denylist}
}

// Authenticate verifies rawToken. Every token defect yields the same
// apperr.ErrUnauthenticated; the cause is kept in the chain for logging only.
// A denylist lookup failure is returned as a transient store error.
func (g *Gate) Authenticate(ctx context.Context, rawToken string) (Principal, error) {
	if rawToken == "" {
		return Principal{}, apperr.ErrUnauthenticated
	}

	claims, err := g.tokens.Verify(rawToken)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %w", apperr.ErrUnauthenticated, err)
	}

	if g.denylist != nil {
		revoked, err := g.denylist.IsRevoked(ctx, claims)
		if err != nil {
			if errors.Is(err, apperr.ErrTransientStore) {
				return Principal{}, err
			}
			return Principal{}, apperr.Transient("check token revocation", err)
		}
		if revoked {
			return Principal{}, fmt.Errorf("%w: token revoked", apperr.ErrUnauthenticated)
		}
	}

	return Principal{
		UserID:    claims.UserID,
		Role:      claims.Role,
		TokenID:   claims.TokenID,
		ExpiresAt: claims.ExpiresAt,
	}, nil
}

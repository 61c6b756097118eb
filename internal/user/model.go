package user

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is one of the two fixed account roles.
type Role string

const (
	RoleAttendee  Role = "attendee"
	RoleOrganizer Role = "organizer"
)

// ParseRole accepts the role names case-insensitively.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAttendee:
		return RoleAttendee, true
	case RoleOrganizer:
		return RoleOrganizer, true
	}
	return "", false
}

func (r Role) Valid() bool {
	return r == RoleAttendee || r == RoleOrganizer
}

type User struct {
	ID                      uuid.UUID  `json:"id"`
	Email                   string     `json:"email"`
	PasswordHash            string     `json:"-"` // Never expose password hash in JSON
	Role                    Role       `json:"role"`
	EmailVerified           bool       `json:"email_verified"`
	EmailVerificationToken  *string    `json:"-"`
	EmailVerificationSentAt *time.Time `json:"-"`
	CreatedAt               time.Time  `json:"created_at"`
	UpdatedAt               time.Time  `json:"updated_at"`
}

// NewUser holds the fields needed to create an account.
type NewUser struct {
	Email             string
	PasswordHash      string
	Role              Role
	VerificationToken string
}

// NormalizeEmail trims and lower-cases an address. Emails are stored and
// looked up only in this form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

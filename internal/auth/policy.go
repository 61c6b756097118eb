package auth

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/redmonkez12/eventflow/internal/apperr"
)

// PasswordPolicy accepts a candidate password or rejects it with an
// apperr.ValidationError naming the first failed rule.
type PasswordPolicy func(password string) error

// PolicyRules configures NewPasswordPolicy.
type PolicyRules struct {
	MinLength      int
	MaxLength      int // in bytes; bcrypt ignores input past 72
	RequireUpper   bool
	RequireLower   bool
	RequireDigit   bool
	RequireSpecial bool
}

func NewPasswordPolicy(rules PolicyRules) PasswordPolicy {
	return func(password string) error {
		if password == "" {
			return apperr.Validation("password", "password is required")
		}
		if utf8.RuneCountInString(password) < rules.MinLength {
			return apperr.Validation("password", fmt.Sprintf("must be at least %d characters", rules.MinLength))
		}
		if rules.MaxLength > 0 && len(password) > rules.MaxLength {
			return apperr.Validation("password", fmt.Sprintf("must be at most %d bytes", rules.MaxLength))
		}

		var hasUpper, hasLower, hasDigit, hasSpecial bool
		for _, r := range password {
			switch {
			case unicode.IsUpper(r):
				hasUpper = true
			case unicode.IsLower(r):
				hasLower = true
			case unicode.IsDigit(r):
				hasDigit = true
			case unicode.IsPunct(r) || unicode.IsSymbol(r):
				hasSpecial = true
			}
		}

		switch {
		case rules.RequireUpper && !hasUpper:
			return apperr.Validation("password", "must contain an uppercase letter")
		case rules.RequireLower && !hasLower:
			return apperr.Validation("password", "must contain a lowercase letter")
		case rules.RequireDigit && !hasDigit:
			return apperr.Validation("password", "must contain a digit")
		case rules.RequireSpecial && !hasSpecial:
			return apperr.Validation("password", "must contain a special character")
		}
		return nil
	}
}

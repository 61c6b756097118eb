package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/redmonkez12/eventflow/internal/apperr"
	"github.com/redmonkez12/eventflow/internal/logging"
	"github.com/redmonkez12/eventflow/internal/user"
	"github.com/redmonkez12/eventflow/internal/validation"
)

const (
	emailRules              = "required,email,max=254"
	verificationTokenMaxAge = 24 * time.Hour

	// compared against when the email is unknown, so both login failures
	// cost one hash verification
	dummyPassword = "dummy-password-for-timing"
)

var (
	ErrEmailNotVerified         = apperr.New(apperr.ErrForbidden, "email not verified, please check your inbox")
	ErrInvalidVerificationToken = apperr.Validation("token", "invalid verification token")
	ErrVerificationExpired      = apperr.Validation("token", "verification link has expired, please request a new one")
)

// UserStore is the credential store the service depends on.
type UserStore interface {
	Create(ctx context.Context, u user.NewUser) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error
	GetByVerificationToken(ctx context.Context, token string) (*user.User, error)
	MarkEmailAsVerified(ctx context.Context, userID uuid.UUID) error
	UpdateVerificationToken(ctx context.Context, userID uuid.UUID, token string) error
}

// ResetTokenStore keeps short-lived password reset tokens.
type ResetTokenStore interface {
	StorePasswordResetToken(ctx context.Context, userID uuid.UUID, token string) error
	GetPasswordResetToken(ctx context.Context, token string) (uuid.UUID, error)
	DeletePasswordResetToken(ctx context.Context, token string) error
}

// EmailService defines the interface for email operations
type EmailService interface {
	SendVerificationEmail(ctx context.Context, toEmail, token string) error
	SendPasswordResetEmail(ctx context.Context, toEmail, token string) error
}

// Session is returned by Register and Login.
type Session struct {
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type"`
	ExpiresIn   int64      `json:"expires_in"`
	Role        user.Role  `json:"role"`
	User        *user.User `json:"user"`
}

// Options are the fixed settings of a Service.
type Options struct {
	TokenTTL             time.Duration
	RequireVerifiedEmail bool
}

// Service handles authentication business logic
type Service struct {
	users    UserStore
	hasher   PasswordHasher
	policy   PasswordPolicy
	tokens   TokenService
	denylist Denylist
	resets   ResetTokenStore
	mailer   EmailService
	logger   *logging.Logger
	opts     Options
	now      func() time.Time

	dummyHash string
	mailWG    sync.WaitGroup
}

func NewService(
	users UserStore,
	hasher PasswordHasher,
	policy PasswordPolicy,
	tokens TokenService,
	denylist Denylist,
	resets ResetTokenStore,
	mailer EmailService,
	logger *logging.Logger,
	opts Options,
) (*Service, error) {
	dummyHash, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare dummy hash: %w", err)
	}

	return &Service{
		users:    users,
		hasher:   hasher,
		policy:   policy,
		tokens:   tokens,
		denylist: denylist,
		resets:   resets,
		mailer:   mailer,
		logger:   logger,
		opts:     opts,
		now:      time.Now,

		dummyHash: dummyHash,
	}, nil
}

// Register validates the input, creates the account and signs the caller in.
// A verification email is sent in the background.
func (s *Service) Register(ctx context.Context, email, password, role string) (*Session, error) {
	email, err := validateEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	parsedRole, ok := user.ParseRole(role)
	if !ok {
		return nil, apperr.Validation("role", fmt.Sprintf("must be %q or %q", user.RoleAttendee, user.RoleOrganizer))
	}
	if err := s.policy(password); err != nil {
		return nil, err
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, user.ErrDuplicateEmail
	} else if !errors.Is(err, user.ErrNotFound) {
		return nil, err
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	verificationToken, err := generateRandomToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate verification token: %w", err)
	}

	// The unique index still guards the race between the lookup above and
	// this insert; Create reports it as ErrDuplicateEmail.
	newUser, err := s.users.Create(ctx, user.NewUser{
		Email:             email,
		PasswordHash:      passwordHash,
		Role:              parsedRole,
		VerificationToken: verificationToken,
	})
	if err != nil {
		return nil, err
	}

	session, err := s.newSession(newUser)
	if err != nil {
		return nil, err
	}

	s.sendInBackground("verification", func(ctx context.Context) error {
		return s.mailer.SendVerificationEmail(ctx, newUser.Email, verificationToken)
	})

	s.logger.Audit("user registered", "user_id", newUser.ID, "role", newUser.Role)
	return session, nil
}

// Login checks the credentials. Unknown email and wrong password are
// reported identically.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = user.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperr.ErrInvalidCredentials
	}

	existingUser, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			s.hasher.Verify(password, s.dummyHash)
			return nil, apperr.ErrInvalidCredentials
		}
		return nil, err
	}

	if !s.hasher.Verify(password, existingUser.PasswordHash) {
		return nil, apperr.ErrInvalidCredentials
	}

	if s.opts.RequireVerifiedEmail && !existingUser.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	session, err := s.newSession(existingUser)
	if err != nil {
		return nil, err
	}

	s.logger.Audit("user logged in", "user_id", existingUser.ID)
	return session, nil
}

// Logout revokes the principal's current token.
func (s *Service) Logout(ctx context.Context, p Principal) error {
	if s.denylist == nil {
		return nil
	}
	if err := s.denylist.Revoke(ctx, p.TokenID, p.ExpiresAt); err != nil {
		return err
	}
	s.logger.Audit("user logged out", "user_id", p.UserID)
	return nil
}

// Me returns the principal's account.
func (s *Service) Me(ctx context.Context, p Principal) (*user.User, error) {
	return s.users.GetByID(ctx, p.UserID)
}

// ChangePassword replaces the password after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, p Principal, currentPassword, newPassword string) error {
	existingUser, err := s.users.GetByID(ctx, p.UserID)
	if err != nil {
		return err
	}

	if !s.hasher.Verify(currentPassword, existingUser.PasswordHash) {
		return apperr.ErrInvalidCredentials
	}
	if newPassword == currentPassword {
		return apperr.Validation("new_password", "must differ from the current password")
	}
	if err := s.policy(newPassword); err != nil {
		return err
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.revokeSessions(ctx, existingUser.ID); err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, existingUser.ID, passwordHash); err != nil {
		return err
	}

	s.logger.Audit("password changed", "user_id", existingUser.ID)
	return nil
}

// VerifyEmail verifies a user's email using the verification token
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return apperr.Validation("token", "verification token required")
	}

	existingUser, err := s.users.GetByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ErrInvalidVerificationToken
		}
		return err
	}

	if existingUser.EmailVerificationSentAt == nil ||
		s.now().After(existingUser.EmailVerificationSentAt.Add(verificationTokenMaxAge)) {
		return ErrVerificationExpired
	}

	return s.users.MarkEmailAsVerified(ctx, existingUser.ID)
}

// ResendVerificationEmail sends a new verification email to the user.
// Always returns nil to prevent email enumeration attacks.
func (s *Service) ResendVerificationEmail(ctx context.Context, email string) error {
	existingUser, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			s.logger.Warn("failed to get user for resend verification", "error", err)
		}
		return nil
	}

	if existingUser.EmailVerified {
		return nil
	}

	token, err := generateRandomToken()
	if err != nil {
		s.logger.Warn("failed to generate verification token", "error", err)
		return nil
	}

	if err := s.users.UpdateVerificationToken(ctx, existingUser.ID, token); err != nil {
		s.logger.Warn("failed to update verification token", "error", err)
		return nil
	}

	s.sendInBackground("verification", func(ctx context.Context) error {
		return s.mailer.SendVerificationEmail(ctx, existingUser.Email, token)
	})
	return nil
}

// RequestPasswordReset initiates the password reset process.
// Always returns nil to prevent email enumeration attacks.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	existingUser, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			s.logger.Warn("failed to get user for password reset", "error", err)
		}
		return nil
	}

	token, err := generateRandomToken()
	if err != nil {
		s.logger.Warn("failed to generate password reset token", "error", err)
		return nil
	}

	if err := s.resets.StorePasswordResetToken(ctx, existingUser.ID, token); err != nil {
		s.logger.Warn("failed to store password reset token", "error", err)
		return nil
	}

	s.sendInBackground("password reset", func(ctx context.Context) error {
		return s.mailer.SendPasswordResetEmail(ctx, existingUser.Email, token)
	})
	return nil
}

// ResetPassword resets a user's password using a valid reset token
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := s.policy(newPassword); err != nil {
		return err
	}

	userID, err := s.resets.GetPasswordResetToken(ctx, token)
	if err != nil {
		return err
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.revokeSessions(ctx, userID); err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, userID, passwordHash); err != nil {
		return err
	}

	if err := s.resets.DeletePasswordResetToken(ctx, token); err != nil {
		s.logger.Warn("failed to delete password reset token", "error", err)
	}

	s.logger.Audit("password reset", "user_id", userID)
	return nil
}

// revokeSessions invalidates every token the user holds. It runs before the
// password is replaced, so a failure leaves the old password in place.
func (s *Service) revokeSessions(ctx context.Context, userID uuid.UUID) error {
	if s.denylist == nil {
		return nil
	}
	return s.denylist.RevokeUser(ctx, userID, s.now())
}

// Wait blocks until background emails have been handed to the mailer.
func (s *Service) Wait() {
	s.mailWG.Wait()
}

func (s *Service) newSession(u *user.User) (*Session, error) {
	token, err := s.tokens.Issue(u.ID, u.Role, s.opts.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}
	return &Session{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.opts.TokenTTL.Seconds()),
		Role:        u.Role,
		User:        u,
	}, nil
}

// sendInBackground runs send on a detached context. Failures are logged:
// the user can always ask for another email.
func (s *Service) sendInBackground(kind string, send func(ctx context.Context) error) {
	if s.mailer == nil {
		return
	}
	s.mailWG.Add(1)
	go func() {
		defer s.mailWG.Done()
		ctx := logging.WithLogger(context.Background(), s.logger)
		if err := send(ctx); err != nil {
			s.logger.Warn("failed to send email", "kind", kind, "error", err)
		}
	}()
}

func validateEmail(ctx context.Context, raw string) (string, error) {
	email := user.NormalizeEmail(raw)
	if err := validation.Var(ctx, "email", email, emailRules); err != nil {
		return "", err
	}
	return email, nil
}

package user

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/uptrace/bun"

	"github.com/redmonkez12/eventflow/internal/apperr"
	"github.com/redmonkez12/eventflow/internal/database"
)

var (
	ErrNotFound       = apperr.New(apperr.ErrNotFound, "user not found")
	ErrDuplicateEmail = apperr.New(apperr.ErrConflict, "email already registered")
)

// uniqueViolation is the Postgres SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// Repository handles user data persistence
type Repository struct {
	db bun.IDB
}

func NewRepository(db bun.IDB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new user. The email is normalized before storage.
func (r *Repository) Create(ctx context.Context, u NewUser) (*User, error) {
	now := time.Now()
	dbUser := &database.User{
		Email:         NormalizeEmail(u.Email),
		PasswordHash:  u.PasswordHash,
		Role:          string(u.Role),
		EmailVerified: false,
	}
	if u.VerificationToken != "" {
		dbUser.EmailVerificationToken = &u.VerificationToken
		dbUser.EmailVerificationSentAt = &now
	}

	_, err := r.db.NewInsert().
		Model(dbUser).
		Returning("*").
		Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, apperr.Transient("failed to create user", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// GetByEmail retrieves a user by email, compared in normalized form.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where("email = ?", NormalizeEmail(email)).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, apperr.Transient("failed to get user by email", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// GetByID retrieves a user by ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, apperr.Transient("failed to get user by id", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// GetByVerificationToken retrieves an unverified user by verification token
func (r *Repository) GetByVerificationToken(ctx context.Context, token string) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where("email_verification_token = ?", token).
		Where("email_verified = ?", false).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, apperr.Transient("failed to get user by verification token", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// MarkEmailAsVerified marks a user's email as verified and clears the verification token
func (r *Repository) MarkEmailAsVerified(ctx context.Context, userID uuid.UUID) error {
	result, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("email_verified = ?", true).
		Set("email_verification_token = NULL").
		Set("email_verification_sent_at = NULL").
		Set("updated_at = NOW()").
		Where("id = ?", userID).
		Exec(ctx)
	if err != nil {
		return apperr.Transient("failed to mark email as verified", err)
	}

	return requireRow(result)
}

// UpdatePassword updates a user's password hash
func (r *Repository) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	result, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("password_hash = ?", passwordHash).
		Set("updated_at = NOW()").
		Where("id = ?", userID).
		Exec(ctx)
	if err != nil {
		return apperr.Transient("failed to update password", err)
	}

	return requireRow(result)
}

// UpdateVerificationToken regenerates verification token for resend
func (r *Repository) UpdateVerificationToken(ctx context.Context, userID uuid.UUID, token string) error {
	result, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("email_verification_token = ?", token).
		Set("email_verification_sent_at = ?", time.Now()).
		Set("updated_at = NOW()").
		Where("id = ?", userID).
		Where("email_verified = ?", false).
		Exec(ctx)
	if err != nil {
		return apperr.Transient("failed to update verification token", err)
	}

	return requireRow(result)
}

func requireRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperr.Transient("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// mapDBUserToModel converts database model to domain model
func mapDBUserToModel(dbu *database.User) *User {
	return &User{
		ID:                      dbu.ID,
		Email:                   dbu.Email,
		PasswordHash:            dbu.PasswordHash,
		Role:                    Role(dbu.Role),
		EmailVerified:           dbu.EmailVerified,
		EmailVerificationToken:  dbu.EmailVerificationToken,
		EmailVerificationSentAt: dbu.EmailVerificationSentAt,
		CreatedAt:               dbu.CreatedAt,
		UpdatedAt:               dbu.UpdatedAt,
	}
}

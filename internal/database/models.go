package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID                      uuid.UUID  `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Email                   string     `bun:"email,notnull,unique"`
	PasswordHash            string     `bun:"password_hash,notnull"`
	Role                    string     `bun:"role,notnull"`
	EmailVerified           bool       `bun:"email_verified,notnull,default:false"`
	EmailVerificationToken  *string    `bun:"email_verification_token"`
	EmailVerificationSentAt *time.Time `bun:"email_verification_sent_at"`
	CreatedAt               time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt               time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type Event struct {
	bun.BaseModel `bun:"table:events,alias:e"`

	ID          uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Title       string    `bun:"title,notnull"`
	Description string    `bun:"description"`
	Location    string    `bun:"location,notnull"`
	StartsAt    time.Time `bun:"starts_at,notnull"`
	CreatedBy   uuid.UUID `bun:"created_by,type:uuid,notnull"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt   time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type Registration struct {
	bun.BaseModel `bun:"table:registrations,alias:r"`

	ID            uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	EventID       uuid.UUID `bun:"event_id,type:uuid,notnull"`
	UserID        uuid.UUID `bun:"user_id,type:uuid,notnull"`
	Confirmed     bool      `bun:"confirmed,notnull,default:false"`
	FeedbackScore *int      `bun:"feedback_score"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt     time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type EngagementScore struct {
	bun.BaseModel `bun:"table:engagement_scores,alias:es"`

	EventID           uuid.UUID `bun:"event_id,pk,type:uuid"`
	RegistrationCount int       `bun:"registration_count,notnull"`
	ConfirmedCount    int       `bun:"confirmed_count,notnull"`
	FeedbackCount     int       `bun:"feedback_count,notnull"`
	RegistrationScore int       `bun:"registration_score,notnull"`
	AttendanceScore   int       `bun:"attendance_score,notnull"`
	FeedbackScore     float64   `bun:"feedback_score,notnull"`
	TotalScore        float64   `bun:"total_score,notnull"`
	CalculatedAt      time.Time `bun:"calculated_at,notnull"`
}

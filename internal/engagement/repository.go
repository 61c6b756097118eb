package engagement

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/uptrace/bun"

	"github.com/redmonkez12/eventflow/internal/apperr"
	"github.com/redmonkez12/eventflow/internal/database"
)

var ErrScoreNotFound = apperr.New(apperr.ErrNotFound, "engagement score not computed yet")

const foreignKeyViolation = "23503"

// Repository persists the latest score per event.
type Repository struct {
	db bun.IDB
}

func NewRepository(db bun.IDB) *Repository {
	return &Repository{db: db}
}

// Upsert stores s unless the stored row was calculated later than s.
func (r *Repository) Upsert(ctx context.Context, s *Score) error {
	dbScore := &database.EngagementScore{
		EventID:           s.EventID,
		RegistrationCount: s.RegistrationCount,
		ConfirmedCount:    s.ConfirmedCount,
		FeedbackCount:     s.FeedbackCount,
		RegistrationScore: s.RegistrationScore,
		AttendanceScore:   s.AttendanceScore,
		FeedbackScore:     s.FeedbackScore,
		TotalScore:        s.TotalScore,
		CalculatedAt:      s.CalculatedAt,
	}

	_, err := r.db.NewInsert().
		Model(dbScore).
		On("CONFLICT (event_id) DO UPDATE").
		Set("registration_count = EXCLUDED.registration_count").
		Set("confirmed_count = EXCLUDED.confirmed_count").
		Set("feedback_count = EXCLUDED.feedback_count").
		Set("registration_score = EXCLUDED.registration_score").
		Set("attendance_score = EXCLUDED.attendance_score").
		Set("feedback_score = EXCLUDED.feedback_score").
		Set("total_score = EXCLUDED.total_score").
		Set("calculated_at = EXCLUDED.calculated_at").
		Where("es.calculated_at <= EXCLUDED.calculated_at").
		Returning("NULL").
		Exec(ctx)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation {
			return apperr.New(apperr.ErrNotFound, "event not found")
		}
		return apperr.Transient("failed to store engagement score", err)
	}

	return nil
}

func (r *Repository) Get(ctx context.Context, eventID uuid.UUID) (*Score, error) {
	dbScore := new(database.EngagementScore)
	err := r.db.NewSelect().
		Model(dbScore).
		Where("event_id = ?", eventID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrScoreNotFound
		}
		return nil, apperr.Transient("failed to get engagement score", err)
	}

	return &Score{
		EventID:           dbScore.EventID,
		RegistrationCount: dbScore.RegistrationCount,
		ConfirmedCount:    dbScore.ConfirmedCount,
		FeedbackCount:     dbScore.FeedbackCount,
		RegistrationScore: dbScore.RegistrationScore,
		AttendanceScore:   dbScore.AttendanceScore,
		FeedbackScore:     dbScore.FeedbackScore,
		TotalScore:        dbScore.TotalScore,
		CalculatedAt:      dbScore.CalculatedAt,
	}, nil
}

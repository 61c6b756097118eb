package registration

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

var (
	ErrNotRegistered            = apperr.New(apperr.ErrNotFound, "registration not found")
	ErrAlreadyRegistered        = apperr.New(apperr.ErrConflict, "already registered for this event")
	ErrFeedbackAlreadySubmitted = apperr.New(apperr.ErrConflict, "feedback already submitted")
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// Repository handles registration persistence
type Repository struct {
	db bun.IDB
}

func NewRepository(db bun.IDB) *Repository {
	return &Repository{db: db}
}

// Create registers userID for eventID. A second registration for the same
// pair is reported as ErrAlreadyRegistered.
func (r *Repository) Create(ctx context.Context, eventID, userID uuid.UUID) (*Registration, error) {
	dbReg := &database.Registration{
		EventID: eventID,
		UserID:  userID,
	}

	_, err := r.db.NewInsert().
		Model(dbReg).
		Returning("*").
		Exec(ctx)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch pqErr.Code {
			case uniqueViolation:
				return nil, ErrAlreadyRegistered
			case foreignKeyViolation:
				return nil, apperr.New(apperr.ErrNotFound, "event not found")
			}
		}
		return nil, apperr.Transient("failed to create registration", err)
	}

	return mapDBRegistrationToModel(dbReg), nil
}

func (r *Repository) Get(ctx context.Context, eventID, userID uuid.UUID) (*Registration, error) {
	dbReg := new(database.Registration)
	err := r.db.NewSelect().
		Model(dbReg).
		Where("event_id = ?", eventID).
		Where("user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotRegistered
		}
		return nil, apperr.Transient("failed to get registration", err)
	}

	return mapDBRegistrationToModel(dbReg), nil
}

// ListByEvent returns every registration of an event in creation order.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]*Registration, error) {
	var rows []database.Registration
	err := r.db.NewSelect().
		Model(&rows).
		Where("event_id = ?", eventID).
		OrderExpr("created_at ASC").
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.Transient("failed to list registrations", err)
	}

	regs := make([]*Registration, 0, len(rows))
	for i := range rows {
		regs = append(regs, mapDBRegistrationToModel(&rows[i]))
	}
	return regs, nil
}

func (r *Repository) Delete(ctx context.Context, eventID, userID uuid.UUID) error {
	result, err := r.db.NewDelete().
		Model((*database.Registration)(nil)).
		Where("event_id = ?", eventID).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return apperr.Transient("failed to delete registration", err)
	}

	return requireRow(result, ErrNotRegistered)
}

// Confirm marks attendance. Confirming twice is not an error.
func (r *Repository) Confirm(ctx context.Context, eventID, userID uuid.UUID) error {
	result, err := r.db.NewUpdate().
		Model((*database.Registration)(nil)).
		Set("confirmed = ?", true).
		Set("updated_at = NOW()").
		Where("event_id = ?", eventID).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return apperr.Transient("failed to confirm attendance", err)
	}

	return requireRow(result, ErrNotRegistered)
}

// SetFeedback stores the rating only if none was stored before.
func (r *Repository) SetFeedback(ctx context.Context, eventID, userID uuid.UUID, rating int) error {
	result, err := r.db.NewUpdate().
		Model((*database.Registration)(nil)).
		Set("feedback_score = ?", rating).
		Set("updated_at = NOW()").
		Where("event_id = ?", eventID).
		Where("user_id = ?", userID).
		Where("feedback_score IS NULL").
		Exec(ctx)
	if err != nil {
		return apperr.Transient("failed to store feedback", err)
	}

	return requireRow(result, ErrFeedbackAlreadySubmitted)
}

func requireRow(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperr.Transient("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}

func mapDBRegistrationToModel(r *database.Registration) *Registration {
	return &Registration{
		ID:            r.ID,
		EventID:       r.EventID,
		UserID:        r.UserID,
		Confirmed:     r.Confirmed,
		FeedbackScore: r.FeedbackScore,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

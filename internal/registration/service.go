package registration

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/redmonkez12/eventflow/internal/apperr"
	"github.com/redmonkez12/eventflow/internal/auth"
	"github.com/redmonkez12/eventflow/internal/event"
	"github.com/redmonkez12/eventflow/internal/logging"
	"github.com/redmonkez12/eventflow/internal/user"
)

// Store is the persistence the service depends on.
type Store interface {
	Create(ctx context.Context, eventID, userID uuid.UUID) (*Registration, error)
	Get(ctx context.Context, eventID, userID uuid.UUID) (*Registration, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]*Registration, error)
	Delete(ctx context.Context, eventID, userID uuid.UUID) error
	Confirm(ctx context.Context, eventID, userID uuid.UUID) error
	SetFeedback(ctx context.Context, eventID, userID uuid.UUID, rating int) error
}

// EventLookup resolves events and their owners.
type EventLookup interface {
	Get(ctx context.Context, id uuid.UUID) (*event.Event, error)
	AuthorizeOwner(ctx context.Context, p auth.Principal, id uuid.UUID) (*event.Event, error)
}

// ScoreRefresher is told about every change to an event's registrations.
type ScoreRefresher interface {
	Refresh(ctx context.Context, eventID uuid.UUID) error
}

type Service struct {
	store     Store
	events    EventLookup
	refresher ScoreRefresher
	logger    *logging.Logger
}

// NewService builds the registration service. refresher may be nil.
func NewService(store Store, events EventLookup, refresher ScoreRefresher, logger *logging.Logger) *Service {
	return &Service{
		store:     store,
		events:    events,
		refresher: refresher,
		logger:    logger,
	}
}

// Register signs the attendee p up for eventID.
func (s *Service) Register(ctx context.Context, p auth.Principal, eventID uuid.UUID) (*Registration, error) {
	if !auth.AuthorizeRole(p, user.RoleAttendee) {
		return nil, auth.ErrInsufficientRole
	}
	if _, err := s.events.Get(ctx, eventID); err != nil {
		return nil, err
	}

	reg, err := s.store.Create(ctx, eventID, p.UserID)
	if err != nil {
		return nil, err
	}

	s.logger.Audit("registered for event", "event_id", eventID, "user_id", p.UserID)
	s.refresh(ctx, eventID)
	return reg, nil
}

// Unregister removes p's registration for eventID.
func (s *Service) Unregister(ctx context.Context, p auth.Principal, eventID uuid.UUID) error {
	if !auth.AuthorizeRole(p, user.RoleAttendee) {
		return auth.ErrInsufficientRole
	}

	if err := s.store.Delete(ctx, eventID, p.UserID); err != nil {
		return err
	}

	s.logger.Audit("unregistered from event", "event_id", eventID, "user_id", p.UserID)
	s.refresh(ctx, eventID)
	return nil
}

// ListForEvent returns the registrations of an event owned by p.
func (s *Service) ListForEvent(ctx context.Context, p auth.Principal, eventID uuid.UUID) ([]*Registration, error) {
	if _, err := s.events.AuthorizeOwner(ctx, p, eventID); err != nil {
		return nil, err
	}
	return s.store.ListByEvent(ctx, eventID)
}

// ConfirmAttendance flips the confirmation flag of attendeeID's registration.
func (s *Service) ConfirmAttendance(ctx context.Context, p auth.Principal, eventID, attendeeID uuid.UUID) error {
	if _, err := s.events.AuthorizeOwner(ctx, p, eventID); err != nil {
		return err
	}

	if err := s.store.Confirm(ctx, eventID, attendeeID); err != nil {
		return err
	}

	s.logger.Audit("attendance confirmed", "event_id", eventID, "attendee_id", attendeeID, "user_id", p.UserID)
	s.refresh(ctx, eventID)
	return nil
}

// SubmitFeedback records a 1-5 rating from a registered attendee. Each
// registration takes at most one rating.
func (s *Service) SubmitFeedback(ctx context.Context, p auth.Principal, eventID uuid.UUID, rating int) error {
	if !auth.AuthorizeRole(p, user.RoleAttendee) {
		return auth.ErrInsufficientRole
	}
	if rating < MinFeedback || rating > MaxFeedback {
		return apperr.Validation("rating", fmt.Sprintf("must be between %d and %d", MinFeedback, MaxFeedback))
	}

	reg, err := s.store.Get(ctx, eventID, p.UserID)
	if err != nil {
		return err
	}
	if reg.FeedbackScore != nil {
		return ErrFeedbackAlreadySubmitted
	}

	if err := s.store.SetFeedback(ctx, eventID, p.UserID, rating); err != nil {
		return err
	}

	s.logger.Info("feedback submitted", "event_id", eventID, "user_id", p.UserID, "rating", rating)
	s.refresh(ctx, eventID)
	return nil
}

// refresh recomputes the event's score. The mutation has already succeeded,
// so a failure only leaves the stored score stale.
func (s *Service) refresh(ctx context.Context, eventID uuid.UUID) {
	if s.refresher == nil {
		return
	}
	if err := s.refresher.Refresh(ctx, eventID); err != nil {
		s.logger.Warn("engagement score refresh failed", "event_id", eventID, "error", err)
	}
}

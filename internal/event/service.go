package event

import (
	"context"

	"github.com/google/uuid"

	"github.com/redmonkez12/eventflow/internal/auth"
	"github.com/redmonkez12/eventflow/internal/logging"
	"github.com/redmonkez12/eventflow/internal/user"
	"github.com/redmonkez12/eventflow/internal/validation"
)

// Store is the persistence the service depends on.
type Store interface {
	Create(ctx context.Context, ownerID uuid.UUID, in Input) (*Event, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Event, error)
	List(ctx context.Context, f ListFilter) ([]*Event, error)
	Update(ctx context.Context, id uuid.UUID, in Input) (*Event, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type Service struct {
	store  Store
	logger *logging.Logger
}

func NewService(store Store, logger *logging.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Create stores a new event owned by p. Only organizers may create events.
func (s *Service) Create(ctx context.Context, p auth.Principal, in Input) (*Event, error) {
	if !auth.AuthorizeRole(p, user.RoleOrganizer) {
		return nil, auth.ErrInsufficientRole
	}
	if err := validation.Var(ctx, "starts_at", in.StartsAt, startsAtRule); err != nil {
		return nil, err
	}

	e, err := s.store.Create(ctx, p.UserID, in)
	if err != nil {
		return nil, err
	}

	s.logger.Audit("event created", "event_id", e.ID, "user_id", p.UserID)
	return e, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Event, error) {
	return s.store.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]*Event, error) {
	return s.store.List(ctx, f)
}

// Update replaces the editable fields of an event owned by p. An event that
// has already started keeps accepting edits as long as its start time is
// left unchanged.
func (s *Service) Update(ctx context.Context, p auth.Principal, id uuid.UUID, in Input) (*Event, error) {
	current, err := s.AuthorizeOwner(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if !in.StartsAt.Equal(current.StartsAt) {
		if err := validation.Var(ctx, "starts_at", in.StartsAt, startsAtRule); err != nil {
			return nil, err
		}
	}

	e, err := s.store.Update(ctx, id, in)
	if err != nil {
		return nil, err
	}

	s.logger.Audit("event updated", "event_id", id, "user_id", p.UserID)
	return e, nil
}

func (s *Service) Delete(ctx context.Context, p auth.Principal, id uuid.UUID) error {
	if _, err := s.AuthorizeOwner(ctx, p, id); err != nil {
		return err
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Audit("event deleted", "event_id", id, "user_id", p.UserID)
	return nil
}

// AuthorizeOwner checks that p is the organizer who owns event id, in the
// order role, existence, ownership. It returns the event on success.
func (s *Service) AuthorizeOwner(ctx context.Context, p auth.Principal, id uuid.UUID) (*Event, error) {
	var e *Event
	err := auth.Authorize(p, user.RoleOrganizer, func() (uuid.UUID, error) {
		found, err := s.store.GetByID(ctx, id)
		if err != nil {
			return uuid.Nil, err
		}
		e = found
		return found.CreatedBy, nil
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

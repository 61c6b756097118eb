package engagement

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/redmonkez12/eventflow/internal/apperr"
	"github.com/redmonkez12/eventflow/internal/auth"
	"github.com/redmonkez12/eventflow/internal/event"
	"github.com/redmonkez12/eventflow/internal/logging"
	"github.com/redmonkez12/eventflow/internal/registration"
)

// RegistrationReader reads an event's registration set.
type RegistrationReader interface {
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]*registration.Registration, error)
}

// ScoreStore keeps the latest score per event.
type ScoreStore interface {
	Upsert(ctx context.Context, s *Score) error
	Get(ctx context.Context, eventID uuid.UUID) (*Score, error)
}

// EventAuthorizer checks event ownership.
type EventAuthorizer interface {
	AuthorizeOwner(ctx context.Context, p auth.Principal, id uuid.UUID) (*event.Event, error)
}

type Service struct {
	regs   RegistrationReader
	scores ScoreStore
	events EventAuthorizer
	logger *logging.Logger
	now    func() time.Time
}

func NewService(regs RegistrationReader, scores ScoreStore, events EventAuthorizer, logger *logging.Logger) *Service {
	return &Service{
		regs:   regs,
		scores: scores,
		events: events,
		logger: logger,
		now:    time.Now,
	}
}

// ComputeEngagementScore recomputes and stores the score of eventID. When
// the registrations cannot be read nothing is written, so the stored score
// stays as it was.
func (s *Service) ComputeEngagementScore(ctx context.Context, eventID uuid.UUID) (*Score, error) {
	regs, err := s.regs.ListByEvent(ctx, eventID)
	if err != nil {
		if !errors.Is(err, apperr.ErrTransientStore) {
			err = apperr.Transient("read registrations", err)
		}
		return nil, err
	}

	score := Compute(Aggregate(regs))
	score.EventID = eventID
	score.CalculatedAt = s.now().UTC()

	if err := s.scores.Upsert(ctx, &score); err != nil {
		return nil, err
	}

	s.logger.Debug("engagement score computed",
		"event_id", eventID,
		"registrations", score.RegistrationCount,
		"total", score.TotalScore,
	)
	return &score, nil
}

// GetScore returns the stored score of an event owned by p, computing it
// first if none is stored yet.
func (s *Service) GetScore(ctx context.Context, p auth.Principal, eventID uuid.UUID) (*Score, error) {
	if _, err := s.events.AuthorizeOwner(ctx, p, eventID); err != nil {
		return nil, err
	}

	score, err := s.scores.Get(ctx, eventID)
	if errors.Is(err, ErrScoreNotFound) {
		return s.ComputeEngagementScore(ctx, eventID)
	}
	return score, err
}

// Recompute forces a fresh computation for an event owned by p.
func (s *Service) Recompute(ctx context.Context, p auth.Principal, eventID uuid.UUID) (*Score, error) {
	if _, err := s.events.AuthorizeOwner(ctx, p, eventID); err != nil {
		return nil, err
	}
	return s.ComputeEngagementScore(ctx, eventID)
}

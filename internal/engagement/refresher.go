package engagement

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/redmonkez12/eventflow/internal/apperr"
)

// RefreshMessage is the queue payload asking for a recomputation.
type RefreshMessage struct {
	EventID uuid.UUID `json:"event_id"`
}

// InlineRefresher recomputes within the caller's request.
type InlineRefresher struct {
	service *Service
}

func NewInlineRefresher(service *Service) *InlineRefresher {
	return &InlineRefresher{service: service}
}

func (r *InlineRefresher) Refresh(ctx context.Context, eventID uuid.UUID) error {
	_, err := r.service.ComputeEngagementScore(ctx, eventID)
	return err
}

// Publisher sends a message body to the refresh queue.
type Publisher interface {
	Publish(ctx context.Context, body []byte) error
}

// QueueRefresher hands recomputation to the worker through a queue.
type QueueRefresher struct {
	publisher Publisher
}

func NewQueueRefresher(publisher Publisher) *QueueRefresher {
	return &QueueRefresher{publisher: publisher}
}

func (r *QueueRefresher) Refresh(ctx context.Context, eventID uuid.UUID) error {
	body, err := json.Marshal(RefreshMessage{EventID: eventID})
	if err != nil {
		return fmt.Errorf("marshal refresh message: %w", err)
	}
	if err := r.publisher.Publish(ctx, body); err != nil {
		return apperr.Transient("publish refresh message", err)
	}
	return nil
}

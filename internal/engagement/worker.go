package engagement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/redmonkez12/eventflow/internal/apperr"
	"github.com/redmonkez12/eventflow/internal/logging"
	"github.com/redmonkez12/eventflow/internal/rabbit"
)

// Consumer delivers queued messages to a handler until ctx ends.
type Consumer interface {
	Consume(ctx context.Context, handler rabbit.Handler) error
}

// Worker consumes refresh messages and recomputes scores.
type Worker struct {
	consumer Consumer
	service  *Service
	logger   *logging.Logger
}

func NewWorker(consumer Consumer, service *Service, logger *logging.Logger) *Worker {
	return &Worker{consumer: consumer, service: service, logger: logger}
}

// Run blocks until ctx is cancelled or the consumer fails.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("engagement worker started")
	defer w.logger.Info("engagement worker stopped")
	return w.consumer.Consume(ctx, w.handle)
}

// handle requeues on transient store failures and drops anything that
// cannot succeed on retry.
func (w *Worker) handle(ctx context.Context, body []byte) error {
	var msg RefreshMessage
	if err := json.Unmarshal(body, &msg); err != nil || msg.EventID == uuid.Nil {
		return fmt.Errorf("%w: invalid refresh message %q", rabbit.ErrDrop, body)
	}

	ctx = logging.WithLogger(ctx, w.logger.WithFields(map[string]any{"event_id": msg.EventID}))

	_, err := w.service.ComputeEngagementScore(ctx, msg.EventID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, apperr.ErrTransientStore):
		return err
	case errors.Is(err, apperr.ErrNotFound):
		w.logger.Info("skipping refresh for deleted event", "event_id", msg.EventID)
		return nil
	default:
		return fmt.Errorf("%w: %w", rabbit.ErrDrop, err)
	}
}

package rabbit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sethvargo/go-retry"
	"github.com/stretchr/testify/assert"

	"github.com/redmonkez12/eventflow/internal/logging"
)

type ackRecorder struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (a *ackRecorder) Ack(uint64, bool) error { a.acked = true; return nil }

func (a *ackRecorder) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked, a.requeue = true, requeue
	return nil
}

func (a *ackRecorder) Reject(_ uint64, requeue bool) error {
	a.nacked, a.requeue = true, requeue
	return nil
}

// newTestDispatcher records requested delays instead of sleeping.
func newTestDispatcher(handler Handler) (*dispatcher, *[]time.Duration) {
	var waits []time.Duration
	p := newDispatcher(handler, logging.NewLoggerWithWriter(io.Discard, false))
	p.newBackoff = func() retry.Backoff { return retry.NewExponential(100 * time.Millisecond) }
	p.wait = func(_ context.Context, d time.Duration) { waits = append(waits, d) }
	return p, &waits
}

func delivery(rec *ackRecorder) amqp.Delivery {
	return amqp.Delivery{Acknowledger: rec, DeliveryTag: 1, Body: []byte(`{}`)}
}

func TestDispatch(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantAck     bool
		wantRequeue bool
		wantWaits   int
	}{
		{"success acks", nil, true, false, 0},
		{"transient requeues after a delay", errors.New("db down"), false, true, 1},
		{"drop rejects", fmt.Errorf("%w: bad payload", ErrDrop), false, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &ackRecorder{}
			var got []byte
			p, waits := newTestDispatcher(func(_ context.Context, body []byte) error {
				got = body
				return tt.err
			})

			p.dispatch(context.Background(), delivery(rec))

			assert.Equal(t, []byte(`{}`), got)
			assert.Equal(t, tt.wantAck, rec.acked)
			assert.Equal(t, !tt.wantAck, rec.nacked)
			assert.Equal(t, tt.wantRequeue, rec.requeue)
			assert.Len(t, *waits, tt.wantWaits)
		})
	}
}

func TestDispatch_RequeueDelayGrowsUntilSuccess(t *testing.T) {
	failing := true
	p, waits := newTestDispatcher(func(context.Context, []byte) error {
		if failing {
			return errors.New("db down")
		}
		return nil
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		p.dispatch(ctx, delivery(&ackRecorder{}))
	}
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond}, *waits)

	failing = false
	p.dispatch(ctx, delivery(&ackRecorder{}))

	failing = true
	p.dispatch(ctx, delivery(&ackRecorder{}))
	assert.Equal(t, 100*time.Millisecond, (*waits)[3], "a success resets the backoff")
}

func TestSleepContext_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	sleepContext(ctx, time.Minute)
	assert.Less(t, time.Since(start), time.Second)
}

func TestDefaultRequeueBackoff_Capped(t *testing.T) {
	b := defaultRequeueBackoff()
	var last time.Duration
	for i := 0; i < 20; i++ {
		last, _ = b.Next()
	}
	assert.LessOrEqual(t, last, requeueMaxDelay+requeueMaxDelay/10)
}

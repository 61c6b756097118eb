// Package rabbit is a small RabbitMQ client: one connection, one channel,
// one durable direct exchange bound to one durable queue.
package rabbit

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sethvargo/go-retry"

	"github.com/redmonkez12/eventflow/internal/logging"
)

// ErrDrop tells Consume to reject a message without requeueing it.
var ErrDrop = errors.New("drop message")

// Handler processes one message body. A nil return acks the message, an
// error wrapping ErrDrop rejects it, and any other error requeues it after a
// growing delay.
type Handler func(ctx context.Context, body []byte) error

const (
	requeueBaseDelay = 200 * time.Millisecond
	requeueMaxDelay  = 30 * time.Second
)

func defaultRequeueBackoff() retry.Backoff {
	return retry.WithJitterPercent(10,
		retry.WithCappedDuration(requeueMaxDelay, retry.NewExponential(requeueBaseDelay)))
}

type Client struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	exchange   string
	queue      string
	routingKey string
	logger     *logging.Logger
}

// Dial connects and declares the exchange, the queue and their binding. The
// queue name doubles as the routing key.
func Dial(url, exchange, queue string, logger *logging.Logger) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open RabbitMQ channel: %w", err)
	}

	client := &Client{
		conn:       conn,
		channel:    ch,
		exchange:   exchange,
		queue:      queue,
		routingKey: queue,
		logger:     logger,
	}

	if err := client.declare(); err != nil {
		client.Close()
		return nil, err
	}

	logger.Info("RabbitMQ initialized", "exchange", exchange, "queue", queue)
	return client, nil
}

func (c *Client) declare() error {
	if err := c.channel.ExchangeDeclare(
		c.exchange,
		amqp.ExchangeDirect,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	if _, err := c.channel.QueueDeclare(
		c.queue,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := c.channel.QueueBind(
		c.queue,
		c.routingKey,
		c.exchange,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	// One unacked message at a time per consumer.
	if err := c.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("failed to set prefetch: %w", err)
	}
	return nil
}

func (c *Client) Close() {
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.logger.Info("RabbitMQ connection closed")
}

// Publish sends a persistent JSON message to the exchange.
func (c *Client) Publish(ctx context.Context, body []byte) error {
	err := c.channel.PublishWithContext(ctx,
		c.exchange,
		c.routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	c.logger.Debug("message published", "exchange", c.exchange, "routing_key", c.routingKey)
	return nil
}

// Consume delivers messages to handler until ctx is cancelled or the
// channel closes. It blocks.
func (c *Client) Consume(ctx context.Context, handler Handler) error {
	msgs, err := c.channel.ConsumeWithContext(ctx,
		c.queue,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	c.logger.Info("started consuming", "queue", c.queue)

	disp := newDispatcher(handler, c.logger)

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("delivery channel closed")
			}
			disp.dispatch(ctx, d)
		}
	}
}

// dispatcher acks or nacks deliveries from one consumer loop. Consecutive
// requeues back off so a failing store is not hammered with the same message.
type dispatcher struct {
	handler    Handler
	logger     *logging.Logger
	newBackoff func() retry.Backoff
	backoff    retry.Backoff
	wait       func(ctx context.Context, d time.Duration)
}

func newDispatcher(handler Handler, logger *logging.Logger) *dispatcher {
	return &dispatcher{
		handler:    handler,
		logger:     logger,
		newBackoff: defaultRequeueBackoff,
		wait:       sleepContext,
	}
}

func (p *dispatcher) dispatch(ctx context.Context, d amqp.Delivery) {
	err := p.handler(ctx, d.Body)
	switch {
	case err == nil:
		p.backoff = nil
		if ackErr := d.Ack(false); ackErr != nil {
			p.logger.Warn("failed to ack message", "error", ackErr)
		}
	case errors.Is(err, ErrDrop):
		p.backoff = nil
		p.logger.Error("dropping message", "error", err)
		if nackErr := d.Nack(false, false); nackErr != nil {
			p.logger.Warn("failed to reject message", "error", nackErr)
		}
	default:
		delay := p.nextDelay()
		p.logger.Warn("failed to process message, requeueing", "error", err, "delay", delay)
		p.wait(ctx, delay)
		if nackErr := d.Nack(false, true); nackErr != nil {
			p.logger.Warn("failed to requeue message", "error", nackErr)
		}
	}
}

func (p *dispatcher) nextDelay() time.Duration {
	if p.backoff == nil {
		p.backoff = p.newBackoff()
	}
	delay, _ := p.backoff.Next()
	return delay
}

func sleepContext(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

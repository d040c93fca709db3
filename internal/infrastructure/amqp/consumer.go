package amqp

import (
	"context"
	"fmt"
	"time"

	"auction-sync/internal/domain"
	"auction-sync/pkg/logger"
	"auction-sync/pkg/utils"

	"github.com/streadway/amqp"
)

// Consumer reads from fanout exchanges. Each subscription binds an
// exclusive auto-delete queue, so a new connection only sees new messages.
type Consumer struct {
	url            string
	prefetch       int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	health         *utils.ChannelHealth
	log            logger.Logger
}

func NewConsumer(url string, prefetch int, initialBackoff, maxBackoff time.Duration, log logger.Logger) *Consumer {
	return &Consumer{
		url:            url,
		prefetch:       prefetch,
		initialBackoff: initialBackoff,
		maxBackoff:     maxBackoff,
		health:         utils.NewChannelHealth(),
		log:            log,
	}
}

// Subscribe consumes exchange until ctx is cancelled, reconnecting with
// backoff after connection loss.
func (c *Consumer) Subscribe(ctx context.Context, exchange string, handler domain.PayloadHandler) error {
	backoff := utils.NewBackoff(c.initialBackoff, c.maxBackoff)
	c.health.Track(exchange)
	defer c.health.Forget(exchange)

	for {
		err := c.consume(ctx, exchange, handler, backoff)
		if ctx.Err() != nil {
			c.log.Info("AMQP consumer stopped", "exchange", exchange)
			return ctx.Err()
		}

		c.log.Warn("AMQP consumer disconnected, reconnecting", "exchange", exchange, "error", err)
		if !backoff.Wait(ctx) {
			c.log.Info("AMQP consumer stopped", "exchange", exchange)
			return ctx.Err()
		}
	}
}

func (c *Consumer) consume(ctx context.Context, exchange string, handler domain.PayloadHandler,
	backoff *utils.Backoff) error {
	conn, err := amqp.DialConfig(c.url, amqp.Config{
		Heartbeat: 60 * time.Second,
		Locale:    "en_US",
	})
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}
	defer conn.Close()

	channel, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to create channel: %w", err)
	}
	defer channel.Close()

	if err := channel.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := declareAndConsume(channel, exchange)
	if err != nil {
		return err
	}

	closed := conn.NotifyClose(make(chan *amqp.Error, 1))

	c.health.Set(exchange, true)
	defer c.health.Set(exchange, false)
	backoff.Reset()
	c.log.Info("Consuming exchange", "exchange", exchange)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case amqpErr := <-closed:
			if amqpErr == nil {
				return fmt.Errorf("connection closed")
			}
			return amqpErr
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			c.dispatch(exchange, delivery.Body, handler)
		}
	}
}

func declareAndConsume(channel *amqp.Channel, exchange string) (<-chan amqp.Delivery, error) {
	if err := channel.ExchangeDeclare(
		exchange,
		amqp.ExchangeFanout,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	); err != nil {
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	queue, err := channel.QueueDeclare(
		"",    // name (auto-generated)
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := channel.QueueBind(queue.Name, "", exchange, false, nil); err != nil {
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	msgs, err := channel.Consume(
		queue.Name,
		"",    // consumer
		true,  // auto-ack
		true,  // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return nil, fmt.Errorf("failed to consume: %w", err)
	}
	return msgs, nil
}

func (c *Consumer) dispatch(exchange string, body []byte, handler domain.PayloadHandler) {
	defer func() {
		if rec := recover(); rec != nil {
			c.log.Error("Handler panicked", "exchange", exchange, "panic", rec)
		}
	}()
	handler(body)
}

// Connected is false while any subscribed exchange is reconnecting.
func (c *Consumer) Connected() bool {
	return c.health.AllLive()
}

var _ domain.Subscriber = (*Consumer)(nil)

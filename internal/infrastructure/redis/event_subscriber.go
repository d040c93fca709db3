package redis

import (
	"context"
	"time"

	"auction-sync/internal/domain"
	"auction-sync/pkg/logger"
	"auction-sync/pkg/utils"

	"github.com/go-redis/redis/v8"
)

// RedisEventSubscriber delivers pub/sub payloads to a handler, resubscribing
// with exponential backoff whenever the connection drops.
type RedisEventSubscriber struct {
	client         *redis.Client
	initialBackoff time.Duration
	maxBackoff     time.Duration
	health         *utils.ChannelHealth
	log            logger.Logger
}

func NewRedisEventSubscriber(client *redis.Client, initialBackoff, maxBackoff time.Duration,
	log logger.Logger) *RedisEventSubscriber {
	return &RedisEventSubscriber{
		client:         client,
		initialBackoff: initialBackoff,
		maxBackoff:     maxBackoff,
		health:         utils.NewChannelHealth(),
		log:            log,
	}
}

// Subscribe blocks until ctx is cancelled and always unsubscribes on return.
func (r *RedisEventSubscriber) Subscribe(ctx context.Context, channel string, handler domain.PayloadHandler) error {
	backoff := utils.NewBackoff(r.initialBackoff, r.maxBackoff)
	r.health.Track(channel)
	defer r.health.Forget(channel)

	for {
		err := r.consume(ctx, channel, handler, backoff)
		if ctx.Err() != nil {
			r.log.Info("Event subscriber stopped", "channel", channel)
			return ctx.Err()
		}

		r.log.Warn("Subscription dropped, reconnecting", "channel", channel, "error", err)
		if !backoff.Wait(ctx) {
			r.log.Info("Event subscriber stopped", "channel", channel)
			return ctx.Err()
		}
	}
}

func (r *RedisEventSubscriber) consume(ctx context.Context, channel string, handler domain.PayloadHandler,
	backoff *utils.Backoff) error {
	pubsub := r.client.Subscribe(ctx, channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}

	r.health.Set(channel, true)
	defer r.health.Set(channel, false)
	backoff.Reset()
	r.log.Info("Subscribed to channel", "channel", channel)

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			return err
		}
		r.dispatch(channel, msg.Payload, handler)
	}
}

// dispatch isolates the subscription loop from handler panics.
func (r *RedisEventSubscriber) dispatch(channel, payload string, handler domain.PayloadHandler) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("Handler panicked", "channel", channel, "payload", payload, "panic", rec)
		}
	}()
	handler([]byte(payload))
}

// Connected reports whether every active subscription is live.
func (r *RedisEventSubscriber) Connected() bool {
	return r.health.AllLive()
}

var _ domain.Subscriber = (*RedisEventSubscriber)(nil)

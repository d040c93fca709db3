// Package app holds the wiring shared by the binaries under cmd/.
package app

import (
	"context"
	"fmt"
	"time"

	"auction-sync/internal/config"
	"auction-sync/internal/domain"
	amqptransport "auction-sync/internal/infrastructure/amqp"
	"auction-sync/internal/infrastructure/redis"
	"auction-sync/pkg/logger"

	redisClient "github.com/go-redis/redis/v8"
)

// NewRedisClient connects and pings Redis.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redisClient.Client, error) {
	rdb := redisClient.NewClient(&redisClient.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", cfg.Address, err)
	}
	return rdb, nil
}

// Channels returns the notification and live-bid channel names for the
// configured transport.
func Channels(cfg *config.Config) (notification, liveBid string) {
	if cfg.Transport.Kind == config.TransportAMQP {
		return cfg.AMQP.NotificationExchange, cfg.AMQP.LiveBidExchange
	}
	return cfg.Transport.NotificationChannel, cfg.Transport.LiveBidChannel
}

// NewSubscriber builds the broker subscriber. rdb may be nil for AMQP.
func NewSubscriber(cfg *config.Config, rdb *redisClient.Client, log logger.Logger) (domain.Subscriber, error) {
	switch cfg.Transport.Kind {
	case config.TransportRedis:
		if rdb == nil {
			return nil, fmt.Errorf("redis transport requires a redis client")
		}
		return redis.NewRedisEventSubscriber(rdb, cfg.Transport.InitialBackoff, cfg.Transport.MaxBackoff, log), nil
	case config.TransportAMQP:
		return amqptransport.NewConsumer(cfg.AMQP.URL, cfg.AMQP.Prefetch,
			cfg.Transport.InitialBackoff, cfg.Transport.MaxBackoff, log), nil
	}
	return nil, fmt.Errorf("unsupported transport kind %q", cfg.Transport.Kind)
}

// NewPublisher builds the broker publisher. rdb may be nil for AMQP.
func NewPublisher(cfg *config.Config, rdb *redisClient.Client) (domain.EventPublisher, error) {
	notification, liveBid := Channels(cfg)
	switch cfg.Transport.Kind {
	case config.TransportRedis:
		if rdb == nil {
			return nil, fmt.Errorf("redis transport requires a redis client")
		}
		return redis.NewEventPublisher(rdb, notification, liveBid), nil
	case config.TransportAMQP:
		return amqptransport.NewPublisher(cfg.AMQP.URL, notification, liveBid), nil
	}
	return nil, fmt.Errorf("unsupported transport kind %q", cfg.Transport.Kind)
}

// InstanceID returns the configured id or a generated one.
func InstanceID(cfg *config.Config, generate func(string) string) string {
	if cfg.Instance.ID != "" {
		return cfg.Instance.ID
	}
	return generate("auction-sync")
}

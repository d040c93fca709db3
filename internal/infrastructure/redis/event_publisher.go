package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"auction-sync/internal/domain"

	"github.com/go-redis/redis/v8"
)

type EventPublisherImpl struct {
	client              *redis.Client
	notificationChannel string
	liveBidChannel      string
}

func NewEventPublisher(client *redis.Client, notificationChannel, liveBidChannel string) *EventPublisherImpl {
	return &EventPublisherImpl{
		client:              client,
		notificationChannel: notificationChannel,
		liveBidChannel:      liveBidChannel,
	}
}

func (r *EventPublisherImpl) PublishDomainEvent(ctx context.Context, event *domain.DomainEvent) error {
	return r.publish(ctx, r.notificationChannel, event)
}

func (r *EventPublisherImpl) PublishLiveBid(ctx context.Context, bid *domain.LiveBid) error {
	return r.publish(ctx, r.liveBidChannel, bid)
}

func (r *EventPublisherImpl) publish(ctx context.Context, channel string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("redis: marshal for %s: %w", channel, err)
	}
	if err := r.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", channel, err)
	}
	return nil
}

var _ domain.EventPublisher = (*EventPublisherImpl)(nil)

package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"auction-sync/internal/domain"

	"github.com/streadway/amqp"
)

// Publisher publishes JSON messages to the notification and live-bid
// fanout exchanges over one lazily opened connection.
type Publisher struct {
	url                  string
	notificationExchange string
	liveBidExchange      string
	conn                 *amqp.Connection
	channel              *amqp.Channel
	mutex                sync.Mutex
}

func NewPublisher(url, notificationExchange, liveBidExchange string) *Publisher {
	return &Publisher{
		url:                  url,
		notificationExchange: notificationExchange,
		liveBidExchange:      liveBidExchange,
	}
}

func (p *Publisher) PublishDomainEvent(ctx context.Context, event *domain.DomainEvent) error {
	return p.publish(ctx, p.notificationExchange, event)
}

func (p *Publisher) PublishLiveBid(ctx context.Context, bid *domain.LiveBid) error {
	return p.publish(ctx, p.liveBidExchange, bid)
}

func (p *Publisher) publish(ctx context.Context, exchange string, v interface{}) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("amqp: marshal for %s: %w", exchange, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()

	channel, err := p.ensureChannel(exchange)
	if err != nil {
		return err
	}

	err = channel.Publish(exchange, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		// Force a fresh connection on the next publish.
		p.closeLocked()
		return fmt.Errorf("amqp: publish %s: %w", exchange, err)
	}
	return nil
}

func (p *Publisher) ensureChannel(exchange string) (*amqp.Channel, error) {
	if p.channel == nil {
		conn, err := amqp.Dial(p.url)
		if err != nil {
			return nil, fmt.Errorf("amqp: dial: %w", err)
		}
		channel, err := conn.Channel()
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("amqp: channel: %w", err)
		}
		p.conn, p.channel = conn, channel
	}

	if err := p.channel.ExchangeDeclare(exchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		p.closeLocked()
		return nil, fmt.Errorf("amqp: declare exchange %s: %w", exchange, err)
	}
	return p.channel, nil
}

func (p *Publisher) Close() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.closeLocked()
}

func (p *Publisher) closeLocked() error {
	var err error
	if p.channel != nil {
		p.channel.Close()
		p.channel = nil
	}
	if p.conn != nil {
		err = p.conn.Close()
		p.conn = nil
	}
	return err
}

var _ domain.EventPublisher = (*Publisher)(nil)

package services

import (
	"context"
	"errors"
	"sync"

	"auction-sync/internal/domain"
	"auction-sync/pkg/logger"

	"golang.org/x/sync/errgroup"
)

var ErrListenerRunning = errors.New("event listener already running")

// EventListener subscribes the router to the notification channel and the
// live feed to the live-bid channel. The two streams are independent.
type EventListener struct {
	router              *EventRouter
	feed                *LiveFeed
	notificationChannel string
	liveBidChannel      string
	cancel              context.CancelFunc
	done                chan struct{}
	err                 error
	mutex               sync.Mutex
	log                 logger.Logger
}

// NewEventListener builds a listener. Either router or feed may be nil to
// subscribe to only one stream.
func NewEventListener(router *EventRouter, feed *LiveFeed, notificationChannel, liveBidChannel string,
	log logger.Logger) *EventListener {
	return &EventListener{
		router:              router,
		feed:                feed,
		notificationChannel: notificationChannel,
		liveBidChannel:      liveBidChannel,
		log:                 log,
	}
}

// Start subscribes in the background and returns immediately. Subscriptions
// end when ctx is cancelled or Stop is called.
func (el *EventListener) Start(ctx context.Context, subscriber domain.Subscriber) error {
	el.mutex.Lock()
	defer el.mutex.Unlock()

	if el.cancel != nil {
		return ErrListenerRunning
	}

	el.log.Info("Starting event listener",
		"notification_channel", el.notificationChannel, "live_bid_channel", el.liveBidChannel)

	if el.feed != nil {
		el.feed.Reset()
	}

	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)

	if el.router != nil {
		g.Go(func() error {
			return subscriber.Subscribe(gctx, el.notificationChannel, func(payload []byte) {
				el.router.HandlePayload(gctx, payload)
			})
		})
	}
	if el.feed != nil {
		g.Go(func() error {
			return subscriber.Subscribe(gctx, el.liveBidChannel, el.feed.OnPayload)
		})
	}

	done := make(chan struct{})
	el.cancel = cancel
	el.done = done
	el.err = nil
	go func() {
		err := g.Wait()
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		el.mutex.Lock()
		el.err = err
		el.mutex.Unlock()
		close(done)
	}()

	return nil
}

// Stop cancels the subscriptions and waits for them to unsubscribe, then
// empties the live feed.
func (el *EventListener) Stop() error {
	el.mutex.Lock()
	cancel, done := el.cancel, el.done
	el.cancel = nil
	el.mutex.Unlock()

	if cancel == nil {
		return nil
	}

	el.log.Info("Stopping event listener")
	cancel()
	<-done
	if el.feed != nil {
		el.feed.Reset()
	}
	return el.Err()
}

// Done is closed once every subscription has ended.
func (el *EventListener) Done() <-chan struct{} {
	el.mutex.Lock()
	defer el.mutex.Unlock()
	return el.done
}

// Err returns the error that ended the subscriptions, if any.
func (el *EventListener) Err() error {
	el.mutex.Lock()
	defer el.mutex.Unlock()
	return el.err
}

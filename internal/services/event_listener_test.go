package services

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"auction-sync/pkg/logger"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestEventListenerRoutesBothStreams(t *testing.T) {
	c := &recordingCache{}
	feed := NewLiveFeed(DefaultFeedSize, logger.NewNop())
	sub := &fakeSubscriber{payloads: map[string][][]byte{
		"notifications": {
			[]byte(`{"type":"NEW_OFFER","listingId":"L1"}`),
			[]byte(`{broken`),
		},
		"live": {
			[]byte(`{"listingId":"L1","title":"Lamp","amount":3,"bidderId":"U1"}`),
		},
	}}

	listener := NewEventListener(NewEventRouter(c, logger.NewNop()), feed, "notifications", "live", logger.NewNop())
	if err := listener.Start(context.Background(), sub); err != nil {
		t.Fatalf("Start: %v", err)
	}

	waitFor(t, func() bool { return len(c.calls()) == 2 && feed.Len() == 1 })

	if err := listener.Stop(); err != nil {
		t.Errorf("Stop: %v", err)
	}

	channels := sub.subscribed()
	sort.Strings(channels)
	if len(channels) != 2 || channels[0] != "live" || channels[1] != "notifications" {
		t.Errorf("subscribed to %v", channels)
	}
}

func TestEventListenerFeedOnly(t *testing.T) {
	feed := NewLiveFeed(DefaultFeedSize, logger.NewNop())
	sub := &fakeSubscriber{}

	listener := NewEventListener(nil, feed, "", "live", logger.NewNop())
	if err := listener.Start(context.Background(), sub); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, func() bool { return len(sub.subscribed()) == 1 })

	if err := listener.Stop(); err != nil {
		t.Errorf("Stop: %v", err)
	}
	if got := sub.subscribed(); got[0] != "live" {
		t.Errorf("subscribed to %v", got)
	}
}

func TestEventListenerRejectsSecondStart(t *testing.T) {
	listener := NewEventListener(nil, NewLiveFeed(0, logger.NewNop()), "", "live", logger.NewNop())
	sub := &fakeSubscriber{}

	if err := listener.Start(context.Background(), sub); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer listener.Stop()

	if err := listener.Start(context.Background(), sub); !errors.Is(err, ErrListenerRunning) {
		t.Errorf("second Start error = %v, want ErrListenerRunning", err)
	}
}

func TestEventListenerReportsSubscriberFailure(t *testing.T) {
	boom := errors.New("broker gone")
	sub := &fakeSubscriber{err: boom}
	listener := NewEventListener(NewEventRouter(&recordingCache{}, logger.NewNop()),
		NewLiveFeed(0, logger.NewNop()), "notifications", "live", logger.NewNop())

	if err := listener.Start(context.Background(), sub); err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case <-listener.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not finish")
	}
	if !errors.Is(listener.Err(), boom) {
		t.Errorf("Err = %v, want %v", listener.Err(), boom)
	}
	if err := listener.Stop(); !errors.Is(err, boom) {
		t.Errorf("Stop = %v, want %v", err, boom)
	}
}

func TestEventListenerStopWithoutStart(t *testing.T) {
	listener := NewEventListener(nil, nil, "", "", logger.NewNop())
	if err := listener.Stop(); err != nil {
		t.Errorf("Stop = %v", err)
	}
}

func TestEventListenerStopClearsFeed(t *testing.T) {
	feed := NewLiveFeed(DefaultFeedSize, logger.NewNop())
	sub := &fakeSubscriber{payloads: map[string][][]byte{
		"live": {
			[]byte(`{"listingId":"L1","title":"Lamp","amount":3,"bidderId":"U1"}`),
			[]byte(`{"listingId":"L2","title":"Desk","amount":8,"bidderId":"U2"}`),
		},
	}}

	listener := NewEventListener(nil, feed, "", "live", logger.NewNop())
	if err := listener.Start(context.Background(), sub); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, func() bool { return feed.Len() == 2 })

	if err := listener.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if got := feed.Feed(); len(got) != 0 {
		t.Errorf("Feed after Stop = %v, want empty", got)
	}
}

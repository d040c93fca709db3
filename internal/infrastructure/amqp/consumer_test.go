package amqp

import (
	"testing"
	"time"

	"auction-sync/pkg/logger"
)

func TestConsumerConnectedNeedsEveryExchange(t *testing.T) {
	c := NewConsumer("amqp://localhost", 10, time.Millisecond, time.Second, logger.NewNop())

	c.health.Track("ex.notifications")
	c.health.Track("ex.live")
	c.health.Set("ex.notifications", true)
	if c.Connected() {
		t.Error("connected while ex.live is down")
	}

	c.health.Set("ex.live", true)
	if !c.Connected() {
		t.Error("not connected with both exchanges live")
	}
}

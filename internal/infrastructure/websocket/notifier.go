package websocket

import (
	"auction-sync/internal/domain"
	"auction-sync/pkg/logger"
)

// FeedNotifier pushes each bid accepted by the live feed to every
// connected client.
type FeedNotifier struct {
	connManager domain.ConnectionManager
	log         logger.Logger
}

func NewFeedNotifier(connManager domain.ConnectionManager, log logger.Logger) *FeedNotifier {
	return &FeedNotifier{
		connManager: connManager,
		log:         log,
	}
}

// OnBid matches domain.FeedObserver. It runs on the subscriber goroutine and
// only queues the message.
func (n *FeedNotifier) OnBid(bid domain.LiveBid) {
	if n.connManager.Count() == 0 {
		return
	}
	if err := n.connManager.Broadcast(LiveBidMessage{Type: "live_bid", Bid: bid}); err != nil {
		n.log.Error("Failed to broadcast live bid", "listing_id", bid.ListingID, "error", err)
	}
}

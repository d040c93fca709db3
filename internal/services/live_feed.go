package services

import (
	"sync"

	"auction-sync/internal/domain"
	"auction-sync/pkg/logger"
)

const DefaultFeedSize = 30

// LiveFeed keeps the most recent bids, newest first, bounded to maxSize.
// The same listing may appear many times; it is an activity log.
type LiveFeed struct {
	bids      []domain.LiveBid
	maxSize   int
	observers map[int]domain.FeedObserver
	nextID    int
	mutex     sync.RWMutex
	log       logger.Logger
}

func NewLiveFeed(maxSize int, log logger.Logger) *LiveFeed {
	if maxSize <= 0 {
		maxSize = DefaultFeedSize
	}
	return &LiveFeed{
		bids:      make([]domain.LiveBid, 0, maxSize),
		maxSize:   maxSize,
		observers: make(map[int]domain.FeedObserver),
		log:       log,
	}
}

// OnBidReceived prepends bid and drops the oldest entries beyond maxSize.
// Bids that fail validation are dropped.
func (f *LiveFeed) OnBidReceived(bid domain.LiveBid) {
	if err := bid.Validate(); err != nil {
		f.log.Warn("Dropping invalid live bid", "listing_id", bid.ListingID, "error", err)
		return
	}

	f.mutex.Lock()
	next := make([]domain.LiveBid, 0, f.maxSize)
	next = append(next, bid)
	for _, existing := range f.bids {
		if len(next) == f.maxSize {
			break
		}
		next = append(next, existing)
	}
	f.bids = next
	observers := make([]domain.FeedObserver, 0, len(f.observers))
	for _, observer := range f.observers {
		observers = append(observers, observer)
	}
	f.mutex.Unlock()

	for _, observer := range observers {
		observer(bid)
	}
}

// OnPayload parses a raw live-bid payload and feeds it to OnBidReceived.
func (f *LiveFeed) OnPayload(payload []byte) {
	bid, err := domain.ParseLiveBid(payload)
	if err != nil {
		f.log.Warn("Dropping malformed live bid", "payload", string(payload), "error", err)
		return
	}
	f.OnBidReceived(*bid)
}

// Feed returns a snapshot of the buffer, newest first.
func (f *LiveFeed) Feed() []domain.LiveBid {
	f.mutex.RLock()
	defer f.mutex.RUnlock()

	out := make([]domain.LiveBid, len(f.bids))
	copy(out, f.bids)
	return out
}

func (f *LiveFeed) Len() int {
	f.mutex.RLock()
	defer f.mutex.RUnlock()
	return len(f.bids)
}

// Observe registers observer for every future bid and returns a func that
// removes it.
func (f *LiveFeed) Observe(observer domain.FeedObserver) func() {
	f.mutex.Lock()
	id := f.nextID
	f.nextID++
	f.observers[id] = observer
	f.mutex.Unlock()

	return func() {
		f.mutex.Lock()
		delete(f.observers, id)
		f.mutex.Unlock()
	}
}

// Reset empties the buffer, e.g. when the subscription is torn down.
func (f *LiveFeed) Reset() {
	f.mutex.Lock()
	f.bids = make([]domain.LiveBid, 0, f.maxSize)
	f.mutex.Unlock()
}

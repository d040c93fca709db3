package domain

import (
	"context"
	"time"
)

// Cache is the single capability the event router needs: mark every entry
// matching target stale and refetch the ones somebody is still observing.
type Cache interface {
	Invalidate(ctx context.Context, target InvalidationTarget) error
}

// QueryStore holds cached query results keyed by QueryKey.
type QueryStore interface {
	Get(ctx context.Context, key QueryKey) (*CachedQuery, error)
	// Generation counts how often key has been marked stale. Zero when absent.
	Generation(ctx context.Context, key QueryKey) (uint64, error)
	// Put stores data only while key is still at generation and reports
	// whether it did. A fetch that raced an invalidation is discarded.
	Put(ctx context.Context, key QueryKey, data []byte, generation uint64) (bool, error)
	// MarkStale flags every entry matching target and bumps its generation.
	// It returns the matched keys.
	MarkStale(ctx context.Context, target InvalidationTarget) ([]QueryKey, error)
	StaleKeys(ctx context.Context) ([]QueryKey, error)
	Delete(ctx context.Context, key QueryKey) error
}

// Fetcher loads the current value for a query key from the system of record.
type Fetcher func(ctx context.Context, key QueryKey) (interface{}, error)

// Repository interfaces
type ListingRepository interface {
	GetListing(ctx context.Context, listingID string) (*Listing, error)
	ListActiveListings(ctx context.Context, limit int) ([]*Listing, error)
	ListSellerListings(ctx context.Context, sellerID string) ([]*Listing, error)
	ListWonListings(ctx context.Context, userID string, page, pageSize int) (Page[*Listing], error)
}

type BidRepository interface {
	ListBids(ctx context.Context, listingID string) ([]*Bid, error)
	ListUserBidRecords(ctx context.Context, userID string) ([]BidRecord, error)
}

type OfferRepository interface {
	ListOffers(ctx context.Context, listingID string) ([]*Offer, error)
}

// Event interfaces
type PayloadHandler func(payload []byte)

// Subscriber delivers raw payloads published on channel to handler until ctx
// is cancelled. Delivery is at-least-once and may repeat after a reconnect.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string, handler PayloadHandler) error
	Connected() bool
}

type EventPublisher interface {
	PublishDomainEvent(ctx context.Context, event *DomainEvent) error
	PublishLiveBid(ctx context.Context, bid *LiveBid) error
}

// Leader election interface
type LeaderElection interface {
	BecomeLeader(ctx context.Context, instanceID string) (bool, error)
	IsLeader(ctx context.Context, instanceID string) (bool, error)
	ReleaseLeadership(ctx context.Context, instanceID string) error
}

// FeedObserver is notified after a bid has been added to the live feed.
type FeedObserver func(bid LiveBid)

// WebSocket interfaces
type WebSocketConnection interface {
	Send(message interface{}) error
	Close() error
	ID() string
	UserID() string
}

type ConnectionManager interface {
	RegisterConnection(conn WebSocketConnection) error
	UnregisterConnection(connID string) error
	Count() int
	Broadcast(message interface{}) error
	CloseAll() error
}

type Clock func() time.Time

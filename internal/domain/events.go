package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type EventType string

const (
	EventNewBid                EventType = "NEW_BID"
	EventOutbid                EventType = "OUTBID"
	EventNewOffer              EventType = "NEW_OFFER"
	EventOfferWithdrawn        EventType = "OFFER_WITHDRAWN"
	EventOfferRejected         EventType = "OFFER_REJECTED"
	EventOfferAccepted         EventType = "OFFER_ACCEPTED"
	EventAuctionEnded          EventType = "AUCTION_ENDED"
	EventListingRemovedByAdmin EventType = "LISTING_REMOVED_BY_ADMIN"
	EventBoughtOut             EventType = "BOUGHT_OUT"
	EventAuctionCreated        EventType = "AUCTION_CREATED"
	EventDisputeOpened         EventType = "DISPUTE_OPENED"
	EventWatchedChange         EventType = "WATCHED_CHANGE"
)

// DomainEvent is a server-pushed occurrence. Only Type and ListingID drive
// invalidation; the remaining fields belong to notification display.
type DomainEvent struct {
	Type          EventType  `json:"type"`
	RelatedUserID string     `json:"relatedUserId,omitempty"`
	ListingID     string     `json:"listingId,omitempty"`
	Text          string     `json:"text,omitempty"`
	CreatedAt     *time.Time `json:"createdAt,omitempty"`
	TargetURL     string     `json:"targetUrl,omitempty"`
	Read          bool       `json:"read"`
}

// LiveBid is one bid broadcast to every connected client.
type LiveBid struct {
	ListingID string  `json:"listingId"`
	Title     string  `json:"title"`
	Amount    float64 `json:"amount"`
	BidderID  string  `json:"bidderId"`
	Username  string  `json:"username"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
}

// ParseDomainEvent decodes a notification payload. A payload without a type
// is malformed; unknown types are accepted and routed to nothing.
func ParseDomainEvent(payload []byte) (*DomainEvent, error) {
	var event DomainEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	event.Type = EventType(strings.TrimSpace(string(event.Type)))
	if event.Type == "" {
		return nil, fmt.Errorf("%w: missing event type", ErrMalformedPayload)
	}
	return &event, nil
}

// ParseLiveBid decodes a live-bid broadcast and checks it against the
// LiveBid shape.
func ParseLiveBid(payload []byte) (*LiveBid, error) {
	var bid LiveBid
	if err := json.Unmarshal(payload, &bid); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if err := bid.Validate(); err != nil {
		return nil, err
	}
	return &bid, nil
}

func (b LiveBid) Validate() error {
	if b.ListingID == "" {
		return fmt.Errorf("%w: missing listingId", ErrMalformedPayload)
	}
	if b.BidderID == "" {
		return fmt.Errorf("%w: missing bidderId", ErrMalformedPayload)
	}
	if !(b.Amount > 0) {
		return fmt.Errorf("%w: amount must be positive, got %v", ErrMalformedPayload, b.Amount)
	}
	return nil
}

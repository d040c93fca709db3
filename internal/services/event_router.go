package services

import (
	"context"

	"auction-sync/internal/domain"
	"auction-sync/pkg/logger"
)

// Route returns the cache targets made stale by event. It is total: unknown
// types, and inert ones like DISPUTE_OPENED, yield an empty set.
func Route(event domain.DomainEvent) domain.TargetSet {
	targets := domain.NewTargetSet()

	var scoped, unscoped []domain.ResourceKind
	switch event.Type {
	case domain.EventNewBid, domain.EventOutbid:
		scoped = []domain.ResourceKind{domain.ResourceBids, domain.ResourceListing}
		unscoped = []domain.ResourceKind{domain.ResourceListings}
	case domain.EventNewOffer, domain.EventOfferWithdrawn, domain.EventOfferRejected:
		scoped = []domain.ResourceKind{domain.ResourceOffers, domain.ResourceListing}
	case domain.EventOfferAccepted:
		scoped = []domain.ResourceKind{domain.ResourceOffers, domain.ResourceListing}
		unscoped = []domain.ResourceKind{domain.ResourceListings, domain.ResourceUserListings}
	case domain.EventAuctionEnded, domain.EventListingRemovedByAdmin, domain.EventBoughtOut:
		scoped = []domain.ResourceKind{domain.ResourceBids, domain.ResourceListing, domain.ResourceOffers}
		unscoped = []domain.ResourceKind{domain.ResourceListings, domain.ResourceUserListings}
	case domain.EventAuctionCreated:
		unscoped = []domain.ResourceKind{domain.ResourceListings, domain.ResourceUserListings}
	}

	// A listing-scoped event without a listing id can only reach global lists.
	if event.ListingID != "" {
		for _, kind := range scoped {
			targets.Add(domain.Scoped(kind, event.ListingID))
		}
	}
	for _, kind := range unscoped {
		targets.Add(domain.Unscoped(kind))
	}
	return targets
}

type EventRouter struct {
	cache domain.Cache
	log   logger.Logger
}

func NewEventRouter(cache domain.Cache, log logger.Logger) *EventRouter {
	return &EventRouter{
		cache: cache,
		log:   log,
	}
}

// Handle routes event and applies each target to the cache. Targets are
// independent, so one failure does not stop the rest.
func (r *EventRouter) Handle(ctx context.Context, event domain.DomainEvent) domain.TargetSet {
	targets := Route(event)
	if len(targets) == 0 {
		r.log.Debug("Event has no cache targets", "type", event.Type, "listing_id", event.ListingID)
		return targets
	}

	for _, target := range targets.Slice() {
		if err := r.cache.Invalidate(ctx, target); err != nil {
			r.log.Error("Failed to invalidate cache target",
				"type", event.Type, "target", target.String(), "error", err)
		}
	}

	r.log.Info("Routed event", "type", event.Type, "listing_id", event.ListingID, "targets", len(targets))
	return targets
}

// HandlePayload parses a notification payload and routes it. Malformed
// payloads are logged and dropped.
func (r *EventRouter) HandlePayload(ctx context.Context, payload []byte) {
	event, err := domain.ParseDomainEvent(payload)
	if err != nil {
		r.log.Warn("Dropping malformed domain event", "payload", string(payload), "error", err)
		return
	}
	r.Handle(ctx, *event)
}

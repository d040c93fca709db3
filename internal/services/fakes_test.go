package services

import (
	"context"
	"errors"
	"sync"

	"auction-sync/internal/domain"
)

type recordingCache struct {
	mutex   sync.Mutex
	targets []domain.InvalidationTarget
	failOn  map[domain.InvalidationTarget]bool
}

func (c *recordingCache) Invalidate(ctx context.Context, target domain.InvalidationTarget) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.targets = append(c.targets, target)
	if c.failOn[target] {
		return errors.New("cache unavailable")
	}
	return nil
}

func (c *recordingCache) calls() []domain.InvalidationTarget {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	out := make([]domain.InvalidationTarget, len(c.targets))
	copy(out, c.targets)
	return out
}

// fakeSubscriber delivers queued payloads per channel, then blocks until
// the context ends.
type fakeSubscriber struct {
	mutex    sync.Mutex
	payloads map[string][][]byte
	channels []string
	err      error
}

func (s *fakeSubscriber) Subscribe(ctx context.Context, channel string, handler domain.PayloadHandler) error {
	s.mutex.Lock()
	s.channels = append(s.channels, channel)
	payloads := s.payloads[channel]
	err := s.err
	s.mutex.Unlock()

	if err != nil {
		return err
	}
	for _, p := range payloads {
		handler(p)
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *fakeSubscriber) Connected() bool { return true }

func (s *fakeSubscriber) subscribed() []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	out := make([]string, len(s.channels))
	copy(out, s.channels)
	return out
}

type fakeLeader struct {
	leader bool
	err    error
}

func (l *fakeLeader) BecomeLeader(ctx context.Context, instanceID string) (bool, error) {
	return l.leader, l.err
}

func (l *fakeLeader) IsLeader(ctx context.Context, instanceID string) (bool, error) {
	return l.leader, l.err
}

func (l *fakeLeader) ReleaseLeadership(ctx context.Context, instanceID string) error {
	return nil
}

type fakeBidRepository struct {
	records []domain.BidRecord
	bids    []*domain.Bid
	err     error
}

func (r *fakeBidRepository) ListBids(ctx context.Context, listingID string) ([]*domain.Bid, error) {
	return r.bids, r.err
}

func (r *fakeBidRepository) ListUserBidRecords(ctx context.Context, userID string) ([]domain.BidRecord, error) {
	return r.records, r.err
}

type fakeListingRepository struct {
	won      domain.Page[*domain.Listing]
	gotPage  int
	gotSize  int
	listing  *domain.Listing
	active   []*domain.Listing
	gotLimit int
	err      error
}

func (r *fakeListingRepository) GetListing(ctx context.Context, listingID string) (*domain.Listing, error) {
	if r.listing == nil {
		return nil, domain.ErrNotFound
	}
	return r.listing, r.err
}

func (r *fakeListingRepository) ListActiveListings(ctx context.Context, limit int) ([]*domain.Listing, error) {
	r.gotLimit = limit
	return r.active, r.err
}

func (r *fakeListingRepository) ListSellerListings(ctx context.Context, sellerID string) ([]*domain.Listing, error) {
	return r.active, r.err
}

func (r *fakeListingRepository) ListWonListings(ctx context.Context, userID string, page, pageSize int) (domain.Page[*domain.Listing], error) {
	r.gotPage = page
	r.gotSize = pageSize
	return r.won, r.err
}

type fakeOfferRepository struct {
	offers []*domain.Offer
}

func (r *fakeOfferRepository) ListOffers(ctx context.Context, listingID string) ([]*domain.Offer, error) {
	return r.offers, nil
}

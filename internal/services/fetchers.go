package services

import (
	"context"
	"strconv"

	"auction-sync/internal/domain"
)

const defaultListingsLimit = 100

// RegisterRepositoryFetchers wires every resource kind to its repository.
// The listings scope, when numeric, is read as a result limit.
func RegisterRepositoryFetchers(s *QueryService, listings domain.ListingRepository,
	bids domain.BidRepository, offers domain.OfferRepository) {
	s.RegisterFetcher(domain.ResourceListing, func(ctx context.Context, key domain.QueryKey) (interface{}, error) {
		if key.Scope == "" {
			return nil, domain.ErrScopeRequired
		}
		return listings.GetListing(ctx, key.Scope)
	})

	s.RegisterFetcher(domain.ResourceListings, func(ctx context.Context, key domain.QueryKey) (interface{}, error) {
		limit := defaultListingsLimit
		if n, err := strconv.Atoi(key.Scope); err == nil && n > 0 {
			limit = n
		}
		return listings.ListActiveListings(ctx, limit)
	})

	s.RegisterFetcher(domain.ResourceUserListings, func(ctx context.Context, key domain.QueryKey) (interface{}, error) {
		if key.Scope == "" {
			return nil, domain.ErrScopeRequired
		}
		return listings.ListSellerListings(ctx, key.Scope)
	})

	s.RegisterFetcher(domain.ResourceBids, func(ctx context.Context, key domain.QueryKey) (interface{}, error) {
		if key.Scope == "" {
			return nil, domain.ErrScopeRequired
		}
		return bids.ListBids(ctx, key.Scope)
	})

	s.RegisterFetcher(domain.ResourceOffers, func(ctx context.Context, key domain.QueryKey) (interface{}, error) {
		if key.Scope == "" {
			return nil, domain.ErrScopeRequired
		}
		return offers.ListOffers(ctx, key.Scope)
	})
}

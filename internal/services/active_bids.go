package services

import (
	"context"
	"fmt"

	"auction-sync/internal/domain"
	"auction-sync/pkg/logger"
)

// ReconcileActiveBids keeps the highest bid per listing, in first-seen
// listing order, then moves losing bids ahead of winning ones without
// reordering either group.
func ReconcileActiveBids(records []domain.BidRecord) []domain.ActiveBid {
	index := make(map[string]int, len(records))
	deduped := make([]domain.BidRecord, 0, len(records))
	for _, record := range records {
		i, seen := index[record.ListingID]
		if !seen {
			index[record.ListingID] = len(deduped)
			deduped = append(deduped, record)
			continue
		}
		if record.Amount > deduped[i].Amount {
			deduped[i] = record
		}
	}

	losing := make([]domain.ActiveBid, 0, len(deduped))
	winning := make([]domain.ActiveBid, 0, len(deduped))
	for _, record := range deduped {
		bid := domain.ActiveBid{
			BidRecord: record,
			Winning:   record.Amount >= record.MarketAmount(),
		}
		if bid.Winning {
			winning = append(winning, bid)
		} else {
			losing = append(losing, bid)
		}
	}
	return append(losing, winning...)
}

type ActiveBidService struct {
	bidRepo     domain.BidRepository
	listingRepo domain.ListingRepository
	log         logger.Logger
}

func NewActiveBidService(bidRepo domain.BidRepository, listingRepo domain.ListingRepository, log logger.Logger) *ActiveBidService {
	return &ActiveBidService{
		bidRepo:     bidRepo,
		listingRepo: listingRepo,
		log:         log,
	}
}

func (s *ActiveBidService) ActiveBids(ctx context.Context, userID string) ([]domain.ActiveBid, error) {
	records, err := s.bidRepo.ListUserBidRecords(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list bids for user %s: %w", userID, err)
	}
	active := ReconcileActiveBids(records)
	s.log.Debug("Reconciled active bids", "user_id", userID, "records", len(records), "listings", len(active))
	return active, nil
}

// WonListings returns one page of listings the user has won. Page metadata
// comes from the repository count, never from the size of the slice.
func (s *ActiveBidService) WonListings(ctx context.Context, userID string, page, pageSize int) (domain.Page[*domain.Listing], error) {
	if page < 0 {
		page = 0
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	result, err := s.listingRepo.ListWonListings(ctx, userID, page, pageSize)
	if err != nil {
		return domain.Page[*domain.Listing]{}, fmt.Errorf("list won listings for user %s: %w", userID, err)
	}
	return result, nil
}

package mysql

import (
	"context"
	"database/sql"

	"auction-sync/internal/domain"
)

type MySQLBidRepository struct {
	db *sql.DB
}

func NewMySQLBidRepository(db *sql.DB) *MySQLBidRepository {
	return &MySQLBidRepository{db: db}
}

func (r *MySQLBidRepository) ListBids(ctx context.Context, listingID string) ([]*domain.Bid, error) {
	query := `
        SELECT id, listing_id, bidder_id, amount, created_at
        FROM bids
        WHERE listing_id = ?
        ORDER BY created_at DESC
    `

	rows, err := r.db.QueryContext(ctx, query, listingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bids := []*domain.Bid{}
	for rows.Next() {
		var bid domain.Bid
		err := rows.Scan(&bid.ID, &bid.ListingID, &bid.BidderID, &bid.Amount, &bid.CreatedAt)
		if err != nil {
			return nil, err
		}
		bids = append(bids, &bid)
	}

	return bids, rows.Err()
}

// ListUserBidRecords returns every bid the user placed on a still active
// listing, newest first, joined with the listing's market state.
func (r *MySQLBidRepository) ListUserBidRecords(ctx context.Context, userID string) ([]domain.BidRecord, error) {
	query := `
        SELECT b.id, b.listing_id, l.title, b.amount,
               (SELECT MAX(x.amount) FROM bids x WHERE x.listing_id = l.id) AS latest_bid_amount,
               l.start_price, b.created_at
        FROM bids b
        JOIN listings l ON l.id = b.listing_id
        WHERE b.bidder_id = ? AND l.status = ?
        ORDER BY b.created_at DESC
    `

	rows, err := r.db.QueryContext(ctx, query, userID, string(domain.ListingActive))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.BidRecord
	for rows.Next() {
		var (
			record    domain.BidRecord
			latestBid sql.NullFloat64
		)
		err := rows.Scan(&record.BidID, &record.ListingID, &record.Title, &record.Amount,
			&latestBid, &record.StartPrice, &record.CreatedAt)
		if err != nil {
			return nil, err
		}
		if latestBid.Valid {
			record.LatestBidAmount = &latestBid.Float64
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

var _ domain.BidRepository = (*MySQLBidRepository)(nil)

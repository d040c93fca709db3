package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"auction-sync/internal/domain"

	_ "github.com/go-sql-driver/mysql"
)

const listingColumns = `
        l.id, l.seller_id, l.title, l.status, l.start_price,
        (SELECT MAX(b.amount) FROM bids b WHERE b.listing_id = l.id) AS latest_bid_amount,
        l.buy_now_price, l.end_time, l.created_at, l.updated_at`

type MySQLListingRepository struct {
	db *sql.DB
}

func NewMySQLListingRepository(db *sql.DB) *MySQLListingRepository {
	return &MySQLListingRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanListing(row rowScanner) (*domain.Listing, error) {
	var (
		listing   domain.Listing
		status    string
		latestBid sql.NullFloat64
		buyNow    sql.NullFloat64
	)
	err := row.Scan(&listing.ID, &listing.SellerID, &listing.Title, &status, &listing.StartPrice,
		&latestBid, &buyNow, &listing.EndTime, &listing.CreatedAt, &listing.UpdatedAt)
	if err != nil {
		return nil, err
	}

	listing.Status = domain.ListingStatus(status)
	if latestBid.Valid {
		listing.LatestBidAmount = &latestBid.Float64
	}
	if buyNow.Valid {
		listing.BuyNowPrice = &buyNow.Float64
	}
	return &listing, nil
}

func (r *MySQLListingRepository) GetListing(ctx context.Context, listingID string) (*domain.Listing, error) {
	query := `SELECT ` + listingColumns + `
        FROM listings l WHERE l.id = ?
    `

	listing, err := scanListing(r.db.QueryRowContext(ctx, query, listingID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return listing, nil
}

func (r *MySQLListingRepository) ListActiveListings(ctx context.Context, limit int) ([]*domain.Listing, error) {
	query := `SELECT ` + listingColumns + `
        FROM listings l
        WHERE l.status = ?
        ORDER BY l.end_time ASC
        LIMIT ?
    `
	return r.queryListings(ctx, query, string(domain.ListingActive), limit)
}

func (r *MySQLListingRepository) ListSellerListings(ctx context.Context, sellerID string) ([]*domain.Listing, error) {
	query := `SELECT ` + listingColumns + `
        FROM listings l
        WHERE l.seller_id = ?
        ORDER BY l.created_at DESC
    `
	return r.queryListings(ctx, query, sellerID)
}

// ListWonListings pages through listings the user won. The total comes from
// a COUNT query so callers never have to guess the page count.
func (r *MySQLListingRepository) ListWonListings(ctx context.Context, userID string, page, pageSize int) (domain.Page[*domain.Listing], error) {
	countQuery := `
        SELECT COUNT(*) FROM listings
        WHERE winner_id = ? AND status IN (?, ?)
    `
	var total int
	err := r.db.QueryRowContext(ctx, countQuery, userID,
		string(domain.ListingEnded), string(domain.ListingSold)).Scan(&total)
	if err != nil {
		return domain.Page[*domain.Listing]{}, fmt.Errorf("count won listings: %w", err)
	}

	query := `SELECT ` + listingColumns + `
        FROM listings l
        WHERE l.winner_id = ? AND l.status IN (?, ?)
        ORDER BY l.end_time DESC
        LIMIT ? OFFSET ?
    `
	listings, err := r.queryListings(ctx, query, userID,
		string(domain.ListingEnded), string(domain.ListingSold), pageSize, page*pageSize)
	if err != nil {
		return domain.Page[*domain.Listing]{}, err
	}

	return domain.NewPage(listings, page, pageSize, total), nil
}

func (r *MySQLListingRepository) queryListings(ctx context.Context, query string, args ...interface{}) ([]*domain.Listing, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	listings := []*domain.Listing{}
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, listing)
	}

	return listings, rows.Err()
}

var _ domain.ListingRepository = (*MySQLListingRepository)(nil)

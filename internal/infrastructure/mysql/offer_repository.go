package mysql

import (
	"context"
	"database/sql"

	"auction-sync/internal/domain"
)

type MySQLOfferRepository struct {
	db *sql.DB
}

func NewMySQLOfferRepository(db *sql.DB) *MySQLOfferRepository {
	return &MySQLOfferRepository{db: db}
}

func (r *MySQLOfferRepository) ListOffers(ctx context.Context, listingID string) ([]*domain.Offer, error) {
	query := `
        SELECT id, listing_id, buyer_id, amount, status, created_at
        FROM offers
        WHERE listing_id = ?
        ORDER BY created_at DESC
    `

	rows, err := r.db.QueryContext(ctx, query, listingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	offers := []*domain.Offer{}
	for rows.Next() {
		var offer domain.Offer
		var status string

		err := rows.Scan(&offer.ID, &offer.ListingID, &offer.BuyerID,
			&offer.Amount, &status, &offer.CreatedAt)
		if err != nil {
			return nil, err
		}

		offer.Status = domain.OfferStatus(status)
		offers = append(offers, &offer)
	}

	return offers, rows.Err()
}

var _ domain.OfferRepository = (*MySQLOfferRepository)(nil)

package domain

import (
	"time"
)

type ListingStatus string

const (
	ListingActive    ListingStatus = "ACTIVE"
	ListingEnded     ListingStatus = "ENDED"
	ListingSold      ListingStatus = "SOLD"
	ListingRemoved   ListingStatus = "REMOVED"
	ListingCancelled ListingStatus = "CANCELLED"
)

type Listing struct {
	ID              string        `json:"id"`
	SellerID        string        `json:"sellerId"`
	Title           string        `json:"title"`
	Status          ListingStatus `json:"status"`
	StartPrice      float64       `json:"startPrice"`
	LatestBidAmount *float64      `json:"latestBidAmount,omitempty"`
	BuyNowPrice     *float64      `json:"buyNowPrice,omitempty"`
	EndTime         time.Time     `json:"endTime"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

type Bid struct {
	ID        string    `json:"id"`
	ListingID string    `json:"listingId"`
	BidderID  string    `json:"bidderId"`
	Amount    float64   `json:"amount"`
	CreatedAt time.Time `json:"createdAt"`
}

type OfferStatus string

const (
	OfferPending   OfferStatus = "PENDING"
	OfferAccepted  OfferStatus = "ACCEPTED"
	OfferRejected  OfferStatus = "REJECTED"
	OfferWithdrawn OfferStatus = "WITHDRAWN"
)

type Offer struct {
	ID        string      `json:"id"`
	ListingID string      `json:"listingId"`
	BuyerID   string      `json:"buyerId"`
	Amount    float64     `json:"amount"`
	Status    OfferStatus `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
}

// BidRecord is one of the current user's bids joined with the listing's
// market state.
type BidRecord struct {
	BidID           string    `json:"bidId"`
	ListingID       string    `json:"listingId"`
	Title           string    `json:"title"`
	Amount          float64   `json:"amount"`
	LatestBidAmount *float64  `json:"latestBidAmount,omitempty"`
	StartPrice      float64   `json:"startPrice"`
	CreatedAt       time.Time `json:"createdAt"`
}

// MarketAmount is the price a bid must meet to be winning.
func (r BidRecord) MarketAmount() float64 {
	if r.LatestBidAmount != nil {
		return *r.LatestBidAmount
	}
	return r.StartPrice
}

// ActiveBid is the user's highest bid on one listing.
type ActiveBid struct {
	BidRecord
	Winning bool `json:"winning"`
}

type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
}

func NewPage[T any](items []T, page, pageSize, totalItems int) Page[T] {
	totalPages := 0
	if pageSize > 0 {
		totalPages = (totalItems + pageSize - 1) / pageSize
	}
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:      items,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: totalItems,
		TotalPages: totalPages,
	}
}

// CachedQuery is a cached query result with its staleness flag.
type CachedQuery struct {
	Key       QueryKey  `json:"key"`
	Data      []byte    `json:"-"`
	Stale     bool      `json:"stale"`
	FetchedAt time.Time `json:"fetchedAt"`
}

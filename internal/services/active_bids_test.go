package services

import (
	"context"
	"errors"
	"testing"

	"auction-sync/internal/domain"
	"auction-sync/pkg/logger"
)

func float(v float64) *float64 { return &v }

func TestReconcileActiveBids(t *testing.T) {
	records := []domain.BidRecord{
		{BidID: "a1", ListingID: "A", Amount: 10, LatestBidAmount: float(25), StartPrice: 5},
		{BidID: "b1", ListingID: "B", Amount: 5, StartPrice: 5},
		{BidID: "a2", ListingID: "A", Amount: 25, LatestBidAmount: float(25), StartPrice: 5},
	}

	got := ReconcileActiveBids(records)

	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ListingID != "A" || got[0].Amount != 25 || !got[0].Winning {
		t.Errorf("first = %+v, want A at 25 winning", got[0])
	}
	if got[1].ListingID != "B" || got[1].Amount != 5 || !got[1].Winning {
		t.Errorf("second = %+v, want B at 5 winning", got[1])
	}
}

func TestReconcileActiveBidsLosingFirstStable(t *testing.T) {
	records := []domain.BidRecord{
		{BidID: "1", ListingID: "W1", Amount: 50, LatestBidAmount: float(50)},
		{BidID: "2", ListingID: "X1", Amount: 10, LatestBidAmount: float(40)},
		{BidID: "3", ListingID: "W2", Amount: 20, StartPrice: 20},
		{BidID: "4", ListingID: "X2", Amount: 5, StartPrice: 8},
		{BidID: "5", ListingID: "X1", Amount: 30, LatestBidAmount: float(40)},
	}

	got := ReconcileActiveBids(records)

	want := []struct {
		listing string
		bid     string
		winning bool
	}{
		{"X1", "5", false},
		{"X2", "4", false},
		{"W1", "1", true},
		{"W2", "3", true},
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].ListingID != w.listing || got[i].BidID != w.bid || got[i].Winning != w.winning {
			t.Errorf("result[%d] = %s/%s winning=%v, want %s/%s winning=%v",
				i, got[i].ListingID, got[i].BidID, got[i].Winning, w.listing, w.bid, w.winning)
		}
	}
}

func TestReconcileActiveBidsKeepsFirstOnTie(t *testing.T) {
	records := []domain.BidRecord{
		{BidID: "first", ListingID: "A", Amount: 10, StartPrice: 1},
		{BidID: "second", ListingID: "A", Amount: 10, StartPrice: 1},
	}

	got := ReconcileActiveBids(records)
	if len(got) != 1 || got[0].BidID != "first" {
		t.Errorf("got %+v, want the first bid kept", got)
	}
}

func TestReconcileActiveBidsEmpty(t *testing.T) {
	if got := ReconcileActiveBids(nil); len(got) != 0 {
		t.Errorf("got %+v, want empty", got)
	}
}

func TestActiveBidServiceActiveBids(t *testing.T) {
	bidRepo := &fakeBidRepository{records: []domain.BidRecord{
		{BidID: "1", ListingID: "A", Amount: 3, LatestBidAmount: float(9)},
	}}
	svc := NewActiveBidService(bidRepo, &fakeListingRepository{}, logger.NewNop())

	got, err := svc.ActiveBids(context.Background(), "U1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Winning {
		t.Errorf("got %+v", got)
	}

	bidRepo.err = errors.New("db down")
	if _, err := svc.ActiveBids(context.Background(), "U1"); !errors.Is(err, bidRepo.err) {
		t.Errorf("error = %v, want wrapped repository error", err)
	}
}

func TestActiveBidServiceWonListingsDefaults(t *testing.T) {
	listingRepo := &fakeListingRepository{
		won: domain.NewPage([]*domain.Listing{{ID: "L1"}}, 0, 20, 41),
	}
	svc := NewActiveBidService(&fakeBidRepository{}, listingRepo, logger.NewNop())

	page, err := svc.WonListings(context.Background(), "U1", -1, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if listingRepo.gotPage != 0 || listingRepo.gotSize != 20 {
		t.Errorf("repository called with page=%d size=%d", listingRepo.gotPage, listingRepo.gotSize)
	}
	if page.TotalPages != 3 || page.TotalItems != 41 {
		t.Errorf("page = %+v", page)
	}
}

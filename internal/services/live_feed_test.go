package services

import (
	"fmt"
	"sync"
	"testing"

	"auction-sync/internal/domain"
	"auction-sync/pkg/logger"
)

func liveBid(listingID string, amount float64) domain.LiveBid {
	return domain.LiveBid{
		ListingID: listingID,
		Title:     "Listing " + listingID,
		Amount:    amount,
		BidderID:  "U1",
		Username:  "bidder",
	}
}

func TestLiveFeedPrependsNewestFirst(t *testing.T) {
	feed := NewLiveFeed(DefaultFeedSize, logger.NewNop())

	feed.OnBidReceived(liveBid("L1", 10))
	feed.OnBidReceived(liveBid("L2", 20))
	feed.OnBidReceived(liveBid("L1", 15))

	got := feed.Feed()
	want := []string{"L1", "L2", "L1"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ListingID != id {
			t.Errorf("feed[%d] = %s, want %s", i, got[i].ListingID, id)
		}
	}
	if got[0].Amount != 15 {
		t.Errorf("newest bid amount = %v, want 15", got[0].Amount)
	}
}

func TestLiveFeedBoundedToThirty(t *testing.T) {
	feed := NewLiveFeed(0, logger.NewNop())

	for i := 1; i <= 45; i++ {
		feed.OnBidReceived(liveBid(fmt.Sprintf("L%d", i), float64(i)))
	}

	got := feed.Feed()
	if len(got) != 30 {
		t.Fatalf("len = %d, want 30", len(got))
	}
	if got[0].ListingID != "L45" {
		t.Errorf("head = %s, want L45", got[0].ListingID)
	}
	if got[29].ListingID != "L16" {
		t.Errorf("tail = %s, want L16", got[29].ListingID)
	}
}

func TestLiveFeedCustomSize(t *testing.T) {
	feed := NewLiveFeed(2, logger.NewNop())
	feed.OnBidReceived(liveBid("A", 1))
	feed.OnBidReceived(liveBid("B", 1))
	feed.OnBidReceived(liveBid("C", 1))

	got := feed.Feed()
	if len(got) != 2 || got[0].ListingID != "C" || got[1].ListingID != "B" {
		t.Errorf("feed = %+v", got)
	}
}

func TestLiveFeedDropsMalformedPayloads(t *testing.T) {
	feed := NewLiveFeed(DefaultFeedSize, logger.NewNop())
	feed.OnBidReceived(liveBid("L1", 10))

	for _, payload := range []string{
		`garbage`,
		`{"listingId":"L2","amount":"ten","bidderId":"U1"}`,
		`{"listingId":"L2","amount":5}`,
		`{"bidderId":"U1","amount":5}`,
		`{"listingId":"L2","bidderId":"U1","amount":0}`,
	} {
		feed.OnPayload([]byte(payload))
	}

	got := feed.Feed()
	if len(got) != 1 || got[0].ListingID != "L1" {
		t.Errorf("malformed payloads changed the feed: %+v", got)
	}

	feed.OnPayload([]byte(`{"listingId":"L2","title":"Chair","amount":7,"bidderId":"U2","username":"bob"}`))
	if got := feed.Feed(); len(got) != 2 || got[0].ListingID != "L2" {
		t.Errorf("valid payload not prepended: %+v", got)
	}
}

func TestLiveFeedSnapshotIsACopy(t *testing.T) {
	feed := NewLiveFeed(DefaultFeedSize, logger.NewNop())
	feed.OnBidReceived(liveBid("L1", 10))

	snapshot := feed.Feed()
	snapshot[0].ListingID = "mutated"

	if feed.Feed()[0].ListingID != "L1" {
		t.Error("mutating a snapshot changed the feed")
	}
}

func TestLiveFeedObservers(t *testing.T) {
	feed := NewLiveFeed(DefaultFeedSize, logger.NewNop())

	var seen []string
	unobserve := feed.Observe(func(bid domain.LiveBid) {
		seen = append(seen, bid.ListingID)
	})

	feed.OnBidReceived(liveBid("L1", 1))
	feed.OnPayload([]byte(`not json`))
	unobserve()
	feed.OnBidReceived(liveBid("L2", 1))

	if len(seen) != 1 || seen[0] != "L1" {
		t.Errorf("observer saw %v, want [L1]", seen)
	}
}

func TestLiveFeedReset(t *testing.T) {
	feed := NewLiveFeed(DefaultFeedSize, logger.NewNop())
	feed.OnBidReceived(liveBid("L1", 1))
	feed.Reset()

	if feed.Len() != 0 {
		t.Errorf("Len after Reset = %d", feed.Len())
	}
}

func TestLiveFeedConcurrentWriters(t *testing.T) {
	feed := NewLiveFeed(DefaultFeedSize, logger.NewNop())

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				feed.OnBidReceived(liveBid(fmt.Sprintf("W%d", w), float64(i+1)))
				_ = feed.Feed()
			}
		}(w)
	}
	wg.Wait()

	if feed.Len() != DefaultFeedSize {
		t.Errorf("Len = %d, want %d", feed.Len(), DefaultFeedSize)
	}
}

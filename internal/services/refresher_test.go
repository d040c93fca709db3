package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"auction-sync/internal/domain"
	"auction-sync/pkg/logger"
)

func TestRefresherSweepRespectsLeadership(t *testing.T) {
	svc, store, fetches := newTestQueryService(t)
	ctx := context.Background()
	key := domain.NewQueryKey(domain.ResourceBids, "L1")
	if _, err := svc.Get(ctx, key); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := store.MarkStale(ctx, domain.Unscoped(domain.ResourceBids)); err != nil {
		t.Fatalf("MarkStale: %v", err)
	}

	leader := &fakeLeader{}
	refresher := NewRefresher(svc, leader, "node-1", "@every 1h", time.Hour, logger.NewNop())

	refresher.Sweep(ctx)
	svc.Wait()
	if got := atomic.LoadInt32(fetches); got != 1 {
		t.Fatalf("follower swept: fetches = %d", got)
	}

	leader.leader = true
	refresher.Sweep(ctx)
	svc.Wait()
	if got := atomic.LoadInt32(fetches); got != 2 {
		t.Errorf("leader did not sweep: fetches = %d", got)
	}
}

func TestRefresherWithoutLeaderAlwaysSweeps(t *testing.T) {
	svc, store, fetches := newTestQueryService(t)
	ctx := context.Background()
	key := domain.NewQueryKey(domain.ResourceListings, "")
	if _, err := svc.Get(ctx, key); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := store.MarkStale(ctx, domain.Unscoped(domain.ResourceListings)); err != nil {
		t.Fatalf("MarkStale: %v", err)
	}

	refresher := NewRefresher(svc, nil, "node-1", "@every 1h", time.Hour, logger.NewNop())
	refresher.Sweep(ctx)
	svc.Wait()

	if got := atomic.LoadInt32(fetches); got != 2 {
		t.Errorf("fetches = %d, want 2", got)
	}
}

func TestRefresherStartRejectsBadSchedule(t *testing.T) {
	svc, _, _ := newTestQueryService(t)
	refresher := NewRefresher(svc, nil, "node-1", "not a schedule", time.Hour, logger.NewNop())

	if err := refresher.Start(context.Background()); err == nil {
		refresher.Stop()
		t.Fatal("expected error for invalid schedule")
	}
}

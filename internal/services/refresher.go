package services

import (
	"context"
	"time"

	"auction-sync/internal/domain"
	"auction-sync/pkg/logger"

	"github.com/robfig/cron/v3"
)

// Refresher periodically retries refetches that failed after an
// invalidation. With a shared cache only the leader sweeps.
type Refresher struct {
	cron       *cron.Cron
	queries    *QueryService
	leader     domain.LeaderElection
	instanceID string
	schedule   string
	idleTTL    time.Duration
	log        logger.Logger
}

func NewRefresher(queries *QueryService, leader domain.LeaderElection, instanceID, schedule string,
	idleTTL time.Duration, log logger.Logger) *Refresher {
	return &Refresher{
		cron:       cron.New(cron.WithSeconds()),
		queries:    queries,
		leader:     leader,
		instanceID: instanceID,
		schedule:   schedule,
		idleTTL:    idleTTL,
		log:        log,
	}
}

func (r *Refresher) Start(ctx context.Context) error {
	r.log.Info("Starting cache refresher", "schedule", r.schedule)

	_, err := r.cron.AddFunc(r.schedule, func() {
		r.Sweep(ctx)
	})
	if err != nil {
		return err
	}

	r.cron.Start()
	return nil
}

func (r *Refresher) Stop() error {
	r.log.Info("Stopping cache refresher")
	<-r.cron.Stop().Done()
	return nil
}

// Sweep runs one refresh pass.
func (r *Refresher) Sweep(ctx context.Context) {
	if r.leader != nil {
		isLeader, err := r.leader.IsLeader(ctx, r.instanceID)
		if err != nil {
			r.log.Error("Failed to check leadership", "error", err)
			return
		}
		if !isLeader {
			return
		}
	}

	refetched, err := r.queries.Sweep(ctx, r.idleTTL)
	if err != nil {
		r.log.Error("Failed to sweep stale queries", "error", err)
		return
	}
	if refetched > 0 {
		r.log.Info("Refetching stale queries", "count", refetched)
	}
}

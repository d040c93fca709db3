package leader

import (
	"context"
	"errors"
	"sync"
	"time"

	"auction-sync/internal/domain"

	"github.com/go-redis/redis/v8"
)

var (
	releaseScript = redis.NewScript(`
        if redis.call("GET", KEYS[1]) == ARGV[1] then
            return redis.call("DEL", KEYS[1])
        else
            return 0
        end
    `)

	extendScript = redis.NewScript(`
        if redis.call("GET", KEYS[1]) == ARGV[1] then
            return redis.call("PEXPIRE", KEYS[1], ARGV[2])
        else
            return 0
        end
    `)
)

// RedisLeaderElection decides which instance sweeps the shared query cache.
type RedisLeaderElection struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	stop   map[string]context.CancelFunc
	mutex  sync.Mutex
}

func NewRedisLeaderElection(client *redis.Client, key string, ttl time.Duration) *RedisLeaderElection {
	return &RedisLeaderElection{
		client: client,
		key:    key,
		ttl:    ttl,
		stop:   make(map[string]context.CancelFunc),
	}
}

func (r *RedisLeaderElection) BecomeLeader(ctx context.Context, instanceID string) (bool, error) {
	result, err := r.client.SetNX(ctx, r.key, instanceID, r.ttl).Result()
	if err != nil {
		return false, err
	}

	if result {
		// Start heartbeat to maintain leadership
		hbCtx, cancel := context.WithCancel(context.Background())
		r.mutex.Lock()
		if prev, ok := r.stop[instanceID]; ok {
			prev()
		}
		r.stop[instanceID] = cancel
		r.mutex.Unlock()
		go r.maintainLeadership(hbCtx, instanceID)
	}

	return result, nil
}

func (r *RedisLeaderElection) IsLeader(ctx context.Context, instanceID string) (bool, error) {
	currentLeader, err := r.client.Get(ctx, r.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}

	return currentLeader == instanceID, nil
}

func (r *RedisLeaderElection) ReleaseLeadership(ctx context.Context, instanceID string) error {
	r.mutex.Lock()
	if cancel, ok := r.stop[instanceID]; ok {
		cancel()
		delete(r.stop, instanceID)
	}
	r.mutex.Unlock()

	return releaseScript.Run(ctx, r.client, []string{r.key}, instanceID).Err()
}

// Campaign retries BecomeLeader every interval until ctx is done.
func (r *RedisLeaderElection) Campaign(ctx context.Context, instanceID string, interval time.Duration,
	onElected func()) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		became, err := r.BecomeLeader(ctx, instanceID)
		if err == nil && became && onElected != nil {
			onElected()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (r *RedisLeaderElection) maintainLeadership(ctx context.Context, instanceID string) {
	ticker := time.NewTicker(r.ttl / 3) // Refresh at 1/3 of TTL
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		result, err := extendScript.Run(opCtx, r.client, []string{r.key},
			instanceID, r.ttl.Milliseconds()).Int()
		cancel()

		if err != nil || result == 0 {
			// Lost leadership, stop heartbeat
			return
		}
	}
}

var _ domain.LeaderElection = (*RedisLeaderElection)(nil)

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"auction-sync/internal/domain"
	"auction-sync/pkg/logger"

	"golang.org/x/sync/singleflight"
)

// QueryService serves cached query results and implements domain.Cache.
// Keys read through Get count as observed; invalidating an observed key
// refetches it in the background.
type QueryService struct {
	store        domain.QueryStore
	fetchers     map[domain.ResourceKind]domain.Fetcher
	observed     map[domain.QueryKey]time.Time
	observeMutex sync.Mutex
	group        singleflight.Group
	inflight     sync.WaitGroup
	fetchTimeout time.Duration
	now          domain.Clock
	log          logger.Logger
}

func NewQueryService(store domain.QueryStore, fetchTimeout time.Duration, log logger.Logger) *QueryService {
	if fetchTimeout <= 0 {
		fetchTimeout = 5 * time.Second
	}
	return &QueryService{
		store:        store,
		fetchers:     make(map[domain.ResourceKind]domain.Fetcher),
		observed:     make(map[domain.QueryKey]time.Time),
		fetchTimeout: fetchTimeout,
		now:          time.Now,
		log:          log,
	}
}

// RegisterFetcher must be called before the service is shared.
func (s *QueryService) RegisterFetcher(kind domain.ResourceKind, fetcher domain.Fetcher) {
	s.fetchers[kind] = fetcher
}

// Get returns the cached result for key, fetching it when missing or stale.
// Invalid keys are rejected before they are observed.
func (s *QueryService) Get(ctx context.Context, key domain.QueryKey) (json.RawMessage, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	s.observe(key)

	cached, err := s.store.Get(ctx, key)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("read cache %s: %w", key, err)
	}
	if err == nil && !cached.Stale {
		return cached.Data, nil
	}

	return s.load(ctx, key)
}

// Invalidate marks matching entries stale and refetches the observed ones.
// Repeating it has the same effect as calling it once.
func (s *QueryService) Invalidate(ctx context.Context, target domain.InvalidationTarget) error {
	keys, err := s.store.MarkStale(ctx, target)
	if err != nil {
		return fmt.Errorf("mark stale %s: %w", target, err)
	}

	for _, key := range keys {
		if !s.isObserved(key) {
			continue
		}
		s.refetch(key)
	}
	return nil
}

// Sweep retries refetch for stale keys that are still observed and forgets
// observers idle for longer than idleTTL.
func (s *QueryService) Sweep(ctx context.Context, idleTTL time.Duration) (int, error) {
	s.dropIdle(idleTTL)

	keys, err := s.store.StaleKeys(ctx)
	if err != nil {
		return 0, fmt.Errorf("list stale keys: %w", err)
	}

	refetched := 0
	for _, key := range keys {
		if !s.isObserved(key) {
			continue
		}
		s.refetch(key)
		refetched++
	}
	return refetched, nil
}

// Wait blocks until background refetches have finished.
func (s *QueryService) Wait() {
	s.inflight.Wait()
}

func (s *QueryService) ObservedCount() int {
	s.observeMutex.Lock()
	defer s.observeMutex.Unlock()
	return len(s.observed)
}

func (s *QueryService) refetch(key domain.QueryKey) {
	// Start a new fetch instead of joining one that began before the
	// invalidation. The older one loses the generation check in load.
	s.group.Forget(key.String())

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.fetchTimeout)
		defer cancel()

		if _, err := s.load(ctx, key); err != nil {
			s.log.Error("Failed to refetch query", "key", key.String(), "error", err)
			return
		}
		s.log.Debug("Refetched query", "key", key.String())
	}()
}

func (s *QueryService) load(ctx context.Context, key domain.QueryKey) (json.RawMessage, error) {
	fetcher, ok := s.fetchers[key.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownKind, key.Kind)
	}

	v, err, _ := s.group.Do(key.String(), func() (interface{}, error) {
		// Read before fetching: an invalidation landing mid-fetch bumps the
		// generation and the write below is refused.
		generation, err := s.store.Generation(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("read generation %s: %w", key, err)
		}
		value, err := fetcher(ctx, key)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", key, err)
		}
		stored, err := s.store.Put(ctx, key, data, generation)
		if err != nil {
			return nil, fmt.Errorf("write cache %s: %w", key, err)
		}
		if !stored {
			s.log.Debug("Discarded superseded fetch", "key", key.String(), "generation", generation)
		}
		return json.RawMessage(data), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(json.RawMessage), nil
}

func (s *QueryService) observe(key domain.QueryKey) {
	s.observeMutex.Lock()
	s.observed[key] = s.now()
	s.observeMutex.Unlock()
}

func (s *QueryService) isObserved(key domain.QueryKey) bool {
	s.observeMutex.Lock()
	defer s.observeMutex.Unlock()
	_, ok := s.observed[key]
	return ok
}

func (s *QueryService) dropIdle(idleTTL time.Duration) {
	if idleTTL <= 0 {
		return
	}
	cutoff := s.now().Add(-idleTTL)

	s.observeMutex.Lock()
	defer s.observeMutex.Unlock()
	for key, last := range s.observed {
		if last.Before(cutoff) {
			delete(s.observed, key)
		}
	}
}

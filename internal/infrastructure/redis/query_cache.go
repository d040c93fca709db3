package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"auction-sync/internal/domain"

	"github.com/go-redis/redis/v8"
)

const scanBatch = 200

// markStaleScript only touches entries that exist so invalidation never
// creates empty hashes.
var markStaleScript = redis.NewScript(`
        if redis.call('EXISTS', KEYS[1]) == 1 then
            redis.call('HSET', KEYS[1], 'stale', '1')
            redis.call('HINCRBY', KEYS[1], 'gen', 1)
            return 1
        end
        return 0
    `)

// putScript writes the entry only if its generation still equals ARGV[1].
// ARGV: generation, data, fetched_at, ttl in milliseconds.
var putScript = redis.NewScript(`
        local current = redis.call('HGET', KEYS[1], 'gen')
        if not current then
            current = '0'
        end
        if current ~= ARGV[1] then
            return 0
        end
        redis.call('HSET', KEYS[1], 'data', ARGV[2], 'stale', '0', 'fetched_at', ARGV[3], 'gen', ARGV[1])
        if tonumber(ARGV[4]) > 0 then
            redis.call('PEXPIRE', KEYS[1], ARGV[4])
        end
        return 1
    `)

// RedisQueryCache is a domain.QueryStore shared by every instance.
//
// Key schema:
//
//	{prefix}:{kind}          - unscoped query
//	{prefix}:{kind}:{scope}  - scoped query
//
// Each key is a hash with fields data, stale, fetched_at and gen.
type RedisQueryCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisQueryCache(client *redis.Client, prefix string, ttl time.Duration) *RedisQueryCache {
	return &RedisQueryCache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (r *RedisQueryCache) key(key domain.QueryKey) string {
	return r.prefix + ":" + key.String()
}

func (r *RedisQueryCache) parseKey(redisKey string) (domain.QueryKey, bool) {
	rest := strings.TrimPrefix(redisKey, r.prefix+":")
	if rest == redisKey {
		return domain.QueryKey{}, false
	}
	parts := strings.SplitN(rest, ":", 2)
	key, err := domain.ParseQueryKey(parts)
	if err != nil {
		return domain.QueryKey{}, false
	}
	return key, true
}

func (r *RedisQueryCache) Get(ctx context.Context, key domain.QueryKey) (*domain.CachedQuery, error) {
	result, err := r.client.HGetAll(ctx, r.key(key)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: get query %s: %w", key, err)
	}
	data, ok := result["data"]
	if !ok {
		return nil, domain.ErrNotFound
	}

	cached := &domain.CachedQuery{
		Key:   key,
		Data:  []byte(data),
		Stale: result["stale"] == "1",
	}
	if ts, err := strconv.ParseInt(result["fetched_at"], 10, 64); err == nil {
		cached.FetchedAt = time.Unix(ts, 0)
	}
	return cached, nil
}

func (r *RedisQueryCache) Generation(ctx context.Context, key domain.QueryKey) (uint64, error) {
	gen, err := r.client.HGet(ctx, r.key(key), "gen").Uint64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis: read generation %s: %w", key, err)
	}
	return gen, nil
}

func (r *RedisQueryCache) Put(ctx context.Context, key domain.QueryKey, data []byte, generation uint64) (bool, error) {
	stored, err := putScript.Run(ctx, r.client, []string{r.key(key)},
		strconv.FormatUint(generation, 10),
		data,
		time.Now().Unix(),
		r.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("redis: put query %s: %w", key, err)
	}
	return stored == 1, nil
}

func (r *RedisQueryCache) MarkStale(ctx context.Context, target domain.InvalidationTarget) ([]domain.QueryKey, error) {
	var candidates []string
	if target.IsScoped() {
		candidates = []string{r.key(domain.NewQueryKey(target.Kind, target.ScopeID))}
	} else {
		unscoped := r.key(domain.NewQueryKey(target.Kind, ""))
		scoped, err := r.scan(ctx, unscoped+":*")
		if err != nil {
			return nil, err
		}
		candidates = append([]string{unscoped}, scoped...)
	}

	var keys []domain.QueryKey
	for _, redisKey := range candidates {
		marked, err := markStaleScript.Run(ctx, r.client, []string{redisKey}).Int()
		if err != nil {
			return keys, fmt.Errorf("redis: mark stale %s: %w", redisKey, err)
		}
		if marked == 0 {
			continue
		}
		if key, ok := r.parseKey(redisKey); ok {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (r *RedisQueryCache) StaleKeys(ctx context.Context) ([]domain.QueryKey, error) {
	redisKeys, err := r.scan(ctx, r.prefix+":*")
	if err != nil {
		return nil, err
	}
	if len(redisKeys) == 0 {
		return nil, nil
	}

	pipe := r.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(redisKeys))
	for i, redisKey := range redisKeys {
		cmds[i] = pipe.HGet(ctx, redisKey, "stale")
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("redis: read stale flags: %w", err)
	}

	var keys []domain.QueryKey
	for i, cmd := range cmds {
		if cmd.Val() != "1" {
			continue
		}
		if key, ok := r.parseKey(redisKeys[i]); ok {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (r *RedisQueryCache) Delete(ctx context.Context, key domain.QueryKey) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("redis: delete query %s: %w", key, err)
	}
	return nil
}

func (r *RedisQueryCache) scan(ctx context.Context, pattern string) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := r.client.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return nil, fmt.Errorf("redis: scan %s: %w", pattern, err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}

var _ domain.QueryStore = (*RedisQueryCache)(nil)

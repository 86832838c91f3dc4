package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "streamrelay:"

// opTimeout bounds a single cache round trip
const opTimeout = 2 * time.Second

func init() {
	Register("redis", newRedisCache)
}

// redisCache stores each entry as its own string key with a PX expiry and
// tracks recency in a sorted set:
//
//   - {prefix}{group}:v:{key} holds the value
//   - {prefix}{group}:lru scores each key with its last access time in µs
//
// Scripts keep the value write, the recency update and the eviction atomic.
// Sorted set members whose value already expired are dropped lazily.
type redisCache struct {
	client      *redis.Client
	ttl         time.Duration
	maxSize     int
	onEvict     EvictCallback
	logger      Logger
	valuePrefix string
	lruKey      string
}

// KEYS[1] = value key, KEYS[2] = lru set; ARGV[1] = now µs, ARGV[2] = member
var getAndTouch = redis.NewScript(`
local val = redis.call('GET', KEYS[1])
if val then
    redis.call('ZADD', KEYS[2], ARGV[1], ARGV[2])
else
    redis.call('ZREM', KEYS[2], ARGV[2])
end
return val
`)

// KEYS[1] = value key, KEYS[2] = lru set
// ARGV[1] = value, ARGV[2] = now µs, ARGV[3] = member, ARGV[4] = max size,
// ARGV[5] = ttl ms, ARGV[6] = value key prefix
// Returns the evicted members.
var setAndEvict = redis.NewScript(`
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[5])
redis.call('ZADD', KEYS[2], ARGV[2], ARGV[3])

local maxSize = tonumber(ARGV[4])
local evicted = {}
while redis.call('ZCARD', KEYS[2]) > maxSize do
    local oldest = redis.call('ZPOPMIN', KEYS[2], 1)
    if #oldest == 0 then break end
    if redis.call('DEL', ARGV[6] .. oldest[1]) == 1 then
        table.insert(evicted, oldest[1])
    end
end
return evicted
`)

func newRedisCache(cfg ProviderConfig) (Cache, error) {
	if cfg.RedisAddress == "" {
		return nil, errors.New("redis address is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	namespace := keyPrefix
	if cfg.Group != "" {
		namespace += cfg.Group + ":"
	}
	return &redisCache{
		client:      client,
		ttl:         ttl,
		maxSize:     cfg.Size,
		onEvict:     cfg.OnEvict,
		logger:      cfg.Logger,
		valuePrefix: namespace + "v:",
		lruKey:      namespace + "lru",
	}, nil
}

func (r *redisCache) logError(msg string, err error) {
	if r.logger != nil {
		r.logger.Error(msg, err)
	}
}

func (r *redisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	now := strconv.FormatInt(time.Now().UnixMicro(), 10)
	result, err := getAndTouch.Run(ctx, r.client, []string{r.valuePrefix + key, r.lruKey}, now, key).Text()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logError("redis cache get failed", err)
		}
		return nil, false
	}
	return []byte(result), true
}

func (r *redisCache) Set(ctx context.Context, key string, value []byte) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	evicted, err := setAndEvict.Run(ctx, r.client, []string{r.valuePrefix + key, r.lruKey},
		value,
		strconv.FormatInt(time.Now().UnixMicro(), 10),
		key,
		strconv.Itoa(r.maxSize),
		strconv.FormatInt(r.ttl.Milliseconds(), 10),
		r.valuePrefix,
	).StringSlice()
	if err != nil {
		r.logError("redis cache set failed", err)
		return
	}

	if r.onEvict != nil {
		for _, k := range evicted {
			r.onEvict(k, nil)
		}
	}
}

// Len counts members accessed within the TTL; older members cannot be live.
func (r *redisCache) Len() int {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	since := strconv.FormatInt(time.Now().Add(-r.ttl).UnixMicro(), 10)
	n, err := r.client.ZCount(ctx, r.lruKey, since, "+inf").Result()
	if err != nil {
		r.logError("redis cache len failed", err)
		return 0
	}
	return int(n)
}

func (r *redisCache) Close() error {
	return r.client.Close()
}

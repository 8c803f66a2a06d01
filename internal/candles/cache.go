package candles

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"forex-signalsv1/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

// CacheConfig configures the Redis candle cache.
type CacheConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration // per-entry expiry, e.g. 60s
}

// Cache is a read-through Redis decorator over a Source. Repeated fetches of
// the same (pair, granularity, count) within the TTL are served from Redis,
// sparing the upstream API one round trip per pair per gate. Cache failures
// fall through to the upstream source — the cache never makes a fetch fail.
type Cache struct {
	next   Source
	client *goredis.Client
	ttl    time.Duration
}

// NewCache creates the cache decorator and pings Redis.
func NewCache(next Source, cfg CacheConfig) (*Cache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("candles cache: redis ping: %w", err)
	}

	log.Printf("[candles] cache connected to redis at %s", cfg.Addr)
	return &Cache{next: next, client: client, ttl: cfg.TTL}, nil
}

// Close releases the Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}

func cacheKey(pair model.Pair, gran model.Granularity, count int) string {
	return "candles:" + pair.String() + ":" + string(gran) + ":" + strconv.Itoa(count)
}

func (c *Cache) Recent(ctx context.Context, pair model.Pair, gran model.Granularity, count int) ([]model.Candle, error) {
	key := cacheKey(pair, gran, count)

	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var cached []model.Candle
		if jerr := json.Unmarshal(raw, &cached); jerr == nil {
			return cached, nil
		}
		// Corrupt entry: drop it and refetch.
		c.client.Del(ctx, key)
	} else if err != goredis.Nil {
		log.Printf("[candles] cache read %s: %v", key, err)
	}

	out, err := c.next.Recent(ctx, pair, gran, count)
	if err != nil {
		return nil, err
	}

	if len(out) > 0 {
		if raw, jerr := json.Marshal(out); jerr == nil {
			if serr := c.client.Set(ctx, key, raw, c.ttl).Err(); serr != nil {
				log.Printf("[candles] cache write %s: %v", key, serr)
			}
		}
	}
	return out, nil
}

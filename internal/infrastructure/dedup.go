package infrastructure

import (
	"context"
	"fmt"
	"sync"
	"time"

	"crm_engine/internal/errx"

	lru "github.com/hashicorp/golang-lru"
	"github.com/redis/go-redis/v9"
)

const dedupKeyPrefix = "crm:ingest:"

// RedisDeduper shares seen keys across replicas with SET NX EX.
type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisDeduper(client *redis.Client, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{client: client, ttl: ttl}
}

func (d *RedisDeduper) FirstSeen(ctx context.Context, key string) (bool, error) {
	ok, err := d.client.SetNX(ctx, dedupKeyPrefix+key, time.Now().Unix(), d.ttl).Result()
	if err != nil {
		return false, errx.WrapRedis(err)
	}
	return ok, nil
}

func (d *RedisDeduper) Forget(ctx context.Context, key string) error {
	return errx.WrapRedis(d.client.Del(ctx, dedupKeyPrefix+key).Err())
}

// MemoryDeduper is the single-process fallback: a bounded LRU of keys with
// their expiry.
type MemoryDeduper struct {
	mu    sync.Mutex
	cache *lru.Cache
	ttl   time.Duration
	now   func() time.Time
}

func NewMemoryDeduper(size int, ttl time.Duration) (*MemoryDeduper, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create dedup cache: %w", err)
	}
	return &MemoryDeduper{cache: cache, ttl: ttl, now: time.Now}, nil
}

func (d *MemoryDeduper) FirstSeen(_ context.Context, key string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if v, ok := d.cache.Get(key); ok {
		if expires := v.(time.Time); now.Before(expires) {
			return false, nil
		}
	}
	d.cache.Add(key, now.Add(d.ttl))
	return true, nil
}

func (d *MemoryDeduper) Forget(_ context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cache.Remove(key)
	return nil
}

package cachestore

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/cache/v9"
	"github.com/redis/go-redis/v9"
)

const (
	redisCachePrefix = "modbot/cache/"
	redisClaimPrefix = "modbot/claim/"
)

// RedisCacheStore serves values through go-redis/cache, with a small local LFU in front of
// redis. Claims bypass the local cache and go straight to redis with SETNX, so they hold
// across every modbot instance sharing the redis.
type RedisCacheStore struct {
	Client *redis.Client
	Data   *cache.Cache
	TTL    time.Duration
}

var _ CacheStore = (*RedisCacheStore)(nil)

func NewRedisCacheStore(redisURL string, ttl time.Duration) (*RedisCacheStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &RedisCacheStore{
		Client: rdb,
		Data: cache.New(&cache.Options{
			Redis:      rdb,
			LocalCache: cache.NewTinyLFU(10_000, ttl),
		}),
		TTL: ttl,
	}, nil
}

func (s *RedisCacheStore) Get(ctx context.Context, name, key string) (string, error) {
	var val string
	err := s.Data.Get(ctx, redisCachePrefix+namespaced(name, key), &val)
	if errors.Is(err, cache.ErrCacheMiss) {
		return "", nil
	}
	return val, err
}

func (s *RedisCacheStore) Set(ctx context.Context, name, key string, val string) error {
	return s.Data.Set(&cache.Item{
		Ctx:   ctx,
		Key:   redisCachePrefix + namespaced(name, key),
		Value: val,
		TTL:   s.TTL,
	})
}

func (s *RedisCacheStore) Purge(ctx context.Context, name, key string) error {
	err := s.Data.Delete(ctx, redisCachePrefix+namespaced(name, key))
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil
	}
	return err
}

func (s *RedisCacheStore) Claim(ctx context.Context, name, key string, val string) (bool, error) {
	return s.Client.SetNX(ctx, redisClaimPrefix+namespaced(name, key), val, s.TTL).Result()
}

func (s *RedisCacheStore) Release(ctx context.Context, name, key string) error {
	return s.Client.Del(ctx, redisClaimPrefix+namespaced(name, key)).Err()
}

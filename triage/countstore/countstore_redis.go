package countstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

var redisCountPrefix string = "count/"
var redisDistinctPrefix string = "distinct/"

type RedisCountStore struct {
	Client *redis.Client
}

var _ CountStore = (*RedisCountStore)(nil)

func NewRedisCountStore(redisURL string) (*RedisCountStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	_, err = rdb.Ping(context.TODO()).Result()
	if err != nil {
		return nil, err
	}
	return &RedisCountStore{Client: rdb}, nil
}

func (s *RedisCountStore) GetCount(ctx context.Context, name, val, period string) (int, error) {
	key := redisCountPrefix + periodBucket(name, val, period)
	c, err := s.Client.Get(ctx, key).Int()
	if err == redis.Nil {
		return 0, nil
	} else if err != nil {
		return 0, err
	}
	return c, nil
}

// pipelined update of the hour, day and total buckets for a key
func (s *RedisCountStore) updateBuckets(ctx context.Context, prefix, name, val string, op func(redis.Pipeliner, string)) error {
	multi := s.Client.Pipeline()

	key := prefix + periodBucket(name, val, PeriodHour)
	op(multi, key)
	multi.Expire(ctx, key, 2*time.Hour)

	key = prefix + periodBucket(name, val, PeriodDay)
	op(multi, key)
	multi.Expire(ctx, key, 48*time.Hour)

	// no expiration for total
	op(multi, prefix+periodBucket(name, val, PeriodTotal))

	_, err := multi.Exec(ctx)
	return err
}

func (s *RedisCountStore) Increment(ctx context.Context, name, val string) error {
	return s.updateBuckets(ctx, redisCountPrefix, name, val, func(p redis.Pipeliner, key string) {
		p.Incr(ctx, key)
	})
}

func (s *RedisCountStore) GetCountDistinct(ctx context.Context, name, bucket, period string) (int, error) {
	key := redisDistinctPrefix + periodBucket(name, bucket, period)
	c, err := s.Client.PFCount(ctx, key).Result()
	if err == redis.Nil {
		return 0, nil
	} else if err != nil {
		return 0, err
	}
	return int(c), nil
}

func (s *RedisCountStore) IncrementDistinct(ctx context.Context, name, bucket, val string) error {
	return s.updateBuckets(ctx, redisDistinctPrefix, name, bucket, func(p redis.Pipeliner, key string) {
		p.PFAdd(ctx, key, val)
	})
}

package abusestore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

var redisAbusePrefix string = "abuse/"

type RedisAbuseStore struct {
	Client *redis.Client
}

var _ AbuseStore = (*RedisAbuseStore)(nil)

func NewRedisAbuseStore(redisURL string) (*RedisAbuseStore, error) {
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
	return &RedisAbuseStore{
		Client: rdb,
	}, nil
}

func (s *RedisAbuseStore) Append(ctx context.Context, ident string, e Entry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	// no expiration: history is permanent
	return s.Client.RPush(ctx, redisAbusePrefix+ident, b).Err()
}

func (s *RedisAbuseStore) History(ctx context.Context, ident string) ([]Entry, error) {
	raw, err := s.Client.LRange(ctx, redisAbusePrefix+ident, 0, -1).Result()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(raw))
	for _, r := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(r), &e); err != nil {
			return nil, fmt.Errorf("decoding abuse entry for %s: %w", ident, err)
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *RedisAbuseStore) Count(ctx context.Context, ident string) (int, error) {
	c, err := s.Client.LLen(ctx, redisAbusePrefix+ident).Result()
	if err == redis.Nil {
		return 0, nil
	} else if err != nil {
		return 0, err
	}
	return int(c), nil
}

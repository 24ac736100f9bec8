package cachestore

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemCacheStore keeps cached values and claims in separate expiring LRUs. Claims are only
// atomic within this process.
type MemCacheStore struct {
	values *expirable.LRU[string, string]

	claimLk sync.Mutex
	claims  *expirable.LRU[string, string]
}

var _ CacheStore = (*MemCacheStore)(nil)

func NewMemCacheStore(capacity int, ttl time.Duration) *MemCacheStore {
	return &MemCacheStore{
		values: expirable.NewLRU[string, string](capacity, nil, ttl),
		claims: expirable.NewLRU[string, string](capacity, nil, ttl),
	}
}

func (s *MemCacheStore) Get(ctx context.Context, name, key string) (string, error) {
	v, _ := s.values.Get(namespaced(name, key))
	return v, nil
}

func (s *MemCacheStore) Set(ctx context.Context, name, key string, val string) error {
	s.values.Add(namespaced(name, key), val)
	return nil
}

func (s *MemCacheStore) Purge(ctx context.Context, name, key string) error {
	s.values.Remove(namespaced(name, key))
	return nil
}

func (s *MemCacheStore) Claim(ctx context.Context, name, key string, val string) (bool, error) {
	k := namespaced(name, key)
	s.claimLk.Lock()
	defer s.claimLk.Unlock()
	if s.claims.Contains(k) {
		return false, nil
	}
	s.claims.Add(k, val)
	return true, nil
}

func (s *MemCacheStore) Release(ctx context.Context, name, key string) error {
	s.claimLk.Lock()
	defer s.claimLk.Unlock()
	s.claims.Remove(namespaced(name, key))
	return nil
}

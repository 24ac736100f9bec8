package abusestore

import (
	"context"
	"sync"
)

type MemAbuseStore struct {
	lk      sync.Mutex
	entries map[string][]Entry
}

var _ AbuseStore = (*MemAbuseStore)(nil)

func NewMemAbuseStore() *MemAbuseStore {
	return &MemAbuseStore{
		entries: make(map[string][]Entry),
	}
}

func (s *MemAbuseStore) Append(ctx context.Context, ident string, e Entry) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	s.entries[ident] = append(s.entries[ident], e)
	return nil
}

func (s *MemAbuseStore) History(ctx context.Context, ident string) ([]Entry, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	l := s.entries[ident]
	out := make([]Entry, len(l))
	copy(out, l)
	return out, nil
}

func (s *MemAbuseStore) Count(ctx context.Context, ident string) (int, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	return len(s.entries[ident]), nil
}

package session

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryStore keeps sessions in process. Used when Redis is not configured;
// sessions do not survive a restart.
type MemoryStore struct {
	c *cache.Cache
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{c: cache.New(cache.NoExpiration, 10*time.Minute)}
}

func (s *MemoryStore) Save(_ context.Context, id string, userID uint, ttl time.Duration) error {
	s.c.Set(id, userID, ttl)
	return nil
}

func (s *MemoryStore) Load(_ context.Context, id string) (uint, error) {
	v, ok := s.c.Get(id)
	if !ok {
		return 0, ErrNotFound
	}
	return v.(uint), nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.c.Delete(id)
	return nil
}

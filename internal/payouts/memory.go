package payouts

import (
	"context"
	"sync"
	"time"
)

type memoryStore struct {
	mu   sync.RWMutex
	last map[int64]time.Time
	now  func() time.Time
}

// NewMemoryStore creates a concurrency-safe in-memory payout history store
// used in development mode and unit tests.
func NewMemoryStore() Store {
	return &memoryStore{
		last: make(map[int64]time.Time),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// NewMemoryStoreAt is like NewMemoryStore but with an injectable clock.
func NewMemoryStoreAt(now func() time.Time) Store {
	return &memoryStore{last: make(map[int64]time.Time), now: now}
}

func (s *memoryStore) MayCollect(_ context.Context, githubUserID int64) (Decision, error) {
	s.mu.RLock()
	lastPayout, exists := s.last[githubUserID]
	s.mu.RUnlock()

	if !exists {
		return Decision{Allowed: true}, nil
	}
	return decide(lastPayout, s.now()), nil
}

func (s *memoryStore) RecordPayout(_ context.Context, githubUserID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last[githubUserID] = at.UTC()
	return nil
}

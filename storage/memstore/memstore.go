// Package memstore is a thread-safe in-memory storage.Store. Entries are
// lost on restart; expired entries are dropped lazily on read.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/go-atproto-sessions/storage"
)

type entry struct {
	value     []byte
	expiresAt time.Time // zero = never expires
}

type Store struct {
	mu      sync.RWMutex
	data    map[string]entry
	nowTime func() time.Time
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		data:    make(map[string]entry),
		nowTime: time.Now,
	}
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	e, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if !e.expiresAt.IsZero() && s.nowTime().After(e.expiresAt) {
		s.mu.Lock()
		// Recheck before deleting: a concurrent Set may have replaced the
		// expired entry with a fresh one since the read lock was dropped.
		if cur, ok := s.data[key]; ok && cur.expiresAt.Equal(e.expiresAt) {
			delete(s.data, key)
		}
		s.mu.Unlock()
		return nil, nil
	}

	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := entry{value: make([]byte, len(value))}
	copy(e.value, value)
	if ttl > 0 {
		e.expiresAt = s.nowTime().Add(ttl)
	}

	s.mu.Lock()
	s.data[key] = e
	s.mu.Unlock()
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	return nil
}

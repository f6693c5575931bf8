// Package access gates who may invoke balance-changing operations. It
// tracks failed login attempts and lockout per principal, and session
// liveness with sliding expiration through a pluggable SessionStore.
package access

import (
	"context"
	"sync"
	"time"
)

// SessionStore tracks session liveness per principal. A session is a bare
// liveness fact with a TTL; refreshing it implements sliding expiration.
type SessionStore interface {
	Start(ctx context.Context, principal string, ttl time.Duration) error
	Active(ctx context.Context, principal string) (bool, error)
	Refresh(ctx context.Context, principal string, ttl time.Duration) error
	End(ctx context.Context, principal string) error
}

// MemorySessionStore is the default in-process SessionStore.
type MemorySessionStore struct {
	mu       sync.Mutex
	expiries map[string]time.Time
	now      func() time.Time
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		expiries: make(map[string]time.Time),
		now:      time.Now,
	}
}

func (s *MemorySessionStore) Start(_ context.Context, principal string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expiries[principal] = s.now().Add(ttl)
	return nil
}

func (s *MemorySessionStore) Active(_ context.Context, principal string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	expiry, ok := s.expiries[principal]
	if !ok {
		return false, nil
	}
	if s.now().After(expiry) {
		delete(s.expiries, principal)
		return false, nil
	}
	return true, nil
}

func (s *MemorySessionStore) Refresh(_ context.Context, principal string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	expiry, ok := s.expiries[principal]
	if !ok || s.now().After(expiry) {
		// expired sessions are not resurrected by a refresh
		delete(s.expiries, principal)
		return nil
	}
	s.expiries[principal] = s.now().Add(ttl)
	return nil
}

func (s *MemorySessionStore) End(_ context.Context, principal string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.expiries, principal)
	return nil
}

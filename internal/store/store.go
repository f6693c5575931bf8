// Package store persists account state. The engine is the only writer and
// holds a per-account lock across read-modify-write, so stores only need to
// be safe for concurrent access, not to arbitrate conflicting writes.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/ruralpay/corebank/internal/models"
)

// AccountStore is the persistence contract consumed by the engine.
type AccountStore interface {
	// Get returns the account or models.ErrAccountNotFound.
	Get(ctx context.Context, number string) (*models.Account, error)
	// Save persists the account after a completed mutation.
	Save(ctx context.Context, account *models.Account) error
	// SaveAll persists a set of accounts atomically; either every account
	// is written or none is. Transfers persist both legs through here.
	SaveAll(ctx context.Context, accounts []*models.Account) error
	// All returns every account, ordered by account number.
	All(ctx context.Context) ([]*models.Account, error)
}

// MemoryStore is an in-process AccountStore. Accounts are copied on the way
// in and out so the only mutation path is through the engine's locked
// read-modify-write cycle.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]*models.Account
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[string]*models.Account)}
}

func (s *MemoryStore) Get(_ context.Context, number string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[number]
	if !ok {
		return nil, models.ErrAccountNotFound
	}
	return account.Clone(), nil
}

func (s *MemoryStore) Save(_ context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := account.Clone()
	cp.Version++
	s.accounts[cp.Number] = cp
	account.Version = cp.Version
	return nil
}

func (s *MemoryStore) SaveAll(_ context.Context, accounts []*models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, account := range accounts {
		cp := account.Clone()
		cp.Version++
		s.accounts[cp.Number] = cp
		account.Version = cp.Version
	}
	return nil
}

func (s *MemoryStore) All(_ context.Context) ([]*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Account, 0, len(s.accounts))
	for _, account := range s.accounts {
		out = append(out, account.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

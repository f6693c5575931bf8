package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ruralpay/corebank/internal/models"
)

// lockTable hands out one exclusive lock per account number. Locks are
// capacity-1 channels so acquisition can be bounded by a timeout instead of
// blocking indefinitely.
type lockTable struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func newLockTable() *lockTable {
	return &lockTable{slots: make(map[string]chan struct{})}
}

func (lt *lockTable) slot(number string) chan struct{} {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	slot, ok := lt.slots[number]
	if !ok {
		slot = make(chan struct{}, 1)
		lt.slots[number] = slot
	}
	return slot
}

// acquire takes the lock for one account, waiting at most wait. A timeout
// surfaces as models.ErrLockTimeout with nothing held.
func (lt *lockTable) acquire(ctx context.Context, number string, wait time.Duration) error {
	slot := lt.slot(number)
	select {
	case slot <- struct{}{}:
		return nil
	default:
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case slot <- struct{}{}:
		return nil
	case <-timer.C:
		return models.ErrLockTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (lt *lockTable) release(number string) {
	<-lt.slot(number)
}

// acquireAll locks a set of accounts in ascending account-number order, the
// global order that keeps two opposite-direction transfers on the same pair
// from deadlocking. On any failure everything already held is released.
func (lt *lockTable) acquireAll(ctx context.Context, numbers []string, wait time.Duration) error {
	ordered := make([]string, len(numbers))
	copy(ordered, numbers)
	sort.Strings(ordered)

	for i, number := range ordered {
		if err := lt.acquire(ctx, number, wait); err != nil {
			for j := i - 1; j >= 0; j-- {
				lt.release(ordered[j])
			}
			return err
		}
	}
	return nil
}

func (lt *lockTable) releaseAll(numbers []string) {
	for _, number := range numbers {
		lt.release(number)
	}
}

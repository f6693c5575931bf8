package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruralpay/corebank/internal/models"
)

func TestLockTable_Acquire(t *testing.T) {
	ctx := context.Background()
	lt := newLockTable()

	require.NoError(t, lt.acquire(ctx, "A101", time.Millisecond))

	err := lt.acquire(ctx, "A101", 10*time.Millisecond)
	assert.ErrorIs(t, err, models.ErrLockTimeout)

	lt.release("A101")
	require.NoError(t, lt.acquire(ctx, "A101", time.Millisecond))
	lt.release("A101")
}

func TestLockTable_IndependentAccounts(t *testing.T) {
	ctx := context.Background()
	lt := newLockTable()

	require.NoError(t, lt.acquire(ctx, "A101", time.Millisecond))
	require.NoError(t, lt.acquire(ctx, "A102", time.Millisecond))
	lt.releaseAll([]string{"A101", "A102"})
}

func TestLockTable_AcquireAllRollsBack(t *testing.T) {
	ctx := context.Background()
	lt := newLockTable()

	// hold the middle of the set so acquireAll fails partway through
	require.NoError(t, lt.acquire(ctx, "A102", time.Millisecond))

	err := lt.acquireAll(ctx, []string{"A103", "A101", "A102"}, 10*time.Millisecond)
	assert.ErrorIs(t, err, models.ErrLockTimeout)

	// the accounts acquired before the failure were released
	require.NoError(t, lt.acquire(ctx, "A101", time.Millisecond))
	require.NoError(t, lt.acquire(ctx, "A103", time.Millisecond))
}

func TestLockTable_AcquireAllHandsBackWaiters(t *testing.T) {
	ctx := context.Background()
	lt := newLockTable()

	require.NoError(t, lt.acquireAll(ctx, []string{"A102", "A101"}, time.Millisecond))

	done := make(chan error, 1)
	go func() {
		done <- lt.acquireAll(ctx, []string{"A101", "A102"}, time.Second)
	}()

	lt.releaseAll([]string{"A102", "A101"})

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("waiter never acquired the released locks")
	}
	lt.releaseAll([]string{"A101", "A102"})
}

func TestLockTable_ContextCancellation(t *testing.T) {
	lt := newLockTable()
	require.NoError(t, lt.acquire(context.Background(), "A101", time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := lt.acquire(ctx, "A101", time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}

package access

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruralpay/corebank/internal/models"
)

// fakeClock drives both the controller and the memory session store so
// lockout and session expiry can be tested without sleeping.
type fakeClock struct {
	current time.Time
}

func (c *fakeClock) now() time.Time { return c.current }

func (c *fakeClock) advance(d time.Duration) { c.current = c.current.Add(d) }

func newTestController(clock *fakeClock) (*Controller, *MemorySessionStore) {
	sessions := NewMemorySessionStore()
	sessions.now = clock.now
	ctrl := NewController(Config{
		SessionTimeout:  20 * time.Minute,
		LockoutDuration: 2 * time.Minute,
		MaxAttempts:     3,
	}, sessions)
	ctrl.now = clock.now
	return ctrl, sessions
}

func TestController_LockoutBoundary(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{current: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	ctrl, _ := newTestController(clock)

	// two failures: refused but not locked out
	for i := 0; i < 2; i++ {
		res := ctrl.AttemptLogin(ctx, "teller-1", false)
		assert.False(t, res.Granted)
		assert.NotEqual(t, models.ReasonLockedOut, res.Reason)
	}

	// third failure trips the lockout
	res := ctrl.AttemptLogin(ctx, "teller-1", false)
	assert.False(t, res.Granted)
	assert.Equal(t, models.ReasonLockedOut, res.Reason)
	assert.Equal(t, 2*time.Minute, res.RetryAfter)

	// valid credentials inside the lockout window are still refused and no
	// session starts
	clock.advance(30 * time.Second)
	res = ctrl.AttemptLogin(ctx, "teller-1", true)
	assert.False(t, res.Granted)
	assert.Equal(t, models.ReasonLockedOut, res.Reason)
	assert.Equal(t, 90*time.Second, res.RetryAfter)
	assert.False(t, ctrl.CheckSession(ctx, "teller-1"))

	// once the lockout elapses a valid attempt succeeds
	clock.advance(2 * time.Minute)
	res = ctrl.AttemptLogin(ctx, "teller-1", true)
	assert.True(t, res.Granted)
	assert.True(t, ctrl.CheckSession(ctx, "teller-1"))
}

func TestController_ExpiredLockoutClearsCounter(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{current: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	ctrl, _ := newTestController(clock)

	for i := 0; i < 3; i++ {
		ctrl.AttemptLogin(ctx, "teller-1", false)
	}
	clock.advance(3 * time.Minute)

	// the counter restarted: one more failure does not re-lock
	res := ctrl.AttemptLogin(ctx, "teller-1", false)
	assert.False(t, res.Granted)
	assert.NotEqual(t, models.ReasonLockedOut, res.Reason)
}

func TestController_SuccessResetsAttempts(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{current: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	ctrl, _ := newTestController(clock)

	ctrl.AttemptLogin(ctx, "teller-1", false)
	ctrl.AttemptLogin(ctx, "teller-1", false)
	res := ctrl.AttemptLogin(ctx, "teller-1", true)
	require.True(t, res.Granted)

	// two more failures would have locked out had the counter survived
	ctrl.AttemptLogin(ctx, "teller-1", false)
	res = ctrl.AttemptLogin(ctx, "teller-1", false)
	assert.NotEqual(t, models.ReasonLockedOut, res.Reason)
}

func TestController_PrincipalsAreIndependent(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{current: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	ctrl, _ := newTestController(clock)

	for i := 0; i < 3; i++ {
		ctrl.AttemptLogin(ctx, "teller-1", false)
	}
	res := ctrl.AttemptLogin(ctx, "teller-1", true)
	require.Equal(t, models.ReasonLockedOut, res.Reason)

	// another principal logs in fine while the first is locked out
	res = ctrl.AttemptLogin(ctx, "customer-9", true)
	assert.True(t, res.Granted)
	assert.True(t, ctrl.CheckSession(ctx, "customer-9"))
}

func TestController_SessionLifecycle(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{current: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	ctrl, _ := newTestController(clock)

	require.True(t, ctrl.AttemptLogin(ctx, "teller-1", true).Granted)

	t.Run("sliding expiration", func(t *testing.T) {
		clock.advance(15 * time.Minute)
		require.True(t, ctrl.CheckSession(ctx, "teller-1"))
		ctrl.RefreshSession(ctx, "teller-1")

		// without the refresh this would be past the 20 minute timeout
		clock.advance(15 * time.Minute)
		assert.True(t, ctrl.CheckSession(ctx, "teller-1"))

		clock.advance(21 * time.Minute)
		assert.False(t, ctrl.CheckSession(ctx, "teller-1"))
	})

	t.Run("logout deactivates immediately", func(t *testing.T) {
		require.True(t, ctrl.AttemptLogin(ctx, "teller-1", true).Granted)
		require.True(t, ctrl.CheckSession(ctx, "teller-1"))
		ctrl.Logout(ctx, "teller-1")
		assert.False(t, ctrl.CheckSession(ctx, "teller-1"))
	})

	t.Run("no session without login", func(t *testing.T) {
		assert.False(t, ctrl.CheckSession(ctx, "stranger"))
	})
}

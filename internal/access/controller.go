package access

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/ruralpay/corebank/internal/models"
)

// Config holds the authentication throttling settings.
type Config struct {
	SessionTimeout  time.Duration
	LockoutDuration time.Duration
	MaxAttempts     int
}

// LoginResult is the value returned for every login attempt. Lockout and
// refusal are reported here, never raised as errors through the call chain.
type LoginResult struct {
	Granted    bool
	Reason     models.FailureReason
	RetryAfter time.Duration // remaining lockout time when Reason is LOCKED_OUT
}

// principalState is the attempt/lockout machine for one principal. Each
// principal has its own mutex so one teller's lockout never blocks another.
type principalState struct {
	mu           sync.Mutex
	attempts     int
	lockedOut    bool
	lockoutStart time.Time
}

// Controller tracks login attempts, lockout, and session liveness per
// principal (teller or customer).
type Controller struct {
	cfg      Config
	sessions SessionStore

	mu         sync.Mutex
	principals map[string]*principalState

	now func() time.Time
}

func NewController(cfg Config, sessions SessionStore) *Controller {
	return &Controller{
		cfg:        cfg,
		sessions:   sessions,
		principals: make(map[string]*principalState),
		now:        time.Now,
	}
}

func (c *Controller) state(principal string) *principalState {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.principals[principal]
	if !ok {
		st = &principalState{}
		c.principals[principal] = st
	}
	return st
}

// AttemptLogin runs one login attempt for a principal. The caller has
// already verified (or failed to verify) the credentials; this method owns
// the throttling. An active lockout rejects the attempt outright, even with
// valid credentials. An expired lockout clears the counter before the
// attempt is considered. A successful attempt resets the counter and starts
// a fresh session.
func (c *Controller) AttemptLogin(ctx context.Context, principal string, credentialsValid bool) LoginResult {
	st := c.state(principal)
	st.mu.Lock()
	defer st.mu.Unlock()

	now := c.now()
	if st.lockedOut {
		elapsed := now.Sub(st.lockoutStart)
		if elapsed < c.cfg.LockoutDuration {
			return LoginResult{
				Reason:     models.ReasonLockedOut,
				RetryAfter: c.cfg.LockoutDuration - elapsed,
			}
		}
		st.lockedOut = false
		st.attempts = 0
	}

	if credentialsValid {
		st.attempts = 0
		if err := c.sessions.Start(ctx, principal, c.cfg.SessionTimeout); err != nil {
			log.Printf("[ACCESS] failed to start session for %s: %v", principal, err)
			return LoginResult{Reason: models.ReasonUnauthenticated}
		}
		return LoginResult{Granted: true}
	}

	st.attempts++
	if st.attempts >= c.cfg.MaxAttempts {
		st.lockedOut = true
		st.lockoutStart = now
		log.Printf("[ACCESS] principal %s locked out after %d failed attempts", principal, st.attempts)
		return LoginResult{
			Reason:     models.ReasonLockedOut,
			RetryAfter: c.cfg.LockoutDuration,
		}
	}
	return LoginResult{}
}

// CheckSession reports whether the principal holds a live session. An
// expired session is deactivated as a side effect.
func (c *Controller) CheckSession(ctx context.Context, principal string) bool {
	active, err := c.sessions.Active(ctx, principal)
	if err != nil {
		log.Printf("[ACCESS] session check failed for %s: %v", principal, err)
		return false
	}
	return active
}

// RefreshSession slides the session expiration forward. The engine calls
// this after every authorized action.
func (c *Controller) RefreshSession(ctx context.Context, principal string) {
	if err := c.sessions.Refresh(ctx, principal, c.cfg.SessionTimeout); err != nil {
		log.Printf("[ACCESS] session refresh failed for %s: %v", principal, err)
	}
}

// Logout deactivates the session immediately, regardless of timeout state.
func (c *Controller) Logout(ctx context.Context, principal string) {
	if err := c.sessions.End(ctx, principal); err != nil {
		log.Printf("[ACCESS] logout failed for %s: %v", principal, err)
	}
}

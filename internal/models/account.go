package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountClass string

const (
	// Checking accounts carry an overdraft line; all other classes floor at zero.
	Checking AccountClass = "CHECKING"
	Savings  AccountClass = "SAVINGS"
	Card     AccountClass = "CARD"
	Check    AccountClass = "CHECK"
)

type AccountStatus string

const (
	AccountActive AccountStatus = "ACTIVE"
	AccountFrozen AccountStatus = "FROZEN"
	// AccountClosed is terminal; a closed account rejects every mutation.
	AccountClosed AccountStatus = "CLOSED"
)

// DefaultOverdraftLimit is the checking overdraft line used when no limit is
// configured for the deployment.
var DefaultOverdraftLimit = decimal.NewFromInt(500)

// OverdraftPolicy describes the balance floor rules for one account class.
// Class behavior lives here as data, not in per-class subtypes.
type OverdraftPolicy struct {
	AllowOverdraft bool
	Limit          decimal.Decimal
}

// Floor returns the minimum permissible balance under this policy.
func (p OverdraftPolicy) Floor() decimal.Decimal {
	if p.AllowOverdraft {
		return p.Limit.Neg()
	}
	return decimal.Zero
}

// PolicyFor returns the overdraft policy for an account class.
func PolicyFor(class AccountClass, overdraftLimit decimal.Decimal) OverdraftPolicy {
	if class == Checking {
		return OverdraftPolicy{AllowOverdraft: true, Limit: overdraftLimit}
	}
	return OverdraftPolicy{}
}

// Account holds one customer account. The balance is only ever mutated
// through ApplyDelta, and callers are expected to serialize mutations per
// account (the transaction engine holds a per-account lock while calling in).
type Account struct {
	Number         string          `json:"number" db:"number"`
	Class          AccountClass    `json:"class" db:"class"`
	Status         AccountStatus   `json:"status" db:"status"`
	Balance        decimal.Decimal `json:"balance" db:"balance"`
	OverdraftUsed  decimal.Decimal `json:"overdraft_used" db:"overdraft_used"`
	OverdraftLimit decimal.Decimal `json:"overdraft_limit" db:"overdraft_limit"`
	OwnerID        string          `json:"owner_id" db:"owner_id"`
	CardStolen     bool            `json:"card_stolen" db:"card_stolen"`
	TransactionIDs []string        `json:"transaction_ids" db:"transaction_ids"`
	Version        int             `json:"version" db:"version"` // for optimistic locking
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

// NewAccount opens an account in ACTIVE status with the initial deposit as
// its balance. The initial deposit must not be negative.
func NewAccount(number string, class AccountClass, ownerID string, initialDeposit, overdraftLimit decimal.Decimal) (*Account, error) {
	if initialDeposit.IsNegative() {
		return nil, ErrInvalidAmount
	}
	now := time.Now()
	return &Account{
		Number:         number,
		Class:          class,
		Status:         AccountActive,
		Balance:        initialDeposit,
		OverdraftUsed:  decimal.Zero,
		OverdraftLimit: overdraftLimit,
		OwnerID:        ownerID,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// Policy returns the overdraft policy in force for this account.
func (a *Account) Policy() OverdraftPolicy {
	return PolicyFor(a.Class, a.OverdraftLimit)
}

// Floor returns the minimum balance this account may hold.
func (a *Account) Floor() decimal.Decimal {
	return a.Policy().Floor()
}

// AvailableBalance is the balance plus any unused overdraft headroom.
func (a *Account) AvailableBalance() decimal.Decimal {
	return a.Balance.Sub(a.Floor())
}

// CanApply dry-runs a balance change without mutating anything. It fails
// when the account is not ACTIVE or when the resulting balance would breach
// the class floor.
func (a *Account) CanApply(delta decimal.Decimal) error {
	switch a.Status {
	case AccountFrozen:
		return ErrAccountFrozen
	case AccountClosed:
		return ErrAccountClosed
	}
	if a.Balance.Add(delta).Cmp(a.Floor()) < 0 {
		return ErrInsufficientFunds
	}
	return nil
}

// ApplyDelta is the single mutation entry point for the balance. Every
// deposit, withdrawal, and transfer leg funnels through here so the floor
// invariant cannot be bypassed. For checking accounts the negative part of
// the balance is tracked as overdraft in use, which makes a deposit repay
// outstanding overdraft before raising the balance above zero.
func (a *Account) ApplyDelta(delta decimal.Decimal) (decimal.Decimal, error) {
	if err := a.CanApply(delta); err != nil {
		return a.Balance, err
	}
	a.Balance = a.Balance.Add(delta)
	if a.Policy().AllowOverdraft && a.Balance.IsNegative() {
		a.OverdraftUsed = a.Balance.Neg()
	} else {
		a.OverdraftUsed = decimal.Zero
	}
	a.UpdatedAt = time.Now()
	return a.Balance, nil
}

// Freeze marks the account FROZEN and flags its card as stolen. Freezing an
// already-frozen account is a no-op success.
func (a *Account) Freeze() error {
	if a.Status == AccountClosed {
		return ErrAccountClosed
	}
	a.Status = AccountFrozen
	a.CardStolen = true
	a.UpdatedAt = time.Now()
	return nil
}

// Unfreeze restores ACTIVE status and clears the stolen-card flag.
// Unfreezing an active account is a no-op success.
func (a *Account) Unfreeze() error {
	if a.Status == AccountClosed {
		return ErrAccountClosed
	}
	a.Status = AccountActive
	a.CardStolen = false
	a.UpdatedAt = time.Now()
	return nil
}

// Close moves the account to its terminal state. Idempotent.
func (a *Account) Close() {
	a.Status = AccountClosed
	a.UpdatedAt = time.Now()
}

// RecordTransaction appends a transaction id to the account history.
// The history is append-only; entries are never removed.
func (a *Account) RecordTransaction(id string) {
	a.TransactionIDs = append(a.TransactionIDs, id)
}

// Clone returns a deep copy so stores never hand out aliased state.
func (a *Account) Clone() *Account {
	cp := *a
	cp.TransactionIDs = make([]string, len(a.TransactionIDs))
	copy(cp.TransactionIDs, a.TransactionIDs)
	return &cp
}

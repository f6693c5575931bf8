// Package engine orchestrates validation and application of transactions
// against account state. It owns the per-account locks, runs the validate
// and apply steps of a transaction inside one critical section, and gates
// every submission behind the access controller's session check.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ruralpay/corebank/internal/access"
	"github.com/ruralpay/corebank/internal/ledger"
	"github.com/ruralpay/corebank/internal/models"
	"github.com/ruralpay/corebank/internal/store"
)

// DefaultLockWait bounds how long a submission waits for account locks
// before giving up with CONTENTION.
const DefaultLockWait = 500 * time.Millisecond

// SubmitRequest is the caller-facing DTO for one transaction.
type SubmitRequest struct {
	// TransactionID is optional; when empty the engine generates a UUID.
	TransactionID string                 `json:"transactionId"`
	Principal     string                 `json:"principal" validate:"required"`
	Kind          models.TransactionKind `json:"kind" validate:"required,oneof=DEPOSIT WITHDRAW TRANSFER"`
	Amount        decimal.Decimal        `json:"amount"`
	SourceAccount string                 `json:"sourceAccount" validate:"required_unless=Kind DEPOSIT"`
	TargetAccount string                 `json:"targetAccount" validate:"required_unless=Kind WITHDRAW"`
}

// TransactionResult is the terminal outcome returned to the caller.
type TransactionResult struct {
	TransactionID string                     `json:"transactionId"`
	Status        models.TransactionStatus   `json:"status"`
	Reason        models.FailureReason       `json:"reason,omitempty"`
	Balances      map[string]decimal.Decimal `json:"balances,omitempty"`
}

// Engine is the transaction processing core. All collaborators are injected
// at construction; there is no process-wide state.
type Engine struct {
	store    store.AccountStore
	ledger   ledger.Ledger
	access   *access.Controller
	locks    *lockTable
	lockWait time.Duration
	validate *validator.Validate

	mu       sync.Mutex
	inflight map[string]struct{} // transaction ids currently being processed
}

// New builds an engine. A non-positive lockWait falls back to
// DefaultLockWait.
func New(st store.AccountStore, lg ledger.Ledger, ac *access.Controller, lockWait time.Duration) *Engine {
	if lockWait <= 0 {
		lockWait = DefaultLockWait
	}
	return &Engine{
		store:    st,
		ledger:   lg,
		access:   ac,
		locks:    newLockTable(),
		lockWait: lockWait,
		validate: validator.New(),
		inflight: make(map[string]struct{}),
	}
}

// Login runs a login attempt for a principal. Credential verification
// belongs to the caller facade; the engine only applies throttling.
func (e *Engine) Login(ctx context.Context, principal string, credentialsValid bool) access.LoginResult {
	return e.access.AttemptLogin(ctx, principal, credentialsValid)
}

// CheckSession reports whether the principal holds a live session.
func (e *Engine) CheckSession(ctx context.Context, principal string) bool {
	return e.access.CheckSession(ctx, principal)
}

// Logout ends the principal's session immediately.
func (e *Engine) Logout(ctx context.Context, principal string) {
	e.access.Logout(ctx, principal)
}

// Submit validates and applies one transaction. Domain refusals come back
// inside the TransactionResult; the error return is reserved for malformed
// requests, persistence failures, and internal-consistency violations.
func (e *Engine) Submit(ctx context.Context, req SubmitRequest) (*TransactionResult, error) {
	if err := e.validate.Struct(&req); err != nil {
		return nil, fmt.Errorf("invalid submit request: %w", err)
	}

	id := req.TransactionID
	if id == "" {
		id = uuid.New().String()
	}
	tx := models.NewTransaction(id, req.Kind, req.Amount, req.SourceAccount, req.TargetAccount)

	if !e.access.CheckSession(ctx, req.Principal) {
		return e.refuse(ctx, tx, models.ReasonUnauthenticated, nil)
	}
	defer e.access.RefreshSession(ctx, req.Principal)

	if !req.Amount.IsPositive() {
		return e.refuse(ctx, tx, models.ReasonInvalidAmount, nil)
	}

	if err := e.reserveID(ctx, id); err != nil {
		return nil, err
	}
	defer e.releaseID(id)

	numbers := tx.AccountNumbers()
	if err := e.locks.acquireAll(ctx, numbers, e.lockWait); err != nil {
		if errors.Is(err, models.ErrLockTimeout) {
			log.Printf("[ENGINE] contention on %v for transaction %s", numbers, id)
			return e.refuse(ctx, tx, models.ReasonContention, nil)
		}
		return nil, err // context cancelled before anything was mutated
	}
	defer e.locks.releaseAll(numbers)

	accounts := make(map[string]*models.Account, len(numbers))
	for _, number := range numbers {
		account, err := e.store.Get(ctx, number)
		if errors.Is(err, models.ErrAccountNotFound) {
			return e.refuse(ctx, tx, models.ReasonNotFound, nil)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load account %s: %w", number, err)
		}
		accounts[number] = account
	}

	// Validation dry-run and apply share this critical section; the balance
	// read below cannot go stale before the mutation.
	if reason, ok := e.dryRun(tx, accounts); !ok {
		return e.refuse(ctx, tx, reason, accounts)
	}
	if err := tx.MarkValidated(); err != nil {
		return nil, err
	}

	// Point of no return: once the first leg mutates, the operation runs to
	// completion regardless of ctx.
	if err := e.apply(tx, accounts); err != nil {
		if failErr := tx.MarkFailed(models.ReasonForError(err)); failErr != nil {
			return nil, failErr
		}
		return nil, fmt.Errorf("post-validation apply failed for transaction %s: %w", id, err)
	}

	for _, number := range numbers {
		accounts[number].RecordTransaction(id)
	}
	if err := tx.MarkCompleted(); err != nil {
		return nil, err
	}
	mutated := make([]*models.Account, 0, len(numbers))
	for _, number := range numbers {
		mutated = append(mutated, accounts[number])
	}
	if err := e.store.SaveAll(ctx, mutated); err != nil {
		return nil, fmt.Errorf("failed to persist accounts after transaction %s: %w", id, err)
	}
	if err := e.ledger.Append(ctx, ledger.NewRecord(tx)); err != nil {
		return nil, fmt.Errorf("failed to append ledger record for %s: %w", id, err)
	}

	log.Printf("[ENGINE] transaction %s %s %s completed", id, tx.Kind, tx.Amount.StringFixed(2))
	return result(tx, accounts), nil
}

// dryRun checks the source leg then the target leg against the locked
// accounts, without mutating anything. First failure wins.
func (e *Engine) dryRun(tx *models.Transaction, accounts map[string]*models.Account) (models.FailureReason, bool) {
	if tx.RequiresSource() {
		source := accounts[tx.SourceAccount]
		if err := source.CanApply(tx.Amount.Neg()); err != nil {
			return models.ReasonForError(err), false
		}
	}
	if tx.RequiresTarget() {
		target := accounts[tx.TargetAccount]
		if err := target.CanApply(tx.Amount); err != nil {
			return models.ReasonForError(err), false
		}
	}
	return "", true
}

// apply mutates balances for a VALIDATED transaction. For a transfer both
// legs take effect or neither: a credit failure compensates the debit
// before the error surfaces.
func (e *Engine) apply(tx *models.Transaction, accounts map[string]*models.Account) error {
	switch tx.Kind {
	case models.Deposit:
		_, err := accounts[tx.TargetAccount].ApplyDelta(tx.Amount)
		return err
	case models.Withdraw:
		_, err := accounts[tx.SourceAccount].ApplyDelta(tx.Amount.Neg())
		return err
	case models.Transfer:
		source := accounts[tx.SourceAccount]
		target := accounts[tx.TargetAccount]
		if _, err := source.ApplyDelta(tx.Amount.Neg()); err != nil {
			return err
		}
		if _, err := target.ApplyDelta(tx.Amount); err != nil {
			if _, rbErr := source.ApplyDelta(tx.Amount); rbErr != nil {
				return fmt.Errorf("credit failed (%v) and debit compensation failed: %w", err, rbErr)
			}
			return err
		}
		return nil
	default:
		return fmt.Errorf("unknown transaction kind %q", tx.Kind)
	}
}

// refuse finalizes a transaction as FAILED and, when the involved accounts
// were resolved, records the refusal in the ledger.
func (e *Engine) refuse(ctx context.Context, tx *models.Transaction, reason models.FailureReason, accounts map[string]*models.Account) (*TransactionResult, error) {
	if err := tx.MarkFailed(reason); err != nil {
		return nil, err
	}
	if len(accounts) > 0 {
		if err := e.ledger.Append(ctx, ledger.NewRecord(tx)); err != nil {
			log.Printf("[ENGINE] failed to record refusal of %s: %v", tx.ID, err)
		}
	}
	log.Printf("[ENGINE] transaction %s refused: %s", tx.ID, reason)
	return result(tx, accounts), nil
}

func result(tx *models.Transaction, accounts map[string]*models.Account) *TransactionResult {
	res := &TransactionResult{
		TransactionID: tx.ID,
		Status:        tx.Status,
		Reason:        tx.Reason,
	}
	if len(accounts) > 0 {
		res.Balances = make(map[string]decimal.Decimal, len(accounts))
		for number, account := range accounts {
			res.Balances[number] = account.Balance
		}
	}
	return res
}

// reserveID rejects duplicate transaction ids against both in-flight
// submissions and the ledger.
func (e *Engine) reserveID(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.inflight[id]; ok {
		return fmt.Errorf("transaction %s: %w", id, models.ErrDuplicateTransaction)
	}
	recorded, err := e.ledger.Contains(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check ledger for %s: %w", id, err)
	}
	if recorded {
		return fmt.Errorf("transaction %s: %w", id, models.ErrDuplicateTransaction)
	}
	e.inflight[id] = struct{}{}
	return nil
}

func (e *Engine) releaseID(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.inflight, id)
}

// Freeze marks an account frozen. Idempotent; freezing a frozen account
// succeeds without change.
func (e *Engine) Freeze(ctx context.Context, accountNumber string) error {
	return e.updateStatus(ctx, accountNumber, (*models.Account).Freeze)
}

// Unfreeze restores an account to active.
func (e *Engine) Unfreeze(ctx context.Context, accountNumber string) error {
	return e.updateStatus(ctx, accountNumber, (*models.Account).Unfreeze)
}

func (e *Engine) updateStatus(ctx context.Context, accountNumber string, transition func(*models.Account) error) error {
	if err := e.locks.acquire(ctx, accountNumber, e.lockWait); err != nil {
		return err
	}
	defer e.locks.release(accountNumber)

	account, err := e.store.Get(ctx, accountNumber)
	if err != nil {
		return err
	}
	if err := transition(account); err != nil {
		return err
	}
	return e.store.Save(ctx, account)
}

// History returns the ledger records involving an account, oldest first.
func (e *Engine) History(ctx context.Context, accountNumber string) ([]ledger.Record, error) {
	return e.ledger.ForAccount(ctx, accountNumber)
}

// Balance returns the current balance of an account.
func (e *Engine) Balance(ctx context.Context, accountNumber string) (decimal.Decimal, error) {
	account, err := e.store.Get(ctx, accountNumber)
	if err != nil {
		return decimal.Zero, err
	}
	return account.Balance, nil
}

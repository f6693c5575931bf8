// Package ledger is the append-only, immutable record store of terminal
// transaction outcomes. Appends are idempotent on transaction id so a
// retried append never double-records.
package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/ruralpay/corebank/internal/models"
)

// Record is the persisted layout of one terminal transaction outcome.
// Field order is stable for round-trip tests.
type Record struct {
	TransactionID  string                   `json:"transaction_id" db:"transaction_id"`
	AccountNumbers []string                 `json:"account_numbers" db:"account_numbers"`
	Kind           models.TransactionKind   `json:"kind" db:"kind"`
	Amount         string                   `json:"amount" db:"amount"` // fixed-point, 2 decimals
	Status         models.TransactionStatus `json:"status" db:"status"`
	Timestamp      time.Time                `json:"timestamp" db:"timestamp"` // ISO-8601 on the wire
}

// NewRecord captures a terminal transaction as a ledger record.
func NewRecord(tx *models.Transaction) Record {
	return Record{
		TransactionID:  tx.ID,
		AccountNumbers: tx.AccountNumbers(),
		Kind:           tx.Kind,
		Amount:         tx.Amount.StringFixed(2),
		Status:         tx.Status,
		Timestamp:      time.Now().UTC(),
	}
}

// Ledger is the persistence contract for terminal transaction records.
type Ledger interface {
	// Append stores a record. Appending an id that is already recorded is
	// a no-op success.
	Append(ctx context.Context, rec Record) error
	// ForAccount returns the records involving an account, oldest first.
	ForAccount(ctx context.Context, accountNumber string) ([]Record, error)
	// Contains reports whether a transaction id is already recorded.
	Contains(ctx context.Context, transactionID string) (bool, error)
}

// MemoryLedger is the in-process Ledger.
type MemoryLedger struct {
	mu      sync.RWMutex
	records []Record
	seen    map[string]struct{}
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{seen: make(map[string]struct{})}
}

func (l *MemoryLedger) Append(_ context.Context, rec Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.seen[rec.TransactionID]; ok {
		return nil
	}
	l.seen[rec.TransactionID] = struct{}{}
	l.records = append(l.records, rec)
	return nil
}

func (l *MemoryLedger) ForAccount(_ context.Context, accountNumber string) ([]Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Record
	for _, rec := range l.records {
		for _, number := range rec.AccountNumbers {
			if number == accountNumber {
				out = append(out, rec)
				break
			}
		}
	}
	return out, nil
}

func (l *MemoryLedger) Contains(_ context.Context, transactionID string) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.seen[transactionID]
	return ok, nil
}

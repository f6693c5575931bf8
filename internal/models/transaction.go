package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionKind string

const (
	Deposit  TransactionKind = "DEPOSIT"
	Withdraw TransactionKind = "WITHDRAW"
	Transfer TransactionKind = "TRANSFER"
)

type TransactionStatus string

const (
	// StatusPending indicates the transaction has been accepted but not validated.
	StatusPending TransactionStatus = "PENDING"

	// StatusValidated indicates all checks passed and the transaction may be applied.
	StatusValidated TransactionStatus = "VALIDATED"

	// StatusCompleted indicates the balance change took effect. Terminal.
	StatusCompleted TransactionStatus = "COMPLETED"

	// StatusFailed indicates the transaction was refused. Terminal.
	StatusFailed TransactionStatus = "FAILED"
)

// Transaction represents one monetary operation and its lifecycle. Status
// only ever moves forward: PENDING -> VALIDATED -> {COMPLETED | FAILED}.
// Once terminal the record is immutable apart from being copied into the
// ledger.
type Transaction struct {
	ID            string            `json:"transaction_id" db:"transaction_id"`
	Kind          TransactionKind   `json:"kind" db:"kind"`
	Amount        decimal.Decimal   `json:"amount" db:"amount"`
	SourceAccount string            `json:"source_account,omitempty" db:"source_account"`
	TargetAccount string            `json:"target_account,omitempty" db:"target_account"`
	Status        TransactionStatus `json:"status" db:"status"`
	Reason        FailureReason     `json:"reason,omitempty" db:"reason"`
	CreatedAt     time.Time         `json:"created_at" db:"created_at"`
}

// NewTransaction creates a PENDING transaction for one request.
func NewTransaction(id string, kind TransactionKind, amount decimal.Decimal, source, target string) *Transaction {
	return &Transaction{
		ID:            id,
		Kind:          kind,
		Amount:        amount,
		SourceAccount: source,
		TargetAccount: target,
		Status:        StatusPending,
		CreatedAt:     time.Now(),
	}
}

// RequiresSource reports whether this kind debits a source account.
func (t *Transaction) RequiresSource() bool {
	return t.Kind == Withdraw || t.Kind == Transfer
}

// RequiresTarget reports whether this kind credits a target account.
func (t *Transaction) RequiresTarget() bool {
	return t.Kind == Deposit || t.Kind == Transfer
}

// AccountNumbers returns the involved account numbers, source first,
// without duplicates or empty references.
func (t *Transaction) AccountNumbers() []string {
	var out []string
	if t.SourceAccount != "" {
		out = append(out, t.SourceAccount)
	}
	if t.TargetAccount != "" && t.TargetAccount != t.SourceAccount {
		out = append(out, t.TargetAccount)
	}
	return out
}

// Terminal reports whether the transaction reached a final state.
func (t *Transaction) Terminal() bool {
	return t.Status == StatusCompleted || t.Status == StatusFailed
}

// MarkValidated advances PENDING -> VALIDATED.
func (t *Transaction) MarkValidated() error {
	if t.Status != StatusPending {
		return ErrInvalidTransition
	}
	t.Status = StatusValidated
	return nil
}

// MarkCompleted advances VALIDATED -> COMPLETED.
func (t *Transaction) MarkCompleted() error {
	if t.Status != StatusValidated {
		return ErrInvalidTransition
	}
	t.Status = StatusCompleted
	return nil
}

// MarkFailed records a refusal. Valid from PENDING (validation failure) and
// VALIDATED (apply failure); attempting it on a terminal transaction is a
// programming error and fails loudly.
func (t *Transaction) MarkFailed(reason FailureReason) error {
	if t.Terminal() {
		return ErrInvalidTransition
	}
	t.Status = StatusFailed
	t.Reason = reason
	return nil
}

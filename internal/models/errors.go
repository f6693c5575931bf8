package models

import "errors"

var (
	ErrAccountNotFound      = errors.New("account not found")
	ErrAccountFrozen        = errors.New("account is frozen")
	ErrAccountClosed        = errors.New("account is closed")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInvalidAmount        = errors.New("amount must be greater than zero")
	ErrDuplicateTransaction = errors.New("transaction id already in use")
	ErrInvalidTransition    = errors.New("illegal transaction state transition")
	ErrLockTimeout          = errors.New("timed out waiting for account lock")
)

// FailureReason is the closed set of reasons a transaction or login can be
// refused. Reasons are carried in result values; they never cross the core
// boundary as panics or control-flow errors.
type FailureReason string

const (
	ReasonUnauthenticated   FailureReason = "UNAUTHENTICATED"
	ReasonLockedOut         FailureReason = "LOCKED_OUT"
	ReasonInvalidAmount     FailureReason = "INVALID_AMOUNT"
	ReasonAccountFrozen     FailureReason = "ACCOUNT_FROZEN"
	ReasonAccountClosed     FailureReason = "ACCOUNT_CLOSED"
	ReasonInsufficientFunds FailureReason = "INSUFFICIENT_FUNDS"
	ReasonContention        FailureReason = "CONTENTION"
	ReasonNotFound          FailureReason = "NOT_FOUND"
)

// ReasonForError maps a domain error onto the reason reported to callers.
func ReasonForError(err error) FailureReason {
	switch {
	case errors.Is(err, ErrAccountFrozen):
		return ReasonAccountFrozen
	case errors.Is(err, ErrAccountClosed):
		return ReasonAccountClosed
	case errors.Is(err, ErrInsufficientFunds):
		return ReasonInsufficientFunds
	case errors.Is(err, ErrInvalidAmount):
		return ReasonInvalidAmount
	case errors.Is(err, ErrAccountNotFound):
		return ReasonNotFound
	case errors.Is(err, ErrLockTimeout):
		return ReasonContention
	default:
		return ""
	}
}

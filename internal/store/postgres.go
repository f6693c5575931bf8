package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/ruralpay/corebank/internal/models"
)

// ErrVersionConflict indicates the account row changed underneath a save.
// With the engine holding the account lock this should not happen; it fails
// loudly instead of silently overwriting.
var ErrVersionConflict = errors.New("account version conflict")

const accountColumns = `number, class, status, balance, overdraft_used, overdraft_limit,
		owner_id, card_stolen, transaction_ids, version, created_at, updated_at`

// PostgresStore is the Postgres-backed AccountStore. The version column is
// an optimistic guard carried over from the accounts schema the payments
// stack already uses.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, number string) (*models.Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE number = $1`, number)
	return scanAccount(row)
}

// Create inserts a newly opened account. Opening accounts is owned by an
// out-of-scope collaborator; this exists for that collaborator and for
// seeding.
func (s *PostgresStore) Create(ctx context.Context, account *models.Account) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (number, class, status, balance, overdraft_used, overdraft_limit,
			owner_id, card_stolen, transaction_ids, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		account.Number, account.Class, account.Status,
		account.Balance, account.OverdraftUsed, account.OverdraftLimit,
		account.OwnerID, account.CardStolen, pq.Array(account.TransactionIDs),
		account.Version, account.CreatedAt, account.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create account %s: %w", account.Number, err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, account *models.Account) error {
	if err := saveAccount(ctx, s.db, account); err != nil {
		return err
	}
	account.Version++
	return nil
}

// SaveAll writes every account inside one transaction so a transfer never
// persists its debit without its credit. Versions are bumped only once the
// commit succeeds.
func (s *PostgresStore) SaveAll(ctx context.Context, accounts []*models.Account) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin save transaction: %w", err)
	}
	for _, account := range accounts {
		if err := saveAccount(ctx, tx, account); err != nil {
			tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit save transaction: %w", err)
	}
	for _, account := range accounts {
		account.Version++
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func saveAccount(ctx context.Context, ex execer, account *models.Account) error {
	result, err := ex.ExecContext(ctx, `
		UPDATE accounts
		SET class = $1, status = $2, balance = $3, overdraft_used = $4,
			card_stolen = $5, transaction_ids = $6, version = version + 1, updated_at = $7
		WHERE number = $8 AND version = $9`,
		account.Class, account.Status, account.Balance, account.OverdraftUsed,
		account.CardStolen, pq.Array(account.TransactionIDs), time.Now(),
		account.Number, account.Version)
	if err != nil {
		return fmt.Errorf("failed to save account %s: %w", account.Number, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("account %s: %w", account.Number, ErrVersionConflict)
	}
	return nil
}

func (s *PostgresStore) All(ctx context.Context) ([]*models.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		ORDER BY number`)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var out []*models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, account)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var account models.Account
	err := row.Scan(
		&account.Number, &account.Class, &account.Status,
		&account.Balance, &account.OverdraftUsed, &account.OverdraftLimit,
		&account.OwnerID, &account.CardStolen, pq.Array(&account.TransactionIDs),
		&account.Version, &account.CreatedAt, &account.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, models.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}
	return &account, nil
}

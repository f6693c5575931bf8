package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// PostgresLedger stores ledger records in Postgres. Idempotency rides on the
// transaction_id primary key: a retried append hits ON CONFLICT DO NOTHING.
type PostgresLedger struct {
	db *sql.DB
}

func NewPostgresLedger(db *sql.DB) *PostgresLedger {
	return &PostgresLedger{db: db}
}

func (l *PostgresLedger) Append(ctx context.Context, rec Record) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO ledger_records (transaction_id, account_numbers, kind, amount, status, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (transaction_id) DO NOTHING`,
		rec.TransactionID, pq.Array(rec.AccountNumbers), rec.Kind, rec.Amount, rec.Status, rec.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to append ledger record %s: %w", rec.TransactionID, err)
	}
	return nil
}

func (l *PostgresLedger) ForAccount(ctx context.Context, accountNumber string) ([]Record, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT transaction_id, account_numbers, kind, amount, status, recorded_at
		FROM ledger_records
		WHERE $1 = ANY(account_numbers)
		ORDER BY recorded_at`, accountNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger for %s: %w", accountNumber, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.TransactionID, pq.Array(&rec.AccountNumbers),
			&rec.Kind, &rec.Amount, &rec.Status, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan ledger record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (l *PostgresLedger) Contains(ctx context.Context, transactionID string) (bool, error) {
	var exists bool
	err := l.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM ledger_records WHERE transaction_id = $1)`,
		transactionID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check ledger for %s: %w", transactionID, err)
	}
	return exists, nil
}

package ledger

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruralpay/corebank/internal/models"
)

func completedTransfer(id, source, target, amount string) *models.Transaction {
	amt, _ := decimal.NewFromString(amount)
	tx := models.NewTransaction(id, models.Transfer, amt, source, target)
	tx.MarkValidated()
	tx.MarkCompleted()
	return tx
}

func TestNewRecord(t *testing.T) {
	tx := completedTransfer("tx-1", "A101", "A102", "200")
	rec := NewRecord(tx)

	assert.Equal(t, "tx-1", rec.TransactionID)
	assert.Equal(t, []string{"A101", "A102"}, rec.AccountNumbers)
	assert.Equal(t, models.Transfer, rec.Kind)
	assert.Equal(t, "200.00", rec.Amount, "amounts carry exactly two decimals")
	assert.Equal(t, models.StatusCompleted, rec.Status)
	assert.False(t, rec.Timestamp.IsZero())
}

func TestRecord_JSONRoundTrip(t *testing.T) {
	rec := NewRecord(completedTransfer("tx-1", "A101", "A102", "99.5"))

	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var back Record
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, rec.TransactionID, back.TransactionID)
	assert.Equal(t, rec.AccountNumbers, back.AccountNumbers)
	assert.Equal(t, rec.Kind, back.Kind)
	assert.Equal(t, "99.50", back.Amount)
	assert.Equal(t, rec.Status, back.Status)
	assert.True(t, rec.Timestamp.Equal(back.Timestamp))
}

func TestMemoryLedger(t *testing.T) {
	ctx := context.Background()

	t.Run("append is idempotent on transaction id", func(t *testing.T) {
		l := NewMemoryLedger()
		rec := NewRecord(completedTransfer("tx-1", "A101", "A102", "200"))

		require.NoError(t, l.Append(ctx, rec))
		require.NoError(t, l.Append(ctx, rec))

		records, err := l.ForAccount(ctx, "A101")
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})

	t.Run("for account filters and preserves order", func(t *testing.T) {
		l := NewMemoryLedger()
		require.NoError(t, l.Append(ctx, NewRecord(completedTransfer("tx-1", "A101", "A102", "10"))))
		require.NoError(t, l.Append(ctx, NewRecord(completedTransfer("tx-2", "A102", "A103", "20"))))
		require.NoError(t, l.Append(ctx, NewRecord(completedTransfer("tx-3", "A103", "A101", "30"))))

		records, err := l.ForAccount(ctx, "A101")
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "tx-1", records[0].TransactionID)
		assert.Equal(t, "tx-3", records[1].TransactionID)

		records, err = l.ForAccount(ctx, "A104")
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("contains", func(t *testing.T) {
		l := NewMemoryLedger()
		require.NoError(t, l.Append(ctx, NewRecord(completedTransfer("tx-1", "A101", "A102", "10"))))

		ok, err := l.Contains(ctx, "tx-1")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = l.Contains(ctx, "tx-404")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

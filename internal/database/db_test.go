package database

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T, name string) *DB {
	t.Helper()

	db, err := New(Config{
		Path:    fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", t.Name(), name),
		Profile: ProfileStandard,
		Name:    name,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func TestMigrateMarketSchema(t *testing.T) {
	db := newTestDB(t, "market")

	require.NoError(t, db.Migrate())
	// Idempotent
	require.NoError(t, db.Migrate())

	_, err := db.Exec(`INSERT INTO stocks (symbol, name) VALUES ('AAPL', 'Apple Inc.')`)
	require.NoError(t, err)

	var count int
	err = db.QueryRow(`SELECT COUNT(*) FROM stocks`).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMigrateAnalysisSchema(t *testing.T) {
	db := newTestDB(t, "analysis")

	require.NoError(t, db.Migrate())

	_, err := db.Exec(`
		INSERT INTO stock_recommendations
		(stock_id, symbol, total_score, technical_score, fundamental_score,
		 sentiment_score, momentum_score, label, risk_level, confidence, expires_at)
		VALUES (1, 'AAPL', 0.7, 0.6, 0.8, 0.5, 0.6, 'buy', 'medium', 0.8, datetime('now', '+1 day'))
	`)
	require.NoError(t, err)
}

func TestMigrateUnknownNameIsNoop(t *testing.T) {
	db := newTestDB(t, "scratch")

	require.NoError(t, db.Migrate())

	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table'`).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestUniqueStockPriceConstraint(t *testing.T) {
	db := newTestDB(t, "market")
	require.NoError(t, db.Migrate())

	_, err := db.Exec(`INSERT INTO stocks (symbol) VALUES ('AAPL')`)
	require.NoError(t, err)

	insert := `INSERT INTO stock_prices (stock_id, date, open, high, low, close, volume)
	           VALUES (1, '2026-01-02', 100, 101, 99, 100.5, 1000)`
	_, err = db.Exec(insert)
	require.NoError(t, err)

	_, err = db.Exec(insert)
	assert.Error(t, err, "duplicate (stock_id, date) must be rejected")
}

func TestWithTransactionCommit(t *testing.T) {
	db := newTestDB(t, "market")
	require.NoError(t, db.Migrate())

	err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO stocks (symbol) VALUES ('MSFT')`)
		return err
	})
	require.NoError(t, err)

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM stocks`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestWithTransactionRollback(t *testing.T) {
	db := newTestDB(t, "market")
	require.NoError(t, db.Migrate())

	err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO stocks (symbol) VALUES ('MSFT')`); err != nil {
			return err
		}
		return fmt.Errorf("boom")
	})
	require.Error(t, err)

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM stocks`).Scan(&count))
	assert.Equal(t, 0, count, "rollback must discard the insert")
}

func TestWithTransactionPanicRecovery(t *testing.T) {
	db := newTestDB(t, "market")
	require.NoError(t, db.Migrate())

	err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		panic("unexpected")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic in transaction")
}

func TestWithTransactionNilDB(t *testing.T) {
	err := WithTransaction(nil, func(tx *sql.Tx) error { return nil })
	assert.Error(t, err)
}

func TestQuickCheck(t *testing.T) {
	db := newTestDB(t, "market")
	assert.NoError(t, db.QuickCheck(context.Background()))
}

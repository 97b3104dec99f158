package repositories

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", t.Name(), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err, "open sqlite")
	return db
}

func mustExec(t *testing.T, db *gorm.DB, q string, args ...interface{}) {
	t.Helper()
	require.NoError(t, db.Exec(q, args...).Error, "exec failed: query=%s", q)
}

func createIntentTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE payment_intents (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL,
		merchant_id TEXT NOT NULL,
		asset TEXT NOT NULL,
		network TEXT NOT NULL,
		fiat_amount TEXT NOT NULL,
		crypto_amount TEXT NOT NULL,
		exchange_rate TEXT NOT NULL,
		destination_address TEXT NOT NULL,
		status TEXT NOT NULL,
		onchain_reference TEXT,
		failure_reason TEXT,
		customer_email TEXT,
		completed_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	);`)
	mustExec(t, db, `CREATE UNIQUE INDEX idx_intents_pending_amount
		ON payment_intents (destination_address, crypto_amount)
		WHERE status = 'PENDING';`)
}

func createTransitionEventTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE transition_events (
		id TEXT PRIMARY KEY,
		intent_id TEXT NOT NULL,
		merchant_id TEXT NOT NULL,
		from_status TEXT NOT NULL,
		to_status TEXT NOT NULL,
		reason TEXT,
		occurred_at DATETIME NOT NULL,
		created_at DATETIME
	);`)
}

func createRollupTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE daily_metric_rollups (
		id TEXT PRIMARY KEY,
		merchant_id TEXT NOT NULL,
		date TEXT NOT NULL,
		volume_by_asset TEXT DEFAULT '{}',
		counts_by_status TEXT DEFAULT '{}',
		total_sales TEXT DEFAULT '0',
		transaction_count INTEGER DEFAULT 0,
		average_value TEXT DEFAULT '0',
		top_asset TEXT,
		applied_transitions TEXT DEFAULT '[]',
		created_at DATETIME,
		updated_at DATETIME,
		UNIQUE (merchant_id, date)
	);`)
}

func createWalletTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE merchant_wallets (
		id TEXT PRIMARY KEY,
		merchant_id TEXT NOT NULL,
		asset TEXT NOT NULL,
		network TEXT NOT NULL,
		address TEXT NOT NULL,
		enabled BOOLEAN DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME,
		UNIQUE (merchant_id, asset, network)
	);`)
}

package data

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/schedulebridge/schedule-bridge/internal/biz/domain"
)

// LedgerStore is a SQLite key-value ledger with per-entry expiry that keeps
// only the most recent entries
type LedgerStore struct {
	db       *sql.DB
	capacity int
	now      func() time.Time
}

// NewLedgerStore opens or creates the ledger database
func NewLedgerStore(dbPath string, capacity int) (*LedgerStore, error) {
	if capacity <= 0 {
		capacity = domain.LedgerCapacity
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS ledger (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			created_at INTEGER NOT NULL,
			expires_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_ledger_created_at ON ledger(created_at)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &LedgerStore{db: db, capacity: capacity, now: time.Now}, nil
}

// Get returns the value stored under key if it has not expired
func (s *LedgerStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	var expiresAt int64
	err := s.db.QueryRowContext(ctx, `SELECT value, expires_at FROM ledger WHERE key = ?`, key).Scan(&value, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query ledger: %w", err)
	}
	if expiresAt <= s.now().UnixMilli() {
		return nil, false, nil
	}
	return value, true, nil
}

// Set stores value under key for ttl and evicts the oldest entries beyond capacity
func (s *LedgerStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	now := s.now()
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO ledger (key, value, created_at, expires_at)
		VALUES (?, ?, ?, ?)
	`, key, value, now.UnixNano(), now.Add(ttl).UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to write ledger: %w", err)
	}

	// Oldest entries go first regardless of age
	_, err = s.db.ExecContext(ctx, `
		DELETE FROM ledger WHERE key NOT IN (
			SELECT key FROM ledger ORDER BY created_at DESC LIMIT ?
		)
	`, s.capacity)
	if err != nil {
		return fmt.Errorf("failed to evict ledger entries: %w", err)
	}
	return nil
}

// PurgeExpired removes expired entries
func (s *LedgerStore) PurgeExpired(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM ledger WHERE expires_at <= ?`, s.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to purge ledger: %w", err)
	}
	return result.RowsAffected()
}

// Count returns the number of stored entries
func (s *LedgerStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ledger`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count ledger: %w", err)
	}
	return n, nil
}

// Close closes the database
func (s *LedgerStore) Close() error {
	return s.db.Close()
}

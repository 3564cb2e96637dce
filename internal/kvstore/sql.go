package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/ziadkadry99/folio/internal/db"
)

// SQLStore is a Store backed by the kv_entries table.
type SQLStore struct {
	db    *db.DB
	quota int64
	mu    sync.Mutex
}

// NewSQLStore creates a SQLStore. A quota of 0 means unbounded.
func NewSQLStore(database *db.DB, quota int64) *SQLStore {
	return &SQLStore{db: database, quota: quota}
}

func (s *SQLStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_entries WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading %s: %w", key, err)
	}
	return value, true, nil
}

// Set upserts key. The quota check and the write share one transaction and
// writers are serialised.
func (s *SQLStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if s.quota > 0 {
		var used int64
		err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(SUM(size), 0) FROM kv_entries WHERE key != ?`, key).Scan(&used)
		if err != nil {
			return fmt.Errorf("measuring store: %w", err)
		}
		if used+int64(len(value)) > s.quota {
			return ErrQuotaExceeded
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO kv_entries (key, value, size) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			size = excluded.size,
			updated_at = datetime('now')`,
		key, value, len(value))
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", key, err)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

func (s *SQLStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM kv_entries WHERE substr(key, 1, ?) = ? ORDER BY key`, len(prefix), prefix)
	if err != nil {
		return nil, fmt.Errorf("listing keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scanning key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Usage returns the number of entries and the total stored bytes.
func (s *SQLStore) Usage(ctx context.Context) (entries int, bytes int64, err error) {
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(size), 0) FROM kv_entries`).Scan(&entries, &bytes)
	if err != nil {
		return 0, 0, fmt.Errorf("measuring store: %w", err)
	}
	return entries, bytes, nil
}

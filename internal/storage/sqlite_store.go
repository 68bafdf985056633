package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// sqliteStore keeps cache entries in a single SQLite table.
type sqliteStore struct {
	db         *sql.DB
	defaultTTL time.Duration
	now        func() time.Time
}

func openSQLite(path string, opts Options) (Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &sqliteStore{db: db, defaultTTL: opts.DefaultTTL, now: opts.Now}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *sqliteStore) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS cache (
			key        TEXT PRIMARY KEY,
			value      BLOB NOT NULL,
			expires_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_cache_expires ON cache(expires_at);
	`)
	if err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var (
		value     []byte
		expiresAt int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT value, expires_at FROM cache WHERE key = ?`, key).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache entry %s: %w", key, err)
	}

	if expiresAt <= s.now().Unix() {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM cache WHERE key = ? AND expires_at = ?`, key, expiresAt); err != nil {
			return nil, fmt.Errorf("evicting cache entry %s: %w", key, err)
		}
		return nil, ErrNotFound
	}
	return value, nil
}

func (s *sqliteStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	now := s.now()
	expiresAt := now.Add(ttlOrDefault(ttl, s.defaultTTL)).Unix()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO cache (key, value, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at
	`, key, value, expiresAt); err != nil {
		return fmt.Errorf("writing cache entry %s: %w", key, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM cache WHERE expires_at <= ?`, now.Unix()); err != nil {
		return fmt.Errorf("pruning cache: %w", err)
	}
	return tx.Commit()
}

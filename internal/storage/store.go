// Package storage implements the key-value namespace on SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"smartexpense/internal/kv"
	"smartexpense/internal/log"

	_ "modernc.org/sqlite"
)

type Store struct {
	db     *sql.DB
	logger *log.Logger
}

// BackupEntry is one row of the backup history.
type BackupEntry struct {
	ID        int64     `json:"id"`
	Target    string    `json:"target"`
	Location  string    `json:"location"`
	SizeBytes int64     `json:"sizeBytes"`
	CreatedAt time.Time `json:"createdAt"`
}

// Open migrates the database at dbPath and opens it. A nil logger falls back
// to the default slog handler.
func Open(dbPath string, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.Wrap(nil, log.ComponentStorage)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	version, err := migrateUp(dbPath, logger)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time keeps sqlite from returning SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Info("SQLite store ready", "db_path", dbPath, "schema_version", version)
	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, kv.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value)
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// RecordBackup appends a completed backup to the history table.
func (s *Store) RecordBackup(ctx context.Context, target, location string, size int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO backup_log (target, location, size_bytes) VALUES (?, ?, ?)`,
		target, location, size)
	if err != nil {
		return fmt.Errorf("record backup: %w", err)
	}
	s.logger.InfoContext(ctx, "Backup recorded", "target", target, "location", location, "size_bytes", size)
	return nil
}

// RecentBackups returns the newest entries first.
func (s *Store) RecentBackups(ctx context.Context, limit int) ([]BackupEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, target, location, size_bytes, created_at
		FROM backup_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	defer rows.Close()

	var out []BackupEntry
	for rows.Next() {
		var e BackupEntry
		if err := rows.Scan(&e.ID, &e.Target, &e.Location, &e.SizeBytes, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan backup: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

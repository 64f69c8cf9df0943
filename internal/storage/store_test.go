package storage

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartexpense/internal/kv"
	"smartexpense/internal/log"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "db", "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreKV(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	require.NoError(t, s.Ping(ctx))

	_, err := s.Get(ctx, "accounts")
	assert.ErrorIs(t, err, kv.ErrNotFound)

	require.NoError(t, s.Put(ctx, "accounts", []byte(`[]`)))
	require.NoError(t, s.Put(ctx, "accounts", []byte(`[{"username":"alice"}]`)))
	got, err := s.Get(ctx, "accounts")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"username":"alice"}]`, string(got))

	require.NoError(t, s.Delete(ctx, "accounts"))
	_, err = s.Get(ctx, "accounts")
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

func TestStoreReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "transactions", []byte(`[{"id":"1"}]`)))
	require.NoError(t, s.Close())

	s, err = Open(path, nil)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get(ctx, "transactions")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"1"}]`, string(got))
}

func TestBackupLog(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	require.NoError(t, s.RecordBackup(ctx, "directory", "/tmp/a.json", 10))
	require.NoError(t, s.RecordBackup(ctx, "queue", "/tmp/b.json", 20))

	entries, err := s.RecentBackups(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "queue", entries[0].Target)
	assert.Equal(t, int64(20), entries[0].SizeBytes)
	assert.Equal(t, "/tmp/a.json", entries[1].Location)
}

func TestStoreLogsWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Level: slog.LevelInfo, Component: log.ComponentStorage, Output: &buf})

	s, err := Open(filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.RecordBackup(context.Background(), "directory", "/tmp/a.json", 10))

	out := buf.String()
	assert.Contains(t, out, "SQLite store ready")
	assert.Contains(t, out, "Backup recorded")
	assert.Equal(t, 2, strings.Count(out, "component=storage"))
}

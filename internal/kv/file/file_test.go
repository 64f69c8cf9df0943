package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartexpense/internal/kv"
)

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "data")
	s, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, s.Ping(ctx))

	_, err = s.Get(ctx, "currentSession")
	assert.ErrorIs(t, err, kv.ErrNotFound)

	require.NoError(t, s.Put(ctx, "currentSession", []byte(`{"username":"bob"}`)))
	b, err := os.ReadFile(filepath.Join(dir, "currentSession.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"username":"bob"}`, string(b))

	require.NoError(t, s.Put(ctx, "currentSession", []byte(`null`)))
	got, err := s.Get(ctx, "currentSession")
	require.NoError(t, err)
	assert.Equal(t, "null", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files are cleaned up")

	require.NoError(t, s.Delete(ctx, "currentSession"))
	require.NoError(t, s.Delete(ctx, "currentSession"))
	_, err = s.Get(ctx, "currentSession")
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

func TestFileStoreRejectsPathKeys(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	for _, key := range []string{"", "../etc", "a/b", ".hidden"} {
		assert.Error(t, s.Put(context.Background(), key, []byte("1")), key)
	}
}

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[string](2, 0)
	c.Set("a", "1")
	c.Set("b", "2")
	_, _ = c.Get("a")
	c.Set("c", "3")

	_, ok := c.Get("b")
	assert.False(t, ok, "b was least recently used")
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "1", v)
	assert.Equal(t, 2, c.Size())

	hits, misses := c.Stats()
	assert.Equal(t, uint64(2), hits)
	assert.Equal(t, uint64(1), misses)
}

func TestLRUExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[int](10, time.Minute)
	c.now = clock.now

	c.Set("x", 1)
	c.Set("y", 2)
	clock.t = clock.t.Add(30 * time.Second)
	c.Set("z", 3)

	clock.t = clock.t.Add(45 * time.Second)
	_, ok := c.Get("x")
	assert.False(t, ok)
	assert.Equal(t, 1, c.CleanExpired(), "y expired, z did not")
	v, ok := c.Get("z")
	require.True(t, ok)
	assert.Equal(t, 3, v)
}

func TestLRUUpdateDeletePurge(t *testing.T) {
	c := NewLRUCache[int](3, 0)
	c.Set("k", 1)
	c.Set("k", 2)
	v, _ := c.Get("k")
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, c.Size())

	c.Delete("k")
	assert.Zero(t, c.Size())

	c.Set("a", 1)
	c.Set("b", 1)
	c.Purge()
	assert.Zero(t, c.Size())
}

func TestJanitor(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	c := NewLRUCache[int](10, time.Second)
	c.now = clock.now
	c.Set("a", 1)

	j := NewJanitor(nil)
	j.Register(c)
	assert.Zero(t, j.Sweep())
	clock.t = clock.t.Add(2 * time.Second)
	assert.Equal(t, 1, j.Sweep())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- j.Run(ctx, time.Millisecond) }()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}

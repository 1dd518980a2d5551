package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func TestMemoryStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("get within ttl returns snapshot and after ttl reports absent", func(t *testing.T) {
		clock := &testClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
		store := NewMemoryStoreWithClock(clock.Now)

		require.NoError(t, store.Set(ctx, "a@x.com", []byte("snapshot"), DefaultUserTTL))

		clock.now = clock.now.Add(299 * time.Second)
		value, found, err := store.Get(ctx, "a@x.com")
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, []byte("snapshot"), value)

		clock.now = clock.now.Add(2 * time.Second)
		value, found, err = store.Get(ctx, "a@x.com")
		require.NoError(t, err)
		require.False(t, found)
		require.Nil(t, value)
	})

	t.Run("never set is a miss not an error", func(t *testing.T) {
		store := NewMemoryStore()
		_, found, err := store.Get(ctx, "nobody@x.com")
		require.NoError(t, err)
		require.False(t, found)
	})

	t.Run("set overwrites value and ttl", func(t *testing.T) {
		clock := &testClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
		store := NewMemoryStoreWithClock(clock.Now)

		require.NoError(t, store.Set(ctx, "k", []byte("v1"), time.Second))
		require.NoError(t, store.Set(ctx, "k", []byte("v2"), time.Minute))

		clock.now = clock.now.Add(30 * time.Second)
		value, found, err := store.Get(ctx, "k")
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, []byte("v2"), value)
	})

	t.Run("stored value is isolated from caller mutation", func(t *testing.T) {
		store := NewMemoryStore()
		raw := []byte("abc")
		require.NoError(t, store.Set(ctx, "k", raw, time.Minute))
		raw[0] = 'z'

		value, _, err := store.Get(ctx, "k")
		require.NoError(t, err)
		require.Equal(t, []byte("abc"), value)
	})

	t.Run("purge drops only expired entries", func(t *testing.T) {
		clock := &testClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
		store := NewMemoryStoreWithClock(clock.Now)

		require.NoError(t, store.Set(ctx, "short", []byte("1"), time.Second))
		require.NoError(t, store.Set(ctx, "long", []byte("2"), time.Hour))

		clock.now = clock.now.Add(time.Minute)
		require.Equal(t, 1, store.PurgeExpired())
		require.Equal(t, 1, store.Len())
	})
}

func TestNoop(t *testing.T) {
	t.Parallel()

	var store Store = Noop{}
	require.NoError(t, store.Set(context.Background(), "k", []byte("v"), time.Minute))
	_, found, err := store.Get(context.Background(), "k")
	require.NoError(t, err)
	require.False(t, found)
}

package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStorageContract exercises the behaviour every backend must share.
func runStorageContract(t *testing.T, s Storage) {
	ctx := context.Background()
	key := Key("session-1")

	t.Run("load missing", func(t *testing.T) {
		_, err := s.Load(ctx, Key("missing"))
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("save then load", func(t *testing.T) {
		require.NoError(t, s.Save(ctx, key, []byte(`[{"sku":"A","quantity":1}]`)))

		data, err := s.Load(ctx, key)
		require.NoError(t, err)
		assert.JSONEq(t, `[{"sku":"A","quantity":1}]`, string(data))
	})

	t.Run("save replaces", func(t *testing.T) {
		require.NoError(t, s.Save(ctx, key, []byte(`[]`)))

		data, err := s.Load(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, `[]`, string(data))
	})
}

func TestKey(t *testing.T) {
	assert.Equal(t, "storefront-cart:abc", Key("abc"))
}

func TestMemoryStorage(t *testing.T) {
	runStorageContract(t, NewMemoryStorage())
}

func TestMemoryStorage_CopiesData(t *testing.T) {
	s := NewMemoryStorage()
	data := []byte(`[]`)
	require.NoError(t, s.Save(context.Background(), "k", data))
	data[0] = 'x'

	got, err := s.Load(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(got))
}

func TestFileStorage(t *testing.T) {
	s, err := NewFileStorage(filepath.Join(t.TempDir(), "carts"))
	require.NoError(t, err)

	runStorageContract(t, s)
}

func TestFileStorage_KeysCannotEscapeDir(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStorage(filepath.Join(dir, "carts"))
	require.NoError(t, err)

	require.NoError(t, s.Save(context.Background(), Key("../../etc"), []byte(`[]`)))

	entries, err := os.ReadDir(filepath.Join(dir, "carts"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0].Name(), "/")
}

func TestFileStorage_CancelledContext(t *testing.T) {
	s, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.Save(ctx, "k", []byte(`[]`)), context.Canceled)
}

// setupTestRedis creates a miniredis server and returns a RedisStorage instance
func setupTestRedis(t *testing.T) (*RedisStorage, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })

	return NewRedisStorage(client, DefaultRedisTTL), mr
}

func TestRedisStorage(t *testing.T) {
	s, _ := setupTestRedis(t)

	runStorageContract(t, s)
}

func TestRedisStorage_SetsTTL(t *testing.T) {
	s, mr := setupTestRedis(t)

	require.NoError(t, s.Save(context.Background(), Key("ttl"), []byte(`[]`)))

	ttl := mr.TTL(Key("ttl"))
	assert.True(t, ttl >= DefaultRedisTTL, "TTL should be at least base TTL")
	assert.True(t, ttl < DefaultRedisTTL+time.Hour, "TTL should be base + max jitter")
}

func TestRedisStorage_StoresRawJSON(t *testing.T) {
	s, mr := setupTestRedis(t)

	require.NoError(t, s.Save(context.Background(), Key("raw"), []byte(`[{"sku":"A"}]`)))

	stored, err := mr.Get(Key("raw"))
	require.NoError(t, err)
	assert.Equal(t, `[{"sku":"A"}]`, stored)
}

func TestRedisStorage_ServerDown(t *testing.T) {
	s, mr := setupTestRedis(t)
	mr.Close()

	_, err := s.Load(context.Background(), Key("x"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

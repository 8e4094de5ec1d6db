package redis

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shahil0511/OakMirror/internal/repository"
)

var (
	_ repository.RevocationStore = (*RevocationStore)(nil)
	_ repository.RevocationStore = NoopRevocationStore{}
)

func newTestStore(t *testing.T) (*RevocationStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRevocationStore(client), mr
}

func TestRevocationStore_ConsumeOnce(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	ok, err := store.Consume(ctx, "refresh-a", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Consume(ctx, "refresh-a", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.Consume(ctx, "refresh-b", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRevocationStore_RevokedCannotBeConsumed(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Revoke(ctx, "refresh-a", time.Hour))

	ok, err := store.Consume(ctx, "refresh-a", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRevocationStore_ConcurrentConsumeHasOneWinner(t *testing.T) {
	store, _ := newTestStore(t)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.Consume(context.Background(), "refresh-a", time.Hour)
			assert.NoError(t, err)
			if ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func TestRevocationStore_Release(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Revoke(ctx, "refresh-a", time.Hour))
	require.NoError(t, store.Release(ctx, "refresh-a"))
	assert.Empty(t, mr.Keys())

	ok, err := store.Consume(ctx, "refresh-a", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	// Releasing an unknown token is fine.
	require.NoError(t, store.Release(ctx, "never-seen"))
}

func TestRevocationStore_ExpiresWithToken(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Revoke(ctx, "refresh-a", 10*time.Minute))
	mr.FastForward(11 * time.Minute)

	ok, err := store.Consume(ctx, "refresh-a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRevocationStore_KeysAreHashed(t *testing.T) {
	store, mr := newTestStore(t)

	require.NoError(t, store.Revoke(context.Background(), "eyJ.secret.token", time.Hour))

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.True(t, strings.HasPrefix(keys[0], keyPrefix))
	assert.NotContains(t, keys[0], "secret")
	assert.Len(t, strings.TrimPrefix(keys[0], keyPrefix), 64)
	assert.Equal(t, time.Hour, mr.TTL(keys[0]))
}

func TestRevocationStore_ExpiredTTLIsNoop(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Revoke(ctx, "old", 0))
	ok, err := store.Consume(ctx, "old", 0)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, mr.Keys())
}

func TestRevocationStore_RedisDown(t *testing.T) {
	store, mr := newTestStore(t)
	mr.Close()

	_, err := store.Consume(context.Background(), "refresh-a", time.Minute)
	assert.Error(t, err)
	assert.Error(t, store.Revoke(context.Background(), "refresh-a", time.Minute))
	assert.Error(t, store.Release(context.Background(), "refresh-a"))
}

func TestNoopRevocationStore(t *testing.T) {
	var s NoopRevocationStore
	ctx := context.Background()
	require.NoError(t, s.Revoke(ctx, "t", time.Hour))
	for i := 0; i < 2; i++ {
		ok, err := s.Consume(ctx, "t", time.Hour)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	require.NoError(t, s.Release(ctx, "t"))
}

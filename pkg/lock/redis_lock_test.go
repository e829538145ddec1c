package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestDistributedLock_SingleInstance(t *testing.T) {
	client, mr := newTestClient(t)
	lock := NewRedisDistributedLock(client, "test-lock")
	ctx := context.Background()

	acquired, err := lock.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, acquired)
	assert.True(t, lock.IsHeld())
	assert.True(t, mr.Exists("test-lock"))
	assert.Equal(t, defaultTTL, mr.TTL("test-lock"))

	require.NoError(t, lock.Unlock(ctx))
	assert.False(t, lock.IsHeld())
	assert.False(t, mr.Exists("test-lock"))
}

func TestDistributedLock_MultipleInstances(t *testing.T) {
	client, _ := newTestClient(t)
	lock1 := NewRedisDistributedLock(client, "collector:lock")
	lock2 := NewRedisDistributedLock(client, "collector:lock")
	ctx := context.Background()

	acquired1, err := lock1.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, acquired1)

	acquired2, err := lock2.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, acquired2, "second lock should not be acquired")

	// releasing a lock we never held must not delete the owner's key
	require.NoError(t, lock2.Unlock(ctx))
	assert.True(t, lock1.IsHeld())

	require.NoError(t, lock1.Unlock(ctx))

	acquired2, err = lock2.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, acquired2, "second lock should be acquired after first release")
	require.NoError(t, lock2.Unlock(ctx))
}

func TestDistributedLock_AutoExpire(t *testing.T) {
	client, mr := newTestClient(t)
	lock1 := NewRedisDistributedLock(client, "test-lock-expire")
	lock2 := NewRedisDistributedLock(client, "test-lock-expire")
	ctx := context.Background()

	acquired1, err := lock1.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, acquired1)

	mr.FastForward(defaultTTL + time.Second)

	acquired2, err := lock2.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, acquired2, "lock should be available after TTL expiration")

	// the expired owner must not release the new owner's lock
	require.NoError(t, lock1.Unlock(ctx))
	assert.True(t, mr.Exists("test-lock-expire"))

	require.NoError(t, lock2.Unlock(ctx))
}

func TestDistributedLock_Relock(t *testing.T) {
	client, _ := newTestClient(t)
	lock := NewRedisDistributedLock(client, "test-lock-cycle")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		acquired, err := lock.TryLock(ctx)
		require.NoError(t, err)
		assert.True(t, acquired)
		require.NoError(t, lock.Unlock(ctx))
	}
}

func TestDistributedLock_NilClient(t *testing.T) {
	lock := NewRedisDistributedLock(nil, "test-lock-nil")
	ctx := context.Background()

	acquired, err := lock.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, acquired)
	assert.True(t, lock.IsHeld())

	require.NoError(t, lock.Unlock(ctx))
	assert.False(t, lock.IsHeld())
}

func TestDistributedLock_ServerDown(t *testing.T) {
	client, mr := newTestClient(t)
	lock := NewRedisDistributedLock(client, "test-lock-down")
	mr.Close()

	acquired, err := lock.TryLock(context.Background())
	assert.Error(t, err)
	assert.False(t, acquired)
	assert.False(t, lock.IsHeld())
}

package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/DTI-Insight/internal/infrastructure/monitoring/logging"
)

func TestMutex_LockUnlock(t *testing.T) {
	mr, client := newMiniredisClient(t)
	factory := NewLockFactory(client, "dti:", logging.NewNopLogger())
	ctx := context.Background()

	lock := factory.NewMutex("board:evt-1", WithLockTTL(time.Second))
	ok, err := lock.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, mr.Exists("dti:lock:board:evt-1"))

	ttl, err := lock.TTL(ctx)
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, lock.Unlock(ctx))
	assert.False(t, mr.Exists("dti:lock:board:evt-1"))
}

func TestMutex_Contention(t *testing.T) {
	_, client := newMiniredisClient(t)
	factory := NewLockFactory(client, "dti:", nil)
	ctx := context.Background()

	lock1 := factory.NewMutex("board:evt-2")
	lock2 := factory.NewMutex("board:evt-2")

	ok, err := lock1.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = lock2.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, ErrLockNotHeld, lock2.Unlock(ctx))
	require.NoError(t, lock1.Unlock(ctx))

	ok, err = lock2.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, lock2.Unlock(ctx))
}

func TestMutex_Extend(t *testing.T) {
	mr, client := newMiniredisClient(t)
	factory := NewLockFactory(client, "dti:", nil)
	ctx := context.Background()

	lock := factory.NewMutex("extend", WithLockTTL(time.Second))
	ok, err := lock.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = lock.Extend(ctx, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, time.Minute, mr.TTL("dti:lock:extend"))

	other := factory.NewMutex("extend")
	ok, err = other.Extend(ctx, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMutex_WatchdogStopsOnUnlock(t *testing.T) {
	_, client := newMiniredisClient(t)
	factory := NewLockFactory(client, "dti:", nil)
	ctx := context.Background()

	lock := factory.NewMutex("watched", WithLockTTL(300*time.Millisecond), WithWatchdog(true))
	ok, err := lock.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	time.Sleep(250 * time.Millisecond)
	require.NoError(t, lock.Unlock(ctx))
}

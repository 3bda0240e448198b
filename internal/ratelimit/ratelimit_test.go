package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, mr *miniredis.Miniredis, limit int) *FixedWindow {
	t.Helper()
	l, err := NewFixedWindow(Options{Addr: mr.Addr(), Prefix: "test:ratelimit", Limit: limit, Window: time.Minute})
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestFixedWindowBlocksOverLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	l := newTestLimiter(t, mr, 2)
	fixed := time.Date(2024, 1, 1, 12, 0, 30, 0, time.UTC)
	l.now = func() time.Time { return fixed }

	assert.True(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))

	// Other keys have their own quota.
	assert.True(t, l.Allow("10.0.0.2"))
}

func TestFixedWindowResetsNextWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	l := newTestLimiter(t, mr, 1)
	current := time.Date(2024, 1, 1, 12, 0, 30, 0, time.UTC)
	l.now = func() time.Time { return current }

	require.True(t, l.Allow("ip"))
	require.False(t, l.Allow("ip"))

	current = current.Add(time.Minute)
	assert.True(t, l.Allow("ip"))
}

func TestFixedWindowKeysExpire(t *testing.T) {
	mr := miniredis.RunT(t)
	l := newTestLimiter(t, mr, 5)

	require.True(t, l.Allow("ip"))
	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.Greater(t, mr.TTL(keys[0]), time.Duration(0))

	mr.FastForward(2 * time.Minute)
	assert.Empty(t, mr.Keys())
}

func TestFixedWindowFailsClosed(t *testing.T) {
	mr := miniredis.RunT(t)
	l := newTestLimiter(t, mr, 1)
	mr.Close()

	assert.False(t, l.Allow("ip"))
	assert.Error(t, l.Ping(context.Background()))
}

func TestNewFixedWindowValidates(t *testing.T) {
	_, err := NewFixedWindow(Options{Addr: "", Limit: 1, Window: time.Second})
	assert.Error(t, err)

	_, err = NewFixedWindow(Options{Addr: "127.0.0.1:6379", Limit: 0, Window: time.Second})
	assert.Error(t, err)
}

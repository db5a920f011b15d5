package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedWindowLimiter(t *testing.T) {
	client, mr := setupTestRedis(t)
	l := NewFixedWindowLimiter(client, "login", 2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, "User@Example.com")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := l.Allow(ctx, "user@example.com")
	require.NoError(t, err)
	assert.False(t, ok, "third attempt in the window must be rejected")

	mr.FastForward(time.Minute + time.Second)
	ok, err = l.Allow(ctx, "user@example.com")
	require.NoError(t, err)
	assert.True(t, ok, "new window must reset the counter")
}

func TestFixedWindowLimiterNilAllows(t *testing.T) {
	var l *FixedWindowLimiter
	ok, err := l.Allow(context.Background(), "x")
	require.NoError(t, err)
	assert.True(t, ok)
}

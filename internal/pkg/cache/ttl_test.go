package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTL_Expiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewTTL[int](time.Minute)
	c.now = func() time.Time { return now }

	c.Set("a", 1)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	now = now.Add(59 * time.Second)
	_, ok = c.Get("a")
	assert.True(t, ok)

	now = now.Add(time.Second)
	_, ok = c.Get("a")
	assert.False(t, ok, "entry expires exactly at ttl")
}

func TestTTL_ZeroDisables(t *testing.T) {
	c := NewTTL[string](0)
	c.Set("a", "x")
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestTTL_GetOrLoad(t *testing.T) {
	c := NewTTL[int](time.Minute)
	calls := 0
	load := func() (int, error) {
		calls++
		return 42, nil
	}

	for i := 0; i < 3; i++ {
		v, err := c.GetOrLoad("k", load)
		require.NoError(t, err)
		assert.Equal(t, 42, v)
	}
	assert.Equal(t, 1, calls)

	c.Invalidate()
	_, err := c.GetOrLoad("k", load)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestTTL_ErrorsAreNotCached(t *testing.T) {
	c := NewTTL[int](time.Minute)
	boom := errors.New("boom")

	_, err := c.GetOrLoad("k", func() (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)

	v, err := c.GetOrLoad("k", func() (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestTTL_InvalidateDuringLoad(t *testing.T) {
	c := NewTTL[string](time.Minute)

	v, err := c.GetOrLoad("summary", func() (string, error) {
		// a write lands while the stale summary is being computed
		c.Invalidate()
		return "stale", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "stale", v)

	_, ok := c.Get("summary")
	assert.False(t, ok, "a load that overlapped Invalidate is not cached")

	v, err = c.GetOrLoad("summary", func() (string, error) { return "fresh", nil })
	require.NoError(t, err)
	assert.Equal(t, "fresh", v)
	cached, ok := c.Get("summary")
	require.True(t, ok)
	assert.Equal(t, "fresh", cached)
}

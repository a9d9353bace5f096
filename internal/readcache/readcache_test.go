package readcache

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counter() (func() (int, error), *int) {
	calls := 0
	return func() (int, error) {
		calls++
		return calls, nil
	}, &calls
}

func TestGet_ReadThroughAndInvalidate(t *testing.T) {
	c := New(8, time.Minute)
	load, calls := counter()

	v, err := Get(c, "kpi", load)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	v, err = Get(c, "kpi", load)
	require.NoError(t, err)
	assert.Equal(t, 1, v, "second read is served from cache")
	assert.Equal(t, 1, *calls)

	c.Invalidate()
	assert.Equal(t, 0, c.Len())

	v, err = Get(c, "kpi", load)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestGet_ExpiresAfterTTL(t *testing.T) {
	c := New(8, 20*time.Millisecond)
	load, calls := counter()

	_, err := Get(c, "scores", load)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, _ = Get(c, "scores", load)
		return *calls >= 2
	}, time.Second, 10*time.Millisecond)
}

func TestGet_ErrorsAreNotCached(t *testing.T) {
	c := New(8, time.Minute)
	boom := errors.New("boom")
	fail := true

	load := func() (string, error) {
		if fail {
			return "", boom
		}
		return "ok", nil
	}

	_, err := Get(c, "k", load)
	require.ErrorIs(t, err, boom)

	fail = false
	v, err := Get(c, "k", load)
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestGet_InvalidateDuringLoadIsNotStored(t *testing.T) {
	c := New(8, time.Minute)

	v, err := Get(c, "k", func() (int, error) {
		c.Invalidate()
		return 1, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.Equal(t, 0, c.Len())
}

func TestDisabledCacheAlwaysLoads(t *testing.T) {
	c := New(8, 0)
	load, calls := counter()

	for i := 0; i < 3; i++ {
		_, err := Get(c, "k", load)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, *calls)
	assert.False(t, c.Enabled())
	c.Invalidate()

	var nilCache *Cache
	_, err := Get(nilCache, "k", load)
	require.NoError(t, err)
}

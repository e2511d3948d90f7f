package ghprofile

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheSetGet(t *testing.T) {
	c := NewCache[string](10, time.Minute)

	got := c.Set("k", "v", time.Minute)
	assert.Equal(t, "v", got)

	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)
	assert.True(t, c.Has("k"))

	_, ok = c.Get("missing")
	assert.False(t, ok)
	assert.False(t, c.Has("missing"))
}

func TestCacheDelete(t *testing.T) {
	c := NewCache[int](10, time.Minute)
	c.Set("k", 1, time.Minute)

	assert.True(t, c.Delete("k"))
	assert.False(t, c.Delete("k"))
	assert.False(t, c.Has("k"))
}

func TestCacheClear(t *testing.T) {
	c := NewCache[int](10, time.Minute)
	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)

	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.False(t, c.Has("a"))
}

func TestCacheLazyExpiry(t *testing.T) {
	c := NewCache[string](10, time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Set("k", "v", time.Minute)
	assert.True(t, c.Has("k"))

	now = now.Add(2 * time.Minute)
	_, ok := c.Get("k")
	assert.False(t, ok, "expired entry must read as absent")
	assert.Equal(t, 0, c.Len(), "expired entry is dropped on read")
}

func TestCacheDefaultTTL(t *testing.T) {
	c := NewCache[string](10, time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }

	// Zero and negative TTLs fall back to the default rather than meaning
	// "no expiry".
	c.Set("zero", "v", 0)
	c.Set("negative", "v", -time.Second)

	now = now.Add(30 * time.Second)
	assert.True(t, c.Has("zero"))
	assert.True(t, c.Has("negative"))

	now = now.Add(time.Minute)
	assert.False(t, c.Has("zero"))
	assert.False(t, c.Has("negative"))
}

func TestCacheEviction(t *testing.T) {
	c := NewCache[int](3, time.Minute)
	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)
	c.Set("c", 3, time.Minute)
	c.Set("d", 4, time.Minute)

	assert.Equal(t, 3, c.Len())
	assert.False(t, c.Has("a"), "oldest-inserted entry is evicted first")
	assert.True(t, c.Has("b"))
	assert.True(t, c.Has("c"))
	assert.True(t, c.Has("d"), "a fresh write is never evicted by its own insertion")
}

func TestCacheEvictionSkipsUpdatedKeys(t *testing.T) {
	c := NewCache[int](2, time.Minute)
	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)
	// Re-setting an existing key keeps its insertion position and must not
	// grow the cache.
	c.Set("a", 10, time.Minute)
	assert.Equal(t, 2, c.Len())

	c.Set("c", 3, time.Minute)
	assert.False(t, c.Has("a"))
	assert.True(t, c.Has("b"))
	assert.True(t, c.Has("c"))
}

func TestCacheRememberCachesResult(t *testing.T) {
	c := NewCache[string](10, time.Minute)
	var calls atomic.Int32
	compute := func(context.Context) (string, error) {
		calls.Add(1)
		return "computed", nil
	}

	v, err := c.Remember(context.Background(), "k", time.Minute, compute)
	require.NoError(t, err)
	assert.Equal(t, "computed", v)

	v, err = c.Remember(context.Background(), "k", time.Minute, compute)
	require.NoError(t, err)
	assert.Equal(t, "computed", v)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCacheRememberSingleFlight(t *testing.T) {
	c := NewCache[string](10, time.Minute)
	started := make(chan struct{})
	release := make(chan struct{})
	var secondCalls atomic.Int32

	var wg sync.WaitGroup
	results := make([]string, 2)
	errs := make([]error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], errs[0] = c.Remember(context.Background(), "k", time.Minute, func(context.Context) (string, error) {
			close(started)
			<-release
			return "first", nil
		})
	}()

	<-started
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1], errs[1] = c.Remember(context.Background(), "k", time.Minute, func(context.Context) (string, error) {
			secondCalls.Add(1)
			return "second", nil
		})
	}()

	// Let the second caller join the in-flight computation before releasing it.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, "first", results[0])
	assert.Equal(t, "first", results[1], "concurrent caller observes the same pending result")
	assert.Equal(t, int32(0), secondCalls.Load(), "second computation is never invoked")
}

func TestCacheRememberFailureRetriesCleanly(t *testing.T) {
	c := NewCache[string](10, time.Minute)
	var calls atomic.Int32

	_, err := c.Remember(context.Background(), "k", time.Minute, func(context.Context) (string, error) {
		calls.Add(1)
		return "", errors.New("upstream down")
	})
	require.Error(t, err)
	assert.False(t, c.Has("k"), "a failed computation stores nothing")

	v, err := c.Remember(context.Background(), "k", time.Minute, func(context.Context) (string, error) {
		calls.Add(1)
		return "recovered", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "recovered", v)
	assert.Equal(t, int32(2), calls.Load())
}

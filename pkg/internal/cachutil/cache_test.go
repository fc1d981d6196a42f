package cachutil

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCache_LoadsOnce(t *testing.T) {
	var loads atomic.Int32
	release := make(chan struct{})
	c := New[string](time.Minute, func(key string) (string, error) {
		loads.Add(1)
		<-release
		return "pong:" + key, nil
	}, nil)

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = c.Get("a")
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	require.EqualValues(t, 1, loads.Load())
	for _, r := range results {
		require.Equal(t, "pong:a", r)
	}

	v, ok := c.Get("a")
	require.True(t, ok)
	require.Equal(t, "pong:a", v)
	require.EqualValues(t, 1, loads.Load(), "cached value is reused")
}

func TestCache_ErrorsAreNotCached(t *testing.T) {
	var (
		fail   = true
		errCnt int
	)
	c := New[int](time.Minute, func(string) (int, error) {
		if fail {
			return 0, errors.New("unreachable")
		}
		return 7, nil
	}, func(key string, err error) {
		errCnt++
		require.Equal(t, "k", key)
	})

	_, ok := c.Get("k")
	require.False(t, ok)
	require.Equal(t, 1, errCnt)

	fail = false
	v, ok := c.Get("k")
	require.True(t, ok)
	require.Equal(t, 7, v)
}

func TestCache_Expiry(t *testing.T) {
	var loads int
	c := New[int](20*time.Millisecond, func(string) (int, error) {
		loads++
		return loads, nil
	}, nil)

	v, _ := c.Get("k")
	require.Equal(t, 1, v)
	time.Sleep(40 * time.Millisecond)
	v, _ = c.Get("k")
	require.Equal(t, 2, v)

	c.Set("k", 10)
	v, _ = c.Get("k")
	require.Equal(t, 10, v)
	c.Delete("k")
	v, _ = c.Get("k")
	require.Equal(t, 3, v)
}

package reload

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/robinbraemer/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct{ Name string }

func TestFireConfigUpdate(t *testing.T) {
	mgr := event.New()
	var got *ConfigUpdateEvent[testConfig]
	unsub := Subscribe(mgr, func(e *ConfigUpdateEvent[testConfig]) { got = e })

	prev, curr := &testConfig{Name: "a"}, &testConfig{Name: "b"}
	FireConfigUpdate(mgr, curr, prev)
	require.NotNil(t, got)
	assert.Same(t, curr, got.Config)
	assert.Same(t, prev, got.Prev)

	unsub()
	got = nil
	FireConfigUpdate(mgr, prev, curr)
	assert.Nil(t, got)
}

func TestWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("a: 1\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var calls atomic.Int32
	require.NoError(t, Watch(ctx, path, func() error {
		calls.Add(1)
		return nil
	}))

	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte("a: 2\n"), 0o644))
	}
	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)
	time.Sleep(2 * debounceDuration)
	assert.LessOrEqual(t, calls.Load(), int32(2), "bursts of writes are debounced")
}

func TestWatchCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, Watch(ctx, "does-not-matter.yml", func() error { return nil }))
}

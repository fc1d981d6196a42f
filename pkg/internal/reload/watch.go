package reload

import (
	"context"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/knadh/koanf/providers/file"
)

const debounceDuration = 100 * time.Millisecond

// Watch calls cb whenever the file at path changes, debouncing bursts of
// writes. Callbacks of one watch never overlap. Watching stops when ctx is cancelled.
func Watch(ctx context.Context, path string, cb func() error) error {
	if ctx.Err() != nil {
		return nil
	}
	log := logr.FromContextOrDiscard(ctx).WithValues("path", path)

	var (
		mu            sync.Mutex
		debounceTimer *time.Timer
	)
	provider := file.Provider(path)
	err := provider.Watch(func(_ any, err error) {
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			log.Info("failed watching file", "error", err)
			return
		}

		mu.Lock()
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
		debounceTimer = time.AfterFunc(debounceDuration, func() {
			mu.Lock()
			defer mu.Unlock()
			if ctx.Err() != nil {
				return
			}

			log.Info("auto-reloading file")
			start := time.Now()
			if err := cb(); err != nil {
				log.Info("failed to reload file", "error", err)
				return
			}
			log.Info("reloaded file successfully", "duration", time.Since(start).Round(time.Millisecond).String())
		})
		mu.Unlock()
	})
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		_ = provider.Unwatch()
	}()
	return nil
}

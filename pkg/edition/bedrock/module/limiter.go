package module

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ClickLimiter gates actions to a number of clicks per second.
// An action is allowed at most once every 1/cps seconds, without bursts.
type ClickLimiter struct {
	mu      sync.Mutex
	cps     int
	limiter *rate.Limiter
}

// NewClickLimiter returns a limiter allowing cps actions per second.
func NewClickLimiter(cps int) *ClickLimiter {
	l := &ClickLimiter{}
	l.SetCPS(cps)
	return l
}

// SetCPS changes the allowed clicks per second. Values below 1 block all actions.
func (l *ClickLimiter) SetCPS(cps int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cps == l.cps && l.limiter != nil {
		return
	}
	l.cps = cps
	if cps < 1 {
		l.limiter = rate.NewLimiter(0, 0)
		return
	}
	l.limiter = rate.NewLimiter(rate.Every(MinDelay(cps)), 1)
}

// AllowAt reports whether an action may happen at now and consumes it if so.
func (l *ClickLimiter) AllowAt(now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.limiter.AllowN(now, 1)
}

// Allow is shorthand for AllowAt(time.Now()).
func (l *ClickLimiter) Allow() bool { return l.AllowAt(time.Now()) }

// MinDelay returns the minimal delay between two actions at cps.
func MinDelay(cps int) time.Duration {
	if cps < 1 {
		return 0
	}
	return time.Second / time.Duration(cps)
}

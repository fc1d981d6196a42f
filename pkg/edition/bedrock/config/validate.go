package config

import (
	"fmt"
	"time"

	"github.com/veilmc/veil/pkg/util/validation"
)

// Validate validates the relay configuration.
func (c *Config) Validate() (warns []error, errs []error) {
	e := func(m string, args ...any) { errs = append(errs, fmt.Errorf(m, args...)) }
	w := func(m string, args ...any) { warns = append(warns, fmt.Errorf(m, args...)) }

	if c == nil {
		e("relay config must not be nil")
		return
	}

	if c.Bind == "" {
		e("Bind is empty")
	} else if err := validation.ValidHostPort(c.Bind); err != nil {
		e("Invalid bind %q: %v", c.Bind, err)
	}

	if c.Remote == "" {
		w("No remote server address configured, it must be passed on start")
	} else if err := validation.ValidHostPort(c.Remote); err != nil {
		e("Invalid remote %q: %v", c.Remote, err)
	}

	if c.OnlineMode && c.TokenFile == "" {
		w("Online mode without a token file asks for a device login on every start")
	}
	if !c.ClientAuth {
		w("Client authentication is disabled, anyone reaching %s can use the relay", c.Bind)
	}

	if c.TickInterval <= 0 {
		e("Invalid tick interval %s, use a duration > 0", c.TickInterval)
	} else if c.TickInterval < 10*time.Millisecond {
		w("Tick interval %s is very short and adds load to every session", c.TickInterval)
	}
	if c.DialTimeout <= 0 {
		e("Invalid dial timeout %s, use a duration > 0", c.DialTimeout)
	}
	if c.MaxQueuedPackets < 1 {
		e("Invalid max queued packets %d, use a number >= 1", c.MaxQueuedPackets)
	}

	if c.Status.CacheTTL < 0 {
		e("Invalid status cache ttl %s", c.Status.CacheTTL)
	}

	if c.Quota.Enabled {
		if c.Quota.OPS <= 0 {
			e("Invalid quota ops %v, use a number > 0", c.Quota.OPS)
		}
		if c.Quota.Burst < 1 {
			e("Invalid quota burst %d, use a number >= 1", c.Quota.Burst)
		}
		if c.Quota.MaxEntries < 1 {
			e("Invalid quota max entries %d, use a number >= 1", c.Quota.MaxEntries)
		}
	}

	return warns, errs
}

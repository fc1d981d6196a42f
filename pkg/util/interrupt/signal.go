// Package interrupt ties a context to the termination signals of the process.
package interrupt

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// from https://github.com/kubernetes/kubernetes/blob/c285e781331a3785a7f436042c65c5641ce8a9e9/pkg/util/interrupt/interrupt.go#L28
var terminationSignals = []os.Signal{syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT}

// TerminationContext returns a context that is canceled when a termination signal is received
// or the parent is done. The relay and its services stop on it.
func TerminationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, terminationSignals...)
}

package interrupt

import (
	"context"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTerminationContext(t *testing.T) {
	parent, cancelParent := context.WithCancel(context.Background())
	ctx, cancel := TerminationContext(parent)
	defer cancel()
	require.NoError(t, ctx.Err())

	cancelParent()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not canceled with its parent")
	}
}

func TestTerminationContextSignal(t *testing.T) {
	ctx, cancel := TerminationContext(context.Background())
	defer cancel()

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGHUP))
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("context not canceled on SIGHUP")
	}
}

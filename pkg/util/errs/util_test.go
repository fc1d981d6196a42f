package errs

import (
	"errors"
	"fmt"
	"io"
	"net"
	"testing"

	"github.com/go-logr/logr/funcr"
	"github.com/stretchr/testify/assert"
)

func TestIsConnClosedErr(t *testing.T) {
	assert.False(t, IsConnClosedErr(nil))
	assert.True(t, IsConnClosedErr(net.ErrClosed))
	assert.True(t, IsConnClosedErr(fmt.Errorf("read: %w", io.EOF)))
	assert.True(t, IsConnClosedErr(errors.New("read udp 127.0.0.1:19132: use of closed network connection")))
	assert.False(t, IsConnClosedErr(errors.New("decode packet")))
}

func TestSilent(t *testing.T) {
	err := fmt.Errorf("relay: %w", NewSilentErr("bad packet %d", 7))
	assert.True(t, IsSilent(err))
	assert.EqualError(t, err, "relay: bad packet 7")
	assert.False(t, IsSilent(errors.New("x")))
}

func TestV(t *testing.T) {
	var lines []string
	log := funcr.New(func(prefix, args string) {
		lines = append(lines, args)
	}, funcr.Options{Verbosity: 1})

	V(log, errors.New("plain")).Info("a")
	V(log, WrapSilent(errors.New("silent"))).Info("b")
	V(log, &VerbosityError{Verbosity: 2, Err: errors.New("noisy")}).Info("c")

	assert.Len(t, lines, 2, "V(2) is above the configured verbosity")
}

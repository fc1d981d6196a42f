package errs

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/go-logr/logr"
)

var (
	ErrMissingConfig = errors.New("config is missing")
)

// SilentError is an error wrapper type that silences an
// error and only logs them in the debug log.
//
// It is usually used to prevent spamming the default
// log when a client or server sends packets which cannot be read.
type SilentError struct{ error }

func (e *SilentError) Error() string {
	return e.error.Error()
}

func NewSilentErr(format string, a ...interface{}) error {
	return &SilentError{fmt.Errorf(format, a...)}
}

func WrapSilent(wrappedErr error) error {
	return &SilentError{wrappedErr}
}

func (e *SilentError) Unwrap() error { return e.error }

// IsSilent reports whether err wraps a SilentError.
func IsSilent(err error) bool {
	var s *SilentError
	return errors.As(err, &s)
}

// VerbosityError is an error carrying the log verbosity it should be logged at.
type VerbosityError struct {
	Verbosity int
	Err       error
}

func (e *VerbosityError) Error() string { return e.Err.Error() }
func (e *VerbosityError) Unwrap() error { return e.Err }

// V returns the logger at the verbosity err asks for.
// A SilentError is logged at V(1), a VerbosityError at its own level.
func V(log logr.Logger, err error) logr.Logger {
	var v *VerbosityError
	if errors.As(err, &v) {
		return log.V(v.Verbosity)
	}
	if IsSilent(err) {
		return log.V(1)
	}
	return log
}

// IsConnClosedErr reports whether err is caused by an already closed
// or reset connection.
// see https://github.com/golang/go/issues/4373 for details
func IsConnClosedErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF) {
		return true
	}
	msg := err.Error()
	return strings.HasSuffix(msg, "use of closed network connection") ||
		strings.HasSuffix(msg, "connection reset by peer")
}

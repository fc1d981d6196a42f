package addrquota

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuota_Blocked(t *testing.T) {
	q := NewQuota(0.001, 2, 10)
	a := &net.UDPAddr{IP: net.ParseIP("10.0.0.1"), Port: 1}
	sameBlock := &net.UDPAddr{IP: net.ParseIP("10.0.0.200"), Port: 2}
	other := &net.UDPAddr{IP: net.ParseIP("10.0.1.1"), Port: 3}

	assert.False(t, q.Blocked(a))
	assert.False(t, q.Blocked(sameBlock))
	assert.True(t, q.Blocked(a), "burst of the block is used up")
	assert.False(t, q.Blocked(other))
}

func TestQuota_IPv6AndUnknown(t *testing.T) {
	q := NewQuota(0.001, 1, 10)
	a := &net.UDPAddr{IP: net.ParseIP("2001:db8::1"), Port: 1}
	b := &net.UDPAddr{IP: net.ParseIP("2001:db8::ffff"), Port: 1}
	assert.False(t, q.Blocked(a))
	assert.True(t, q.Blocked(b))

	pipe, _ := net.Pipe()
	assert.False(t, q.Blocked(pipe.LocalAddr()))
	assert.False(t, q.Blocked(pipe.LocalAddr()))
	assert.False(t, q.Blocked(nil))
}

package netutil

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitHostPort(t *testing.T) {
	tests := []struct {
		addr string
		host string
		port uint16
		err  bool
	}{
		{addr: "play.example.net:19132", host: "play.example.net", port: 19132},
		{addr: "[::1]:19133", host: "::1", port: 19133},
		{addr: "127.0.0.1:0", err: true},
		{addr: "127.0.0.1:70000", err: true},
		{addr: "127.0.0.1:abc", err: true},
		{addr: "play.example.net", err: true},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			host, port, err := SplitHostPort(tt.addr)
			if tt.err {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.host, host)
			assert.Equal(t, tt.port, port)
		})
	}

	_, _, err := SplitHostPort("localhost")
	assert.ErrorIs(t, err, ErrMissingPort)
}

func TestHost(t *testing.T) {
	assert.Equal(t, "10.0.0.1", Host(&net.UDPAddr{IP: net.IPv4(10, 0, 0, 1), Port: 19132}))
	assert.Equal(t, "@pipe", Host(&net.UnixAddr{Name: "@pipe", Net: "unix"}))
}

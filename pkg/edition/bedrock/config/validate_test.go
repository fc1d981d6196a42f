package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValid(t *testing.T) {
	c := DefaultConfig
	c.Remote = "play.example.net:19132"
	warns, errs := c.Validate()
	require.Empty(t, errs)
	require.Empty(t, warns)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		modify   func(c *Config)
		errs     int
		warnings int
	}{
		{name: "missing remote warns", modify: func(c *Config) { c.Remote = "" }, warnings: 1},
		{name: "bad bind", modify: func(c *Config) { c.Bind = "19132" }, errs: 1},
		{name: "bad remote", modify: func(c *Config) { c.Remote = "example.net" }, errs: 1},
		{name: "zero tick", modify: func(c *Config) { c.TickInterval = 0 }, errs: 1},
		{name: "short tick", modify: func(c *Config) { c.TickInterval = time.Millisecond }, warnings: 1},
		{name: "no queue", modify: func(c *Config) { c.MaxQueuedPackets = 0 }, errs: 1},
		{name: "broken quota", modify: func(c *Config) {
			c.Quota = QuotaSettings{Enabled: true}
		}, errs: 3},
		{name: "disabled quota is not validated", modify: func(c *Config) {
			c.Quota = QuotaSettings{}
		}},
		{name: "no client auth", modify: func(c *Config) { c.ClientAuth = false }, warnings: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig
			c.Remote = "play.example.net:19132"
			tt.modify(&c)
			warns, errs := c.Validate()
			assert.Len(t, errs, tt.errs, "errors: %v", errs)
			assert.Len(t, warns, tt.warnings, "warnings: %v", warns)
		})
	}
}

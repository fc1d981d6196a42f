package configutil

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestPrefix(t *testing.T) {
	v := viper.New()
	relay := Prefix(v, "config")
	relay.SetDefault("bind", "0.0.0.0:19132")
	Prefix(relay, "status").SetDefault("fallback", "Veil relay")

	assert.Equal(t, "0.0.0.0:19132", v.GetString("config.bind"))
	assert.Equal(t, "Veil relay", v.GetString("config.status.fallback"))
}

func TestSetDefaultFunc(t *testing.T) {
	got := map[string]any{}
	var i SetDefault = SetDefaultFunc(func(key string, value any) { got[key] = value })
	i.SetDefault("bind", "0.0.0.0:19132")
	assert.Equal(t, map[string]any{"bind": "0.0.0.0:19132"}, got)

	assert.NotPanics(t, func() { SetDefaultFunc(nil).SetDefault("x", 1) })
}

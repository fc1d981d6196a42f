package console

import (
	"testing"

	gcolor "github.com/gookit/color"
	"github.com/stretchr/testify/assert"
	"go.minekube.com/common/minecraft/color"
	"go.minekube.com/common/minecraft/component"
)

func TestStrip(t *testing.T) {
	assert.Equal(t, "KillAura enabled", Strip("§cKillAura §aenabled§r"))
	assert.Equal(t, "plain", Strip("plain"))
	assert.Equal(t, "", Strip("§"))
}

func TestAnsi(t *testing.T) {
	c := &component.Text{Content: "Velocity", S: component.Style{Color: color.Green}}
	assert.Contains(t, Ansi(c), "Velocity")
	assert.Contains(t, AnsiFromLegacy("§cKill§aAura"), "Kill")
	assert.Contains(t, AnsiFromLegacy("§cKill§aAura"), "Aura")

	enabled := gcolor.Enable
	gcolor.Enable = false
	defer func() { gcolor.Enable = enabled }()
	assert.Equal(t, "Velocity", AnsiFromLegacy("§aVelocity"), "colours disabled")
	assert.Equal(t, "KillAura on", AnsiFromLegacy("§cKill§lAura§r on"))
}

package suggest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClosest(t *testing.T) {
	candidates := []string{"KillAura", "Velocity", "OffhandTotem", "AntiBot"}

	s, ok := Closest("killaura", candidates)
	assert.True(t, ok)
	assert.Equal(t, "KillAura", s)

	s, ok = Closest("velocty", candidates)
	assert.True(t, ok)
	assert.Equal(t, "Velocity", s)

	_, ok = Closest("xyz", candidates)
	assert.False(t, ok)

	_, ok = Closest("a", nil)
	assert.False(t, ok)
}

func TestScore(t *testing.T) {
	assert.Equal(t, 1.0, Score("kill", "KillAura"))
	assert.Less(t, Score("velo", "KillAura"), Score("velo", "Velocity"))
}

// Package modules contains the built-in relay modules.
package modules

import "github.com/veilmc/veil/pkg/edition/bedrock/module"

// Defaults returns new instances of all built-in modules in registration order.
func Defaults() []module.Module {
	antiBot := NewAntiBot()
	return []module.Module{
		NewKillAura(antiBot),
		NewVelocity(),
		NewOffhandTotem(),
		antiBot,
	}
}

// Package module provides the relay's pluggable feature units, their typed
// settings and the registry the host application owns.
package module

import (
	"go.uber.org/atomic"
)

// Category groups modules by what they affect.
type Category string

// Available categories.
const (
	Combat Category = "Combat"
	Motion Category = "Motion"
	Player Category = "Player"
	Misc   Category = "Misc"
	Script Category = "Script"
)

// Module is a named unit of relay behavior that can be enabled and disabled.
//
// Implementations embed *Base, which provides the name, category,
// settings and enabled flag as well as no-op lifecycle hooks.
type Module interface {
	Name() string
	Category() Category
	Description() string
	Settings() *Settings
	Enabled() bool
	// OnEnabled is called after the module was enabled.
	OnEnabled()
	// OnDisabled is called after the module was disabled.
	OnDisabled()
	// StatusInfo returns a short text shown next to the module name, e.g. its mode.
	StatusInfo() string

	base() *Base
}

// Base implements the common parts of a Module.
type Base struct {
	name        string
	category    Category
	description string
	settings    *Settings
	enabled     atomic.Bool
}

// NewBase returns a disabled module base.
func NewBase(name string, category Category, description string) *Base {
	return &Base{
		name:        name,
		category:    category,
		description: description,
		settings:    NewSettings(),
	}
}

func (b *Base) Name() string        { return b.name }
func (b *Base) Category() Category  { return b.category }
func (b *Base) Description() string { return b.description }
func (b *Base) Settings() *Settings { return b.settings }
func (b *Base) Enabled() bool       { return b.enabled.Load() }
func (b *Base) OnEnabled()          {}
func (b *Base) OnDisabled()         {}
func (b *Base) StatusInfo() string  { return "" }
func (b *Base) base() *Base         { return b }

package module

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/go-logr/logr"
	"github.com/robinbraemer/event"

	"github.com/veilmc/veil/pkg/util/validation"
)

// ErrDuplicateModule is returned when registering a module name twice.
var ErrDuplicateModule = errors.New("module already registered")

// ErrUnknownSetting is returned when setting a value of a setting a module does not declare.
var ErrUnknownSetting = errors.New("unknown setting")

// ToggleEvent is fired on the host event manager after a module was enabled or disabled.
type ToggleEvent struct {
	module  Module
	enabled bool
}

// Module returns the toggled module.
func (e *ToggleEvent) Module() Module { return e.module }

// Enabled reports the new state of the module.
func (e *ToggleEvent) Enabled() bool { return e.enabled }

// SettingChangeEvent is fired on the host event manager after a setting
// was changed through Registry.Set.
type SettingChangeEvent struct {
	module  Module
	setting *Setting
}

// Module returns the module owning the setting.
func (e *SettingChangeEvent) Module() Module { return e.module }

// Setting returns the changed setting.
func (e *SettingChangeEvent) Setting() *Setting { return e.setting }

// Registry is the ordered collection of all available modules.
// It is owned by the host application and safe for concurrent use.
type Registry struct {
	log      logr.Logger
	eventMgr event.Manager

	toggleMu sync.Mutex // Serialises enabling and disabling.

	mu      sync.RWMutex // Protects following fields
	modules []Module
	byName  map[string]Module
}

// NewRegistry returns an empty registry firing ToggleEvent on eventMgr.
func NewRegistry(log logr.Logger, eventMgr event.Manager) *Registry {
	if eventMgr == nil {
		eventMgr = event.Nop
	}
	return &Registry{
		log:      log,
		eventMgr: eventMgr,
		byName:   map[string]Module{},
	}
}

// Event returns the event manager toggle events are fired on.
func (r *Registry) Event() event.Manager { return r.eventMgr }

// Register adds modules in order. A module whose name is already
// registered is not added and ErrDuplicateModule is returned.
func (r *Registry) Register(modules ...Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for _, m := range modules {
		name := m.Name()
		if !validation.ValidName(name) {
			errs = append(errs, fmt.Errorf("invalid module name %q: %s", name, validation.QualifiedNameErrMsg))
			continue
		}
		if _, ok := r.byName[name]; ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrDuplicateModule, name))
			continue
		}
		r.modules = append(r.modules, m)
		r.byName[name] = m
	}
	return errors.Join(errs...)
}

// Get returns the module with name.
func (r *Registry) Get(name string) (Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byName[name]
	return m, ok
}

// All returns the modules in registration order,
// only those of the given categories if any are given.
func (r *Registry) All(categories ...Category) []Module {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(categories) == 0 {
		return slices.Clone(r.modules)
	}
	var s []Module
	for _, m := range r.modules {
		if slices.Contains(categories, m.Category()) {
			s = append(s, m)
		}
	}
	return s
}

// Enabled returns the enabled modules in registration order.
func (r *Registry) Enabled() []Module {
	var s []Module
	for _, m := range r.All() {
		if m.Enabled() {
			s = append(s, m)
		}
	}
	return s
}

// Names returns the module names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.modules))
	for i, m := range r.modules {
		names[i] = m.Name()
	}
	return names
}

// SetEnabled enables or disables m, calls its lifecycle hook and
// fires a ToggleEvent. It reports whether the state changed.
func (r *Registry) SetEnabled(m Module, enabled bool) bool {
	r.toggleMu.Lock()
	defer r.toggleMu.Unlock()
	return r.setEnabled(m, enabled)
}

// Toggle flips the enabled state of m and returns the new state.
func (r *Registry) Toggle(m Module) bool {
	r.toggleMu.Lock()
	defer r.toggleMu.Unlock()
	enabled := !m.Enabled()
	r.setEnabled(m, enabled)
	return enabled
}

func (r *Registry) setEnabled(m Module, enabled bool) bool {
	if !m.base().enabled.CompareAndSwap(!enabled, enabled) {
		return false
	}
	log := r.log.WithValues("module", m.Name(), "enabled", enabled)
	r.hook(log, m, enabled)
	r.eventMgr.Fire(&ToggleEvent{module: m, enabled: enabled})
	log.V(1).Info("toggled module")
	return true
}

// Set coerces and stores v as the value of m's setting name and fires a
// SettingChangeEvent. The returned error is ErrUnknownSetting or a coercion error.
func (r *Registry) Set(m Module, name string, v any) (*Setting, error) {
	s, ok := m.Settings().Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownSetting, m.Name(), name)
	}
	if err := s.SetValue(v); err != nil {
		return s, err
	}
	r.eventMgr.Fire(&SettingChangeEvent{module: m, setting: s})
	return s, nil
}

func (r *Registry) hook(log logr.Logger, m Module, enabled bool) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error(nil, "Recovered from panic in module lifecycle hook", "panic", rec)
		}
	}()
	if enabled {
		m.OnEnabled()
	} else {
		m.OnDisabled()
	}
}

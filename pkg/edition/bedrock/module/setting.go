package module

import (
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/spf13/cast"

	"github.com/veilmc/veil/pkg/util/validation"
)

// Kind is the type of a Setting.
type Kind uint8

// Available setting kinds.
const (
	KindBool Kind = iota
	KindInt
	KindFloat
	KindChoice
	KindText
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindChoice:
		return "choice"
	case KindText:
		return "text"
	}
	return "unknown"
}

// EnabledKey is the reserved document key of a module's enabled flag.
const EnabledKey = "enabled"

// Setting is a typed, named and constrained module setting.
// Numeric values are always clamped to the declared range
// and choice values are always one of the declared choices.
type Setting struct {
	name    string
	kind    Kind
	def     any
	min     float64
	max     float64
	step    float64
	choices []string

	mu    sync.RWMutex
	value any
}

func (s *Setting) Name() string { return s.name }
func (s *Setting) Kind() Kind   { return s.kind }
func (s *Setting) Default() any { return s.def }

// Range returns the inclusive range and step of a numeric setting.
func (s *Setting) Range() (min, max, step float64) { return s.min, s.max, s.step }

// Choices returns the allowed values of a choice setting.
func (s *Setting) Choices() []string { return slices.Clone(s.choices) }

// Value returns the current value.
func (s *Setting) Value() any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// SetValue coerces v to the setting's kind and stores it, clamping numeric
// values to their range and replacing unknown choices by the default.
// It returns an error if v cannot be coerced, the value is unchanged then.
func (s *Setting) SetValue(v any) error {
	var (
		coerced any
		err     error
	)
	switch s.kind {
	case KindBool:
		coerced, err = cast.ToBoolE(v)
	case KindInt:
		var f float64
		f, err = cast.ToFloat64E(v)
		if math.IsNaN(f) {
			coerced = s.def
		} else {
			// Clamped before the conversion, out of range floats do not fit an int.
			coerced = int(math.Round(clamp(f, s.min, s.max)))
		}
	case KindFloat:
		coerced, err = cast.ToFloat64E(v)
	case KindChoice, KindText:
		coerced, err = cast.ToStringE(v)
	}
	if err != nil {
		return fmt.Errorf("invalid %s value for setting %q: %w", s.kind, s.name, err)
	}
	s.store(coerced)
	return nil
}

// Reset restores the default value.
func (s *Setting) Reset() { s.store(s.def) }

func (s *Setting) store(v any) {
	v = s.normalize(v)
	s.mu.Lock()
	s.value = v
	s.mu.Unlock()
}

func (s *Setting) normalize(v any) any {
	switch s.kind {
	case KindInt:
		f := clamp(float64(v.(int)), s.min, s.max)
		if s.step > 0 {
			f = s.min + math.Round((f-s.min)/s.step)*s.step
			if f > s.max {
				f -= s.step
			}
		}
		return int(f)
	case KindFloat:
		f := v.(float64)
		if math.IsNaN(f) {
			return s.def
		}
		return clamp(f, s.min, s.max)
	case KindChoice:
		if !slices.Contains(s.choices, v.(string)) {
			return s.def
		}
	}
	return v
}

func clamp(v, min, max float64) float64 {
	return math.Max(min, math.Min(max, v))
}

// Value is a typed handle of a Setting.
type Value[T bool | int | float64 | string] struct{ *Setting }

// Get returns the current value.
func (v Value[T]) Get() T { return v.Setting.Value().(T) }

// Set stores x, clamping or replacing it as declared.
func (v Value[T]) Set(x T) { v.Setting.store(x) }

// Is reports whether the current value equals x.
func (v Value[T]) Is(x T) bool { return v.Get() == x }

// Settings is the ordered collection of a module's settings.
// Settings are declared once when the module is created.
type Settings struct {
	mu     sync.RWMutex
	order  []*Setting
	byName map[string]*Setting
}

// NewSettings returns an empty settings collection.
func NewSettings() *Settings {
	return &Settings{byName: map[string]*Setting{}}
}

// All returns the settings in declaration order.
func (s *Settings) All() []*Setting {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.order)
}

// Get returns the setting with name.
func (s *Settings) Get(name string) (*Setting, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.byName[name]
	return st, ok
}

// Names returns the setting names in declaration order.
func (s *Settings) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, len(s.order))
	for i, st := range s.order {
		names[i] = st.name
	}
	return names
}

// Bool declares a boolean setting.
func (s *Settings) Bool(name string, def bool) Value[bool] {
	return Value[bool]{s.add(&Setting{name: name, kind: KindBool, def: def})}
}

// Int declares an integer setting with the inclusive range min..max.
func (s *Settings) Int(name string, def, min, max int) Value[int] {
	return s.IntStep(name, def, min, max, 0)
}

// IntStep declares an integer setting with the inclusive range min..max
// whose values are snapped to min + k*step.
func (s *Settings) IntStep(name string, def, min, max, step int) Value[int] {
	if min > max {
		panic(fmt.Sprintf("setting %q: min %d > max %d", name, min, max))
	}
	st := &Setting{name: name, kind: KindInt, min: float64(min), max: float64(max), step: float64(step)}
	st.def = st.normalize(def)
	return Value[int]{s.add(st)}
}

// Float declares a float setting with the inclusive range min..max.
func (s *Settings) Float(name string, def, min, max float64) Value[float64] {
	if min > max {
		panic(fmt.Sprintf("setting %q: min %v > max %v", name, min, max))
	}
	st := &Setting{name: name, kind: KindFloat, def: clamp(def, min, max), min: min, max: max}
	return Value[float64]{s.add(st)}
}

// Choice declares a setting constrained to choices. Values outside of
// choices fall back to def, which must be one of them.
func (s *Settings) Choice(name string, def string, choices ...string) Value[string] {
	if !slices.Contains(choices, def) {
		panic(fmt.Sprintf("setting %q: default %q is not a choice", name, def))
	}
	st := &Setting{name: name, kind: KindChoice, def: def, choices: slices.Clone(choices)}
	return Value[string]{s.add(st)}
}

// Text declares a free text setting.
func (s *Settings) Text(name string, def string) Value[string] {
	return Value[string]{s.add(&Setting{name: name, kind: KindText, def: def})}
}

// add panics on invalid declarations, they are programming errors.
func (s *Settings) add(st *Setting) *Setting {
	if !validation.ValidName(st.name) {
		panic(fmt.Sprintf("invalid setting name %q: %s", st.name, validation.QualifiedNameErrMsg))
	}
	if st.name == EnabledKey {
		panic(fmt.Sprintf("setting name %q is reserved", EnabledKey))
	}
	st.value = st.def

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byName[st.name]; ok {
		panic(fmt.Sprintf("setting %q declared twice", st.name))
	}
	s.order = append(s.order, st)
	s.byName[st.name] = st
	return st
}

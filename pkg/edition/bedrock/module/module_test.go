package module

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/robinbraemer/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testModule struct {
	*Base
	enabledCalls  int
	disabledCalls int

	flag  Value[bool]
	count Value[int]
	ratio Value[float64]
	mode  Value[string]
	label Value[string]
}

func newTestModule(name string) *testModule {
	m := &testModule{Base: NewBase(name, Combat, "test module")}
	s := m.Settings()
	m.flag = s.Bool("flag", true)
	m.count = s.Int("count", 5, 1, 20)
	m.ratio = s.Float("ratio", 0.5, 0, 1)
	m.mode = s.Choice("mode", "Single", "Single", "Multi")
	m.label = s.Text("label", "none")
	return m
}

func (m *testModule) OnEnabled()         { m.enabledCalls++ }
func (m *testModule) OnDisabled()        { m.disabledCalls++ }
func (m *testModule) StatusInfo() string { return m.mode.Get() }

type panicModule struct{ *Base }

func (panicModule) OnEnabled() { panic("broken") }

func TestIntClampIdempotent(t *testing.T) {
	m := newTestModule("Clamp")
	for _, tt := range []struct{ in, want int }{
		{100, 20}, {-3, 1}, {7, 7}, {20, 20}, {1, 1},
	} {
		m.count.Set(tt.in)
		first := m.count.Get()
		m.count.Set(tt.in)
		assert.Equal(t, tt.want, first, "set %d", tt.in)
		assert.Equal(t, first, m.count.Get(), "re-applying %d is idempotent", tt.in)
	}

	for _, tt := range []struct {
		in   any
		want int
	}{
		{1e20, 20}, {"1e20", 20}, {math.Inf(1), 20}, {3.69e19, 20},
		{-1e20, 1}, {math.Inf(-1), 1}, {math.MaxInt, 20}, {math.MinInt, 1},
		{math.NaN(), 5},
	} {
		require.NoError(t, m.count.SetValue(tt.in))
		assert.Equal(t, tt.want, m.count.Get(), "set %v", tt.in)
	}
}

func TestIntStep(t *testing.T) {
	s := NewSettings()
	v := s.IntStep("delay", 52, 0, 100, 5)
	assert.Equal(t, 50, v.Get(), "default is snapped")
	v.Set(53)
	assert.Equal(t, 55, v.Get())
	v.Set(1000)
	assert.Equal(t, 100, v.Get())

	odd := s.IntStep("odd", 0, 0, 100, 30)
	odd.Set(100)
	assert.Equal(t, 90, odd.Get(), "snapped values stay in range")
	odd.Set(math.MaxInt)
	assert.Equal(t, 90, odd.Get())
}

func TestFloatClamp(t *testing.T) {
	m := newTestModule("Float")
	m.ratio.Set(3.5)
	assert.Equal(t, 1.0, m.ratio.Get())
	m.ratio.Set(-1)
	assert.Equal(t, 0.0, m.ratio.Get())
}

func TestChoiceFallback(t *testing.T) {
	m := newTestModule("Choice")
	m.mode.Set("Multi")
	assert.True(t, m.mode.Is("Multi"))
	m.mode.Set("multi")
	assert.Equal(t, "Single", m.mode.Get(), "choices are case-exact")
	m.mode.Set("Other")
	assert.Equal(t, "Single", m.mode.Get())
}

func TestSetValueCoercion(t *testing.T) {
	m := newTestModule("Coerce")
	s := m.Settings()

	count, _ := s.Get("count")
	require.NoError(t, count.SetValue("12"))
	assert.Equal(t, 12, m.count.Get())
	require.NoError(t, count.SetValue(3.6))
	assert.Equal(t, 4, m.count.Get())
	require.Error(t, count.SetValue("many"))
	assert.Equal(t, 4, m.count.Get(), "failed coercion keeps the value")

	flag, _ := s.Get("flag")
	require.NoError(t, flag.SetValue("false"))
	assert.False(t, m.flag.Get())

	label, _ := s.Get("label")
	require.NoError(t, label.SetValue(42))
	assert.Equal(t, "42", m.label.Get())

	label.Reset()
	assert.Equal(t, "none", m.label.Get())
}

func TestDeclarationPanics(t *testing.T) {
	s := NewSettings()
	s.Bool("a", false)
	assert.Panics(t, func() { s.Bool("a", true) }, "duplicate")
	assert.Panics(t, func() { s.Bool(EnabledKey, true) }, "reserved")
	assert.Panics(t, func() { s.Bool("with space", true) }, "invalid name")
	assert.Panics(t, func() { s.Choice("c", "x", "a", "b") }, "default not a choice")
	assert.Panics(t, func() { s.Int("i", 0, 5, 1) }, "min > max")
	assert.Equal(t, []string{"a"}, s.Names())
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(logr.Discard(), nil)
	a, b := newTestModule("Alpha"), newTestModule("Beta")
	c := &testModule{Base: NewBase("Gamma", Motion, "")}
	require.NoError(t, r.Register(a, b, c))

	err := r.Register(newTestModule("Alpha"))
	require.ErrorIs(t, err, ErrDuplicateModule)
	require.Error(t, r.Register(newTestModule("bad name")))

	assert.Equal(t, []string{"Alpha", "Beta", "Gamma"}, r.Names())
	assert.Equal(t, []Module{c}, r.All(Motion))
	assert.Len(t, r.All(Combat, Motion), 3)

	got, ok := r.Get("Beta")
	require.True(t, ok)
	assert.Same(t, b, got)
}

func TestSetEnabled(t *testing.T) {
	mgr := event.New()
	var toggles []*ToggleEvent
	event.Subscribe(mgr, 0, func(e *ToggleEvent) { toggles = append(toggles, e) })

	r := NewRegistry(logr.Discard(), mgr)
	m := newTestModule("Alpha")
	require.NoError(t, r.Register(m))

	require.True(t, r.SetEnabled(m, true))
	require.False(t, r.SetEnabled(m, true), "no change")
	require.True(t, m.Enabled())
	assert.Equal(t, 1, m.enabledCalls)
	assert.Equal(t, []Module{m}, r.Enabled())

	assert.False(t, r.Toggle(m))
	assert.Equal(t, 1, m.disabledCalls)

	require.Len(t, toggles, 2)
	assert.True(t, toggles[0].Enabled())
	assert.False(t, toggles[1].Enabled())
	assert.Same(t, m, toggles[1].Module())
}

func TestRegistrySet(t *testing.T) {
	mgr := event.New()
	var changes []string
	event.Subscribe(mgr, 0, func(e *SettingChangeEvent) {
		changes = append(changes, e.Module().Name()+"."+e.Setting().Name())
	})
	r := NewRegistry(logr.Discard(), mgr)
	m := newTestModule("Alpha")
	require.NoError(t, r.Register(m))

	s, err := r.Set(m, "count", "50")
	require.NoError(t, err)
	assert.Equal(t, 20, s.Value())

	_, err = r.Set(m, "cout", 1)
	require.ErrorIs(t, err, ErrUnknownSetting)
	_, err = r.Set(m, "flag", "maybe")
	require.Error(t, err)
	assert.True(t, m.flag.Get(), "invalid values keep the current value")

	assert.Equal(t, []string{"Alpha.count"}, changes)
}

func TestPanickingHookIsRecovered(t *testing.T) {
	r := NewRegistry(logr.Discard(), nil)
	m := panicModule{NewBase("Broken", Misc, "")}
	require.NoError(t, r.Register(m))
	require.NotPanics(t, func() { r.SetEnabled(m, true) })
	assert.True(t, m.Enabled())
}

func TestDocumentRoundTrip(t *testing.T) {
	newRegistry := func() (*Registry, *testModule, *testModule) {
		r := NewRegistry(logr.Discard(), nil)
		a, b := newTestModule("Alpha"), newTestModule("Beta")
		require.NoError(t, r.Register(a, b))
		return r, a, b
	}

	r1, a1, b1 := newRegistry()
	r1.SetEnabled(a1, true)
	a1.count.Set(17)
	a1.mode.Set("Multi")
	b1.ratio.Set(0.25)
	b1.label.Set("hello")
	b1.flag.Set(false)

	path := filepath.Join(t.TempDir(), "modules.yml")
	require.NoError(t, WriteDocument(path, r1.Export()))
	doc, err := ReadDocument(path)
	require.NoError(t, err)

	r2, _, _ := newRegistry()
	report := r2.Import(doc)
	require.True(t, report.Empty(), "%+v", report)
	assert.Equal(t, r1.Export(), r2.Export())
}

func TestImportTolerance(t *testing.T) {
	r := NewRegistry(logr.Discard(), nil)
	m := newTestModule("Alpha")
	require.NoError(t, r.Register(m))

	report := r.Import(Document{
		"Alpah":   {"enabled": true},
		"Unknown": {"x": 1},
		"Alpha": {
			"enabled": "true",
			"count":   999,
			"mode":    "Nope",
			"cuont":   3,
			"flag":    []int{1},
		},
	})
	assert.True(t, m.Enabled())
	assert.Equal(t, 20, m.count.Get(), "clamped")
	assert.Equal(t, "Single", m.mode.Get(), "fallback")
	assert.Equal(t, 0.5, m.ratio.Get(), "missing keeps default")
	assert.True(t, m.flag.Get(), "invalid keeps value")

	assert.Equal(t, []string{"Alpah", "Unknown"}, report.UnknownModules)
	assert.Equal(t, []string{"Alpha.cuont"}, report.UnknownSettings)
	assert.Len(t, report.Invalid, 1)
	assert.Equal(t, "Alpha", report.Suggestions["Alpah"])
	assert.Equal(t, "Alpha.count", report.Suggestions["Alpha.cuont"])
}

func TestReadMissingDocument(t *testing.T) {
	doc, err := ReadDocument(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)
	assert.Empty(t, doc)
}

func TestClickLimiter(t *testing.T) {
	l := NewClickLimiter(5)
	assert.Equal(t, 200*time.Millisecond, MinDelay(5))

	t0 := time.Now()
	var performed int
	for _, at := range []time.Time{t0, t0.Add(50 * time.Millisecond)} {
		if l.AllowAt(at) {
			performed++
		}
	}
	assert.Equal(t, 1, performed)
	assert.True(t, l.AllowAt(t0.Add(250*time.Millisecond)))

	l.SetCPS(0)
	assert.False(t, l.AllowAt(t0.Add(time.Hour)))
}

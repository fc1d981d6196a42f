// Package script loads relay modules written in Lua.
//
// A script returns a table describing the module:
//
//	return {
//	  name = "Greeter",
//	  description = "Greets on join",
//	  settings = {
//	    { name = "message", type = "text", default = "hi" },
//	    { name = "every", type = "int", default = 20, min = 1, max = 200 },
//	  },
//	  on_enable = function() end,
//	  on_disable = function() end,
//	  on_tick = function(tick, session) end,
//	  on_packet = function(pk, session) return false end,
//	}
//
// on_packet receives a table with the packet name and direction and cancels
// the packet by returning true. Settings are read with setting(name).
package script

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/go-logr/logr"
	"github.com/sandertv/gophertunnel/minecraft/protocol/packet"
	"github.com/spf13/cast"
	"github.com/yuin/gluamapper"
	lua "github.com/yuin/gopher-lua"

	"github.com/veilmc/veil/pkg/edition/bedrock/module"
	"github.com/veilmc/veil/pkg/edition/bedrock/proto"
	"github.com/veilmc/veil/pkg/edition/bedrock/proxy"
	"github.com/veilmc/veil/pkg/edition/bedrock/world"
)

// Ext is the file extension of script modules.
const Ext = ".lua"

// ErrNoTable is returned when a script does not return a module table.
var ErrNoTable = errors.New("script did not return a table")

// Hook names looked up in the module table.
const (
	hookEnable  = "on_enable"
	hookDisable = "on_disable"
	hookTick    = "on_tick"
	hookPacket  = "on_packet"
)

type descriptor struct {
	Name        string
	Description string
	Settings    []settingDef
}

type settingDef struct {
	Name    string
	Type    string
	Default interface{}
	Min     float64
	Max     float64
	Choices []string
}

// Module is a module backed by a Lua script.
// Hooks of one script never run concurrently.
type Module struct {
	*module.Base
	path string
	log  logr.Logger

	mu    sync.Mutex // Protects following fields
	state *lua.LState
	table *lua.LTable
}

var (
	_ proxy.PacketHandler = (*Module)(nil)
	_ proxy.SessionBinder = (*Module)(nil)
)

// Load runs the script at path and returns the module it describes.
func Load(path string, log logr.Logger) (*Module, error) {
	L := lua.NewState()
	if err := L.DoFile(path); err != nil {
		L.Close()
		return nil, fmt.Errorf("error running script %s: %w", path, err)
	}
	table, ok := L.Get(-1).(*lua.LTable)
	if !ok {
		L.Close()
		return nil, fmt.Errorf("%s: %w", path, ErrNoTable)
	}
	L.Pop(1)

	var desc descriptor
	if err := gluamapper.Map(table, &desc); err != nil {
		L.Close()
		return nil, fmt.Errorf("error reading module table of %s: %w", path, err)
	}
	if desc.Name == "" {
		desc.Name = strings.TrimSuffix(filepath.Base(path), Ext)
	}

	m := &Module{
		Base:  module.NewBase(desc.Name, module.Script, desc.Description),
		path:  path,
		log:   log.WithValues("script", desc.Name),
		state: L,
		table: table,
	}
	for _, def := range desc.Settings {
		if err := m.addSetting(def); err != nil {
			L.Close()
			return nil, fmt.Errorf("%s: setting %q: %w", path, def.Name, err)
		}
	}
	L.SetGlobal("setting", L.NewFunction(m.luaSetting))
	return m, nil
}

// LoadDir loads every script in dir in name order.
// Scripts failing to load are logged and skipped.
func LoadDir(dir string, log logr.Logger) ([]*Module, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == Ext {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	modules := make([]*Module, 0, len(names))
	for _, name := range names {
		m, err := Load(filepath.Join(dir, name), log)
		if err != nil {
			log.Error(err, "skipping script")
			continue
		}
		modules = append(modules, m)
	}
	return modules, nil
}

// addSetting declares def. Invalid declarations panic in module.Settings
// and are returned as errors here, they come from user files.
func (m *Module) addSetting(def settingDef) (err error) {
	if def.Name == "" {
		return errors.New("missing name")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	s := m.Settings()
	switch strings.ToLower(def.Type) {
	case "bool":
		s.Bool(def.Name, cast.ToBool(def.Default))
	case "int":
		s.Int(def.Name, cast.ToInt(def.Default), int(def.Min), int(def.Max))
	case "float":
		s.Float(def.Name, cast.ToFloat64(def.Default), def.Min, def.Max)
	case "choice":
		if len(def.Choices) == 0 {
			return errors.New("choice setting without choices")
		}
		d := cast.ToString(def.Default)
		if d == "" {
			d = def.Choices[0]
		}
		s.Choice(def.Name, d, def.Choices...)
	case "text", "string", "":
		s.Text(def.Name, cast.ToString(def.Default))
	default:
		return fmt.Errorf("unknown type %q", def.Type)
	}
	return nil
}

// Path returns the file the module was loaded from.
func (m *Module) Path() string { return m.path }

// Close releases the Lua state. The module must not be used afterwards.
func (m *Module) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Close()
}

func (m *Module) OnEnabled()  { m.call(hookEnable) }
func (m *Module) OnDisabled() { m.call(hookDisable) }

func (m *Module) BeforePacketBound(e proxy.PacketEvent) {
	if !m.hasHook(hookPacket) {
		return
	}
	ret := m.callWith(hookPacket, func(L *lua.LState) []lua.LValue {
		pk := L.NewTable()
		pk.RawSetString("name", lua.LString(proto.Name(e.Packet())))
		pk.RawSetString("direction", lua.LString(e.Direction().String()))
		return []lua.LValue{pk, m.sessionTable(L, e.Session())}
	})
	if lua.LVAsBool(ret) {
		e.Cancel()
	}
}

func (m *Module) BindSession(b *proxy.Binding) {
	if !m.hasHook(hookTick) {
		return
	}
	s := b.Session()
	proxy.Handle(b, func(e *proxy.TickEvent) {
		m.callWith(hookTick, func(L *lua.LState) []lua.LValue {
			return []lua.LValue{lua.LNumber(e.Tick()), m.sessionTable(L, s)}
		})
	})
}

func (m *Module) hasHook(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.table.RawGetString(name).Type() == lua.LTFunction
}

func (m *Module) call(hook string) lua.LValue {
	return m.callWith(hook, nil)
}

// callWith calls hook with the arguments returned by args, which runs with the state locked.
// Errors are logged and yield nil.
func (m *Module) callWith(hook string, args func(*lua.LState) []lua.LValue) lua.LValue {
	m.mu.Lock()
	defer m.mu.Unlock()
	L := m.state
	fn, ok := m.table.RawGetString(hook).(*lua.LFunction)
	if !ok {
		return lua.LNil
	}
	var params []lua.LValue
	if args != nil {
		params = args(L)
	}
	if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, params...); err != nil {
		m.log.Error(err, "error calling script hook", "hook", hook)
		return lua.LNil
	}
	ret := L.Get(-1)
	L.Pop(1)
	return ret
}

// luaSetting returns the current value of a setting to the script.
func (m *Module) luaSetting(L *lua.LState) int {
	name := L.CheckString(1)
	s, ok := m.Settings().Get(name)
	if !ok {
		L.ArgError(1, "unknown setting "+name)
		return 0
	}
	switch v := s.Value().(type) {
	case bool:
		L.Push(lua.LBool(v))
	case int:
		L.Push(lua.LNumber(v))
	case float64:
		L.Push(lua.LNumber(v))
	default:
		L.Push(lua.LString(cast.ToString(v)))
	}
	return 1
}

// sessionTable exposes s to the script.
func (m *Module) sessionTable(L *lua.LState, s *proxy.Session) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("id", lua.LString(s.ID()))
	t.RawSetString("chat", L.NewFunction(func(L *lua.LState) int {
		msg := L.CheckString(1)
		if err := s.ClientBound(&packet.Text{TextType: packet.TextTypeRaw, Message: msg}); err != nil {
			L.RaiseError("could not send chat: %v", err)
		}
		return 0
	}))
	t.RawSetString("notify", L.NewFunction(func(L *lua.LState) int {
		s.Notify(proxy.InfoNotification, "%s: %s", m.Name(), L.CheckString(1))
		return 0
	}))
	t.RawSetString("position", L.NewFunction(func(L *lua.LState) int {
		var x, y, z float32
		s.View(func(p *world.LocalPlayer, _ *world.Level) {
			x, y, z = p.Position[0], p.Position[1], p.Position[2]
		})
		L.Push(lua.LNumber(x))
		L.Push(lua.LNumber(y))
		L.Push(lua.LNumber(z))
		return 3
	}))
	t.RawSetString("entities", L.NewFunction(func(L *lua.LState) int {
		var n int
		s.View(func(_ *world.LocalPlayer, l *world.Level) { n = l.EntityCount() })
		L.Push(lua.LNumber(n))
		return 1
	}))
	return t
}

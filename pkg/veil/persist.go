package veil

import (
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/robinbraemer/event"
	"go.uber.org/atomic"

	"github.com/veilmc/veil/pkg/edition/bedrock/module"
)

const saveDelay = 500 * time.Millisecond

// store keeps the module document on disk in sync with the registry.
// Changes are saved with a short delay so that bursts are written once.
type store struct {
	path     string
	registry *module.Registry
	log      logr.Logger

	importing atomic.Bool // Changes applied by load are not saved back.

	mu    sync.Mutex
	timer *time.Timer
}

func newStore(path string, registry *module.Registry, log logr.Logger) *store {
	return &store{path: path, registry: registry, log: log.WithValues("path", path)}
}

// subscribe saves the document after every toggle and setting change.
func (s *store) subscribe(mgr event.Manager) (unsubscribe func()) {
	u1 := event.Subscribe(mgr, 0, func(*module.ToggleEvent) { s.schedule() })
	u2 := event.Subscribe(mgr, 0, func(*module.SettingChangeEvent) { s.schedule() })
	return func() { u1(); u2() }
}

// load applies the document to the registry and logs what could not be applied.
func (s *store) load() error {
	doc, err := module.ReadDocument(s.path)
	if err != nil {
		return err
	}
	s.importing.Store(true)
	report := s.registry.Import(doc)
	s.importing.Store(false)

	for _, name := range report.UnknownModules {
		s.log.Info("ignoring unknown module in module settings", "module", name,
			"suggestion", report.Suggestions[name])
	}
	for _, key := range report.UnknownSettings {
		s.log.Info("ignoring unknown setting in module settings", "setting", key,
			"suggestion", report.Suggestions[key])
	}
	for _, err := range report.Invalid {
		s.log.Info("ignoring invalid value in module settings", "error", err)
	}
	return nil
}

func (s *store) schedule() {
	if s.importing.Load() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(saveDelay, func() {
		if err := s.save(); err != nil {
			s.log.Error(err, "error saving module settings")
		}
	})
}

// flush saves a pending change immediately.
func (s *store) flush() error {
	s.mu.Lock()
	pending := s.timer != nil && s.timer.Stop()
	s.timer = nil
	s.mu.Unlock()
	if !pending {
		return nil
	}
	return s.save()
}

func (s *store) save() error {
	if err := module.WriteDocument(s.path, s.registry.Export()); err != nil {
		return err
	}
	s.log.V(1).Info("saved module settings")
	return nil
}

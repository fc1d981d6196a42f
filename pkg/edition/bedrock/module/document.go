package module

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"github.com/veilmc/veil/pkg/internal/suggest"
)

// Document is the flat persisted form of a registry's state:
// per module name the enabled flag under EnabledKey and every setting value under its name.
type Document map[string]map[string]any

// Export returns the enabled flag and every setting value of all modules.
func (r *Registry) Export() Document {
	doc := Document{}
	for _, m := range r.All() {
		values := map[string]any{EnabledKey: m.Enabled()}
		for _, s := range m.Settings().All() {
			values[s.Name()] = s.Value()
		}
		doc[m.Name()] = values
	}
	return doc
}

// ImportReport describes the parts of a document Import could not apply.
type ImportReport struct {
	UnknownModules  []string
	UnknownSettings []string // as "module.setting"
	Invalid         []error  // values that could not be coerced
	Suggestions     map[string]string
}

// Empty reports whether the whole document was applied.
func (r *ImportReport) Empty() bool {
	return len(r.UnknownModules) == 0 && len(r.UnknownSettings) == 0 && len(r.Invalid) == 0
}

// Import applies doc to the registry. Unknown modules and keys are ignored,
// missing keys keep their current value and values are clamped as their setting declares.
// Enabled flags are applied last through SetEnabled.
func (r *Registry) Import(doc Document) *ImportReport {
	report := &ImportReport{Suggestions: map[string]string{}}
	moduleNames := r.Names()

	names := make([]string, 0, len(doc))
	for name := range doc {
		names = append(names, name)
	}
	sort.Strings(names)

	type toggle struct {
		m       Module
		enabled bool
	}
	var toggles []toggle
	for _, name := range names {
		values := doc[name]
		m, ok := r.Get(name)
		if !ok {
			report.UnknownModules = append(report.UnknownModules, name)
			if s, ok := suggest.Closest(name, moduleNames); ok {
				report.Suggestions[name] = s
			}
			continue
		}
		settings := m.Settings()
		for key, v := range values {
			if key == EnabledKey {
				enabled, err := cast.ToBoolE(v)
				if err != nil {
					report.Invalid = append(report.Invalid, fmt.Errorf("%s.%s: %w", name, key, err))
					continue
				}
				toggles = append(toggles, toggle{m, enabled})
				continue
			}
			s, ok := settings.Get(key)
			if !ok {
				full := name + "." + key
				report.UnknownSettings = append(report.UnknownSettings, full)
				if sug, ok := suggest.Closest(key, settings.Names()); ok {
					report.Suggestions[full] = name + "." + sug
				}
				continue
			}
			if err := s.SetValue(v); err != nil {
				report.Invalid = append(report.Invalid, fmt.Errorf("%s: %w", name, err))
			}
		}
	}
	sort.Strings(report.UnknownSettings)

	for _, t := range toggles {
		r.SetEnabled(t.m, t.enabled)
	}
	return report
}

// ReadDocument reads a YAML document from path.
// A missing file results in an empty document.
func ReadDocument(path string) (Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Document{}, nil
		}
		return nil, err
	}
	doc := Document{}
	if err = yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("error parsing module settings %s: %w", path, err)
	}
	return doc, nil
}

// WriteDocument writes doc to path as YAML, replacing the file atomically.
func WriteDocument(path string, doc Document) error {
	b, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".modules-*.yml")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err = tmp.Write(b); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

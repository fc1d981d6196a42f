// Package veil wires the relay, its modules and the ambient services
// (health probe, telemetry, persistence and reloading) into one runnable unit.
package veil

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-logr/logr"
	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/robinbraemer/event"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	"github.com/veilmc/veil/pkg/edition/bedrock/module"
	"github.com/veilmc/veil/pkg/edition/bedrock/modules"
	"github.com/veilmc/veil/pkg/edition/bedrock/modules/script"
	"github.com/veilmc/veil/pkg/edition/bedrock/proxy"
	"github.com/veilmc/veil/pkg/internal/health"
	"github.com/veilmc/veil/pkg/internal/reload"
	"github.com/veilmc/veil/pkg/util/errs"
	"github.com/veilmc/veil/pkg/util/netutil"
	"github.com/veilmc/veil/pkg/version"
)

// Options are Veil options.
type Options struct {
	// Config requires a valid Veil configuration.
	Config *Config
	// ConfigFile is the file Config was loaded from.
	// If set, it is watched and changes are applied while running.
	ConfigFile string
	// EventMgr is the event manager to use.
	// If none is set, a new one is created.
	EventMgr event.Manager
	// Logger is the logger used for Veil and its components.
	// If none is set, nothing is logged.
	Logger logr.Logger
	// Notifier receives user-visible notifications.
	// If none is set, notifications are logged.
	Notifier proxy.Notifier
	// Modules are registered in addition to the built-in modules.
	Modules []module.Module
}

// Veil runs the relay with its modules.
type Veil struct {
	log        logr.Logger
	eventMgr   event.Manager
	configFile string
	registry   *module.Registry
	relay      *proxy.Relay
	scripts    []*script.Module
	store      *store // nil if persistence is disabled

	mu  sync.Mutex // Protects cfg
	cfg *Config
}

// New returns a new Veil instance ready to start.
// The given Options requires a validated Config.
func New(options Options) (*Veil, error) {
	cfg := options.Config
	if cfg == nil {
		return nil, errs.ErrMissingConfig
	}
	log := options.Logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	eventMgr := options.EventMgr
	if eventMgr == nil {
		eventMgr = event.New()
	}
	notifier := options.Notifier
	if notifier == nil {
		notifier = LogNotifier(log.WithName("notify"))
	}

	v := &Veil{
		log:        log,
		eventMgr:   eventMgr,
		configFile: options.ConfigFile,
		cfg:        cfg,
		registry:   module.NewRegistry(log.WithName("modules"), eventMgr),
	}

	if err := v.registry.Register(modules.Defaults()...); err != nil {
		return nil, fmt.Errorf("error registering built-in modules: %w", err)
	}
	if err := v.registry.Register(options.Modules...); err != nil {
		return nil, fmt.Errorf("error registering modules: %w", err)
	}
	if err := v.loadScripts(cfg.Modules.Scripts); err != nil {
		return nil, err
	}

	if cfg.Modules.File != "" {
		v.store = newStore(cfg.Modules.File, v.registry, log.WithName("store"))
		if err := v.store.load(); err != nil {
			v.closeScripts()
			return nil, fmt.Errorf("error loading module settings: %w", err)
		}
	}

	var tokenSource oauth2.TokenSource
	if cfg.Config.OnlineMode {
		var err error
		tokenSource, err = TokenSource(cfg.Config.TokenFile, log.WithName("auth"))
		if err != nil {
			v.closeScripts()
			return nil, fmt.Errorf("error loading Xbox Live token: %w", err)
		}
	}

	var err error
	v.relay, err = proxy.New(proxy.Options{
		Config:      &cfg.Config,
		Registry:    v.registry,
		EventMgr:    eventMgr,
		Logger:      log,
		TokenSource: tokenSource,
		Notifier:    notifier,
	})
	if err != nil {
		v.closeScripts()
		return nil, err
	}
	return v, nil
}

func (v *Veil) loadScripts(dir string) error {
	if dir == "" {
		return nil
	}
	scripts, err := script.LoadDir(dir, v.log.WithName("script"))
	if err != nil {
		return fmt.Errorf("error loading scripts: %w", err)
	}
	for _, s := range scripts {
		if err := v.registry.Register(s); err != nil {
			v.log.Error(err, "skipping script", "path", s.Path())
			s.Close()
			continue
		}
		v.scripts = append(v.scripts, s)
		v.log.Info("loaded script module", "module", s.Name(), "path", s.Path())
	}
	return nil
}

func (v *Veil) closeScripts() {
	for _, s := range v.scripts {
		s.Close()
	}
}

// Registry returns the module registry.
func (v *Veil) Registry() *module.Registry { return v.registry }

// Relay returns the relay.
func (v *Veil) Relay() *proxy.Relay { return v.relay }

// Event returns the event manager.
func (v *Veil) Event() event.Manager { return v.eventMgr }

// Config returns the current config.
func (v *Veil) Config() *Config {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cfg
}

// Start runs the relay and the enabled services until ctx is cancelled or
// the relay fails. Module settings are saved before it returns.
func (v *Veil) Start(ctx context.Context) error {
	ctx = logr.NewContext(ctx, v.log)
	defer v.closeScripts()

	cfg := v.Config()
	host, port, err := splitRemote(cfg.Config.Remote)
	if err != nil {
		return err
	}

	if cfg.Telemetry.Enabled {
		shutdown, err := otelconfig.ConfigureOpenTelemetry(
			otelconfig.WithServiceName("veil"),
			otelconfig.WithServiceVersion(version.String()),
		)
		if err != nil {
			return fmt.Errorf("error configuring OpenTelemetry: %w", err)
		}
		defer shutdown()
	}

	if v.store != nil {
		defer func() {
			if err := v.store.flush(); err != nil {
				v.log.Error(err, "error saving module settings")
			}
		}()
		defer v.store.subscribe(v.eventMgr)()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	eg, ctx := errgroup.WithContext(ctx)

	if cfg.HealthService.Enabled {
		srv, err := health.New(cfg.HealthService.Bind)
		if err != nil {
			return fmt.Errorf("error creating health probe service: %w", err)
		}
		v.log.Info("health probe service running", "addr", srv.Addr().String())
		eg.Go(func() error {
			return srv.Run(ctx.Done(), health.Status(v.relay.Listening))
		})
	}

	if err = v.watch(ctx, cfg); err != nil {
		return err
	}

	eg.Go(func() error {
		defer cancel()
		return v.relay.Start(ctx, host, port)
	})
	return eg.Wait()
}

// watch reloads the config file and the module settings when they change.
func (v *Veil) watch(ctx context.Context, cfg *Config) error {
	if v.configFile != "" {
		if err := reload.Watch(ctx, v.configFile, v.reloadConfig); err != nil {
			return fmt.Errorf("error watching config file: %w", err)
		}
	}
	if v.store != nil && cfg.Modules.Watch {
		if err := reload.Watch(ctx, v.store.path, v.store.load); err != nil {
			return fmt.Errorf("error watching module settings: %w", err)
		}
	}
	return nil
}

// reloadConfig applies the config file to the running relay.
func (v *Veil) reloadConfig() error {
	curr, err := LoadConfig(NewViper(v.configFile))
	if err != nil {
		return err
	}
	warns, errs := curr.Validate()
	for _, w := range warns {
		v.log.Info("config validation warn", "warn", w.Error())
	}
	if len(errs) != 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}

	v.mu.Lock()
	prev := v.cfg
	v.cfg = curr
	v.mu.Unlock()

	if proxy.RequiresRestart(&prev.Config, &curr.Config) {
		v.log.Info("some config changes only apply after a restart")
	}
	v.relay.UpdateConfig(&curr.Config)
	reload.FireConfigUpdate(v.eventMgr, curr, prev)
	return nil
}

// splitRemote splits a host:port remote address.
func splitRemote(remote string) (string, uint16, error) {
	if remote == "" {
		return "", 0, errors.New("no remote server address configured")
	}
	host, port, err := netutil.SplitHostPort(remote)
	if err != nil {
		return "", 0, fmt.Errorf("invalid remote server address: %w", err)
	}
	return host, port, nil
}

package veil

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	bconfig "github.com/veilmc/veil/pkg/edition/bedrock/config"
	"github.com/veilmc/veil/pkg/util/configutil"
	"github.com/veilmc/veil/pkg/util/validation"
)

// DefaultConfig is the default Veil configuration.
var DefaultConfig = Config{
	Config: bconfig.DefaultConfig,
	Modules: Modules{
		File:    "modules.yml",
		Scripts: "scripts",
		Watch:   true,
	},
	HealthService: HealthService{
		Bind: "0.0.0.0:9090",
	},
}

// Config is a Veil config for reading in files and environment variables with Viper.
type Config struct {
	// Config is the relay configuration.
	Config  bconfig.Config
	Modules Modules
	// GRPC health probe service for use with Kubernetes pods.
	// (https://github.com/grpc-ecosystem/grpc-health-probe)
	HealthService HealthService
	// Telemetry enables OpenTelemetry metrics and traces, configured by the
	// standard OTEL_* environment variables.
	Telemetry Telemetry
}

type (
	// Modules configures where module state is kept.
	Modules struct {
		File    string // YAML document with module settings and enabled flags. Empty disables persistence.
		Scripts string // Directory of Lua script modules. Empty disables scripts.
		Watch   bool   // Reload the module document when it changes on disk.
	}
	HealthService struct {
		Enabled bool
		Bind    string
	}
	Telemetry struct {
		Enabled bool
	}
)

// EnvPrefix is the prefix of environment variables overriding config keys,
// e.g. VEIL_CONFIG_REMOTE.
const EnvPrefix = "VEIL"

// NewViper returns a Viper reading the config file at path and the environment.
func NewViper(path string) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	return v
}

// SetDefaults sets Config defaults to use with Viper, so that every key can
// also be set through the environment.
func SetDefaults(i configutil.SetDefault) {
	d := DefaultConfig
	relay := configutil.Prefix(i, "config")
	relay.SetDefault("bind", d.Config.Bind)
	relay.SetDefault("remote", d.Config.Remote)
	relay.SetDefault("onlineMode", d.Config.OnlineMode)
	relay.SetDefault("clientAuth", d.Config.ClientAuth)
	relay.SetDefault("tokenFile", d.Config.TokenFile)
	relay.SetDefault("tickInterval", d.Config.TickInterval)
	relay.SetDefault("dialTimeout", d.Config.DialTimeout)
	relay.SetDefault("maxQueuedPackets", d.Config.MaxQueuedPackets)
	relay.SetDefault("commandPrefix", d.Config.CommandPrefix)
	status := configutil.Prefix(relay, "status")
	status.SetDefault("cacheTTL", d.Config.Status.CacheTTL)
	status.SetDefault("pingTimeout", d.Config.Status.PingTimeout)
	status.SetDefault("fallback", d.Config.Status.Fallback)
	quota := configutil.Prefix(relay, "quota")
	quota.SetDefault("enabled", d.Config.Quota.Enabled)
	quota.SetDefault("ops", d.Config.Quota.OPS)
	quota.SetDefault("burst", d.Config.Quota.Burst)
	quota.SetDefault("maxEntries", d.Config.Quota.MaxEntries)
	relay.SetDefault("debug", d.Config.Debug)

	modules := configutil.Prefix(i, "modules")
	modules.SetDefault("file", d.Modules.File)
	modules.SetDefault("scripts", d.Modules.Scripts)
	modules.SetDefault("watch", d.Modules.Watch)
	health := configutil.Prefix(i, "healthService")
	health.SetDefault("enabled", d.HealthService.Enabled)
	health.SetDefault("bind", d.HealthService.Bind)
	i.SetDefault("telemetry.enabled", d.Telemetry.Enabled)
}

// LoadConfig decodes the config read by v onto DefaultConfig.
// A missing config file results in the default config.
// Every call returns a fresh config sharing no state with earlier loads.
func LoadConfig(v *viper.Viper) (*Config, error) {
	SetDefaults(v)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("error reading config file %q: %w", v.ConfigFileUsed(), err)
		}
	}
	cfg := DefaultConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	return &cfg, nil
}

// Validate validates the config and returns warnings and errors.
func (c *Config) Validate() (warns []error, errs []error) {
	e := func(m string, args ...any) { errs = append(errs, fmt.Errorf(m, args...)) }
	if c == nil {
		e("config must not be nil")
		return
	}

	warns, errs = c.Config.Validate()

	if c.HealthService.Enabled {
		if err := validation.ValidHostPort(c.HealthService.Bind); err != nil {
			e("Invalid health probe bind address %q: %v", c.HealthService.Bind, err)
		}
	}
	if c.Modules.Watch && c.Modules.File == "" {
		warns = append(warns, fmt.Errorf("modules.watch has no effect without modules.file"))
	}
	return warns, errs
}

// Package veil is the command line interface of Veil.
package veil

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/go-logr/logr"
	"github.com/urfave/cli/v2"

	"github.com/veilmc/veil/pkg/util/interrupt"
	"github.com/veilmc/veil/pkg/veil"
	"github.com/veilmc/veil/pkg/version"
)

// Execute runs App() and calls os.Exit when finished.
func Execute() {
	if err := App().Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// App returns the Veil command line application.
func App() *cli.App {
	app := cli.NewApp()
	app.Name = "veil"
	app.Usage = "Veil is a Minecraft Bedrock relay that intercepts packets between a client and a server."
	app.Description = `Veil sits between your Bedrock client and a remote server and lets
modules inspect, change, cancel and inject packets in both directions.

Visit the configuration file to set the remote server and the modules to enable.`
	app.Version = version.String()

	// Use -V for version, -v is the verbosity
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}

	var (
		configFile string
		debug      bool
		verbosity  int
	)
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       `config file (default: ./config.yml)`,
			EnvVars:     []string{"VEIL_CONFIG"},
			Value:       "config.yml",
			Destination: &configFile,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Aliases:     []string{"d"},
			Usage:       "Enable debug mode and highest log verbosity",
			Destination: &debug,
			EnvVars:     []string{"VEIL_DEBUG"},
		},
		&cli.IntFlag{
			Name:        "verbosity",
			Aliases:     []string{"v"},
			Usage:       "The higher the verbosity the more logs are shown",
			EnvVars:     []string{"VEIL_VERBOSITY"},
			Destination: &verbosity,
		},
		cli.VersionFlag,
	}
	app.Commands = []*cli.Command{
		configCommand(),
		modulesCommand(&configFile),
		pingCommand(),
	}
	app.Action = func(c *cli.Context) error {
		cfg, err := veil.LoadConfig(veil.NewViper(configFile))
		if err != nil {
			return cli.Exit(err, 1)
		}
		if debug {
			cfg.Config.Debug = true
		}
		if cfg.Config.Debug {
			verbosity = math.MaxInt8
		}

		log, err := newLogger(cfg.Config.Debug, verbosity)
		if err != nil {
			return cli.Exit(fmt.Errorf("error creating zap logger: %w", err), 1)
		}
		ctx := logr.NewContext(c.Context, log)
		ctx, stop := interrupt.TerminationContext(ctx)
		defer stop()

		log.Info("logging verbosity", "verbosity", verbosity)
		log.Info("using config file", "config", configFile)

		if err = Run(ctx, cfg, configFile, log); err != nil {
			return cli.Exit(err, 1)
		}
		return nil
	}
	return app
}

// errInvalidConfig is returned if the config has validation errors.
var errInvalidConfig = errors.New("invalid config")

package veil

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-logr/logr"
	"github.com/gookit/color"
	"github.com/urfave/cli/v2"

	"github.com/veilmc/veil/pkg/edition/bedrock/module"
	"github.com/veilmc/veil/pkg/veil"
)

func modulesCommand(configFile *string) *cli.Command {
	return &cli.Command{
		Name:  "modules",
		Usage: "List all modules with their settings",
		Description: `Lists the built-in and script modules with their current settings
as loaded from the module settings file of the configuration.`,
		Action: func(c *cli.Context) error {
			cfg, err := veil.LoadConfig(veil.NewViper(*configFile))
			if err != nil {
				return cli.Exit(err, 1)
			}
			cfg.Config.OnlineMode = false // no token needed for listing
			v, err := veil.New(veil.Options{Config: cfg, Logger: logr.Discard()})
			if err != nil {
				return cli.Exit(err, 1)
			}
			printModules(c.App.Writer, v.Registry())
			return nil
		},
	}
}

func printModules(w io.Writer, registry *module.Registry) {
	for _, m := range registry.All() {
		state := color.Red.Sprint("disabled")
		if m.Enabled() {
			state = color.Green.Sprint("enabled")
		}
		_, _ = fmt.Fprintf(w, "%s %s (%s) %s\n",
			color.Bold.Sprint(m.Name()), color.Gray.Sprint(m.Category()), state, m.Description())
		for _, s := range m.Settings().All() {
			_, _ = fmt.Fprintf(w, "  %s = %s %s\n",
				s.Name(), color.Yellow.Sprint(s.Value()), color.Gray.Sprint(describe(s)))
		}
	}
}

// describe returns the kind and constraints of s.
func describe(s *module.Setting) string {
	switch s.Kind() {
	case module.KindInt, module.KindFloat:
		min, max, _ := s.Range()
		return fmt.Sprintf("[%s %v..%v]", s.Kind(), min, max)
	case module.KindChoice:
		return fmt.Sprintf("[%s]", strings.Join(s.Choices(), "|"))
	}
	return fmt.Sprintf("[%s]", s.Kind())
}

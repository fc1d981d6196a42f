package veil

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/veilmc/veil/pkg/configs"
)

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Output default configuration file",
		Description: `Output the default configuration file to stdout or a file.
You can redirect to a file or use the --write flag:

	veil config > config.yml
	veil config --write              # Writes to config.yml`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "write",
				Aliases: []string{"w"},
				Usage:   "Write config to config.yml instead of stdout",
			},
		},
		Action: func(c *cli.Context) error {
			if c.Bool("write") {
				outputFile := "config.yml"
				if _, err := os.Stat(outputFile); err == nil {
					return cli.Exit(fmt.Sprintf("%s already exists, not overwriting it", outputFile), 1)
				}
				if err := os.WriteFile(outputFile, configs.DefaultConfigBytes, 0o644); err != nil {
					return cli.Exit(fmt.Errorf("error writing config to %q: %w", outputFile, err), 1)
				}
				_, _ = fmt.Fprintf(c.App.Writer, "Configuration written to %s\n", outputFile)
				return nil
			}

			if _, err := c.App.Writer.Write(configs.DefaultConfigBytes); err != nil {
				return cli.Exit(fmt.Errorf("error writing config: %w", err), 1)
			}
			return nil
		},
	}
}

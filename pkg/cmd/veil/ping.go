package veil

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/veilmc/veil/internal/util/console"
	"github.com/veilmc/veil/pkg/edition/bedrock/proxy"
)

func pingCommand() *cli.Command {
	return &cli.Command{
		Name:      "ping",
		Usage:     "Ping a Bedrock server and print its status",
		ArgsUsage: "<host:port>",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:    "timeout",
				Aliases: []string{"t"},
				Usage:   "Ping timeout",
				Value:   5 * time.Second,
			},
		},
		Action: func(c *cli.Context) error {
			address := c.Args().First()
			if address == "" {
				return cli.Exit("missing server address, e.g. veil ping play.example.net:19132", 1)
			}
			start := time.Now()
			pong, err := proxy.Ping(address, c.Duration("timeout"))
			if err != nil {
				return cli.Exit(err, 1)
			}
			w := c.App.Writer
			_, _ = fmt.Fprintf(w, "%s\n", console.AnsiFromLegacy(pong.MOTD))
			if pong.SubMOTD != "" {
				_, _ = fmt.Fprintf(w, "%s\n", console.AnsiFromLegacy(pong.SubMOTD))
			}
			_, _ = fmt.Fprintf(w, "%s %s (protocol %d), %d/%d players, %s\n",
				pong.Edition, pong.Version, pong.Protocol, pong.PlayerCount, pong.MaxPlayers,
				time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
}

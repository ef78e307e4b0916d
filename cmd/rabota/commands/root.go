package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/florianilch/rabota-client/internal/app"
)

// Execute runs the root command with the given context and arguments.
func Execute(ctx context.Context, args []string, version, commit string) error {
	return newRootCommand(version, commit).Run(ctx, args)
}

func newRootCommand(version, commit string) *cli.Command {
	return &cli.Command{
		Name:    "rabota",
		Usage:   "Rabota.ru API client",
		Version: fmt.Sprintf("%s (%s)", version, commit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to TOML config file",
				Value: app.DefaultConfigPath(),
			},
			&cli.StringFlag{
				Name:  "app-id",
				Usage: "application ID (overrides config and RABOTA_APP_ID)",
			},
			&cli.BoolFlag{
				Name:  "sandbox",
				Usage: "use the sandbox API host",
			},
			&cli.StringFlag{
				Name:  "host",
				Usage: "custom API host URL",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug|info|warn|error)",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "log format (text|json|otel)",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "record request headers on responses",
			},
		},
		Commands: []*cli.Command{
			authCommand(),
			fetchCommand(),
		},
	}
}

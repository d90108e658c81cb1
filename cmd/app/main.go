package main

import (
	"context"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cmd := &cli.Command{
		Name:    "adrctl",
		Usage:   "Create and maintain architecture decision records",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file (optional)",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "records",
				Usage:   "Records directory (overrides records.path)",
				Sources: cli.EnvVars("ADR_RECORDS_PATH"),
			},
			&cli.StringFlag{
				Name:    "templates",
				Usage:   "Template directory (overrides records.template_path)",
				Sources: cli.EnvVars("ADR_TEMPLATE_PATH"),
			},
		},
		Commands: []*cli.Command{
			initCommand(),
			newCommand(),
			statusCommand(),
			linkCommand(),
			listCommand(),
			serveCommand(),
			mcpCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/starford/adrctl/internal"
	"github.com/starford/adrctl/internal/adrservice"
	"github.com/starford/adrctl/internal/mcpserver"
	pkgconfig "github.com/starford/adrctl/pkg/config"
)

// loadConfig reads the optional config file and applies directory overrides.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	// Flags win over the file.
	if records := cmd.String("records"); records != "" {
		cfg.Records.Path = records
	}
	if templates := cmd.String("templates"); templates != "" {
		cfg.Records.TemplatePath = templates
	}
	return cfg, nil
}

// cliLogger logs to stderr so stdout carries only command output.
func cliLogger(cfg *internal.Config) *slog.Logger {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.App.LogLevel}))
	slog.SetDefault(logger)
	return logger
}

func openService(cmd *cli.Command) (*adrservice.Service, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := cliLogger(cfg)
	return adrservice.Open(cfg.Records.Layout(),
		adrservice.WithClock(cfg.Records.Clock()),
		adrservice.WithLogger(logger))
}

func initCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Create the records directory, sync templates and write the first record",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := cliLogger(cfg)
			_, path, err := adrservice.Init(ctx, cfg.Records.Layout(), cfg.TemplateRepo.Syncer(logger),
				adrservice.WithClock(cfg.Records.Clock()),
				adrservice.WithLogger(logger))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.Root().Writer, path)
			return nil
		},
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:      "new",
		Usage:     "Create the next record",
		ArgsUsage: "<title words...>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "status", Aliases: []string{"s"}, Value: "Proposed", Usage: "Initial status"},
			&cli.StringFlag{Name: "link-type", Aliases: []string{"l"}, Usage: "Link from the new record, e.g. Supersedes"},
			&cli.StringFlag{Name: "target", Aliases: []string{"t"}, Usage: "Existing record the link points to"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			svc, err := openService(cmd)
			if err != nil {
				return err
			}
			path, err := svc.Create(ctx, adrservice.CreateRequest{
				Name:     strings.Join(cmd.Args().Slice(), " "),
				Status:   cmd.String("status"),
				LinkType: cmd.String("link-type"),
				Target:   cmd.String("target"),
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.Root().Writer, path)
			return nil
		},
	}
}

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:      "status",
		Usage:     "Change the status of a record",
		ArgsUsage: "<record> <status words...>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args := cmd.Args().Slice()
			if len(args) < 2 {
				return fmt.Errorf("usage: status <record> <status>")
			}
			svc, err := openService(cmd)
			if err != nil {
				return err
			}
			return svc.ChangeStatus(ctx, args[0], strings.Join(args[1:], " "))
		},
	}
}

func linkCommand() *cli.Command {
	return &cli.Command{
		Name:      "link",
		Usage:     "Add a link line from one record to another",
		ArgsUsage: "<source> <target> <link type words...>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args := cmd.Args().Slice()
			if len(args) < 3 {
				return fmt.Errorf("usage: link <source> <target> <link type>")
			}
			svc, err := openService(cmd)
			if err != nil {
				return err
			}
			return svc.AddLink(ctx, args[0], args[1], strings.Join(args[2:], " "))
		},
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List records with their current status",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "names", Usage: "Print only filenames"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			svc, err := openService(cmd)
			if err != nil {
				return err
			}
			out := cmd.Root().Writer
			if cmd.Bool("names") {
				names, err := svc.Names(ctx)
				if err != nil {
					return err
				}
				for _, n := range names {
					fmt.Fprintln(out, n)
				}
				return nil
			}
			recs, err := svc.List(ctx)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			for _, r := range recs {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Name, r.Title, r.Status)
			}
			return tw.Flush()
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the REST API and the record event stream",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := internal.Run(ctx, internal.WithConfig(cfg), internal.WithVersion(version)); err != nil {
				return fmt.Errorf("app run error: %w", err)
			}
			return nil
		},
	}
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the record tools over MCP stdio",
		Action: func(_ context.Context, cmd *cli.Command) error {
			svc, err := openService(cmd)
			if err != nil {
				return err
			}
			return mcpserver.New(svc, version).ServeStdio()
		},
	}
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/projtree/internal"
	pkgconfig "github.com/starford/projtree/pkg/config"
)

var version = "dev"

func serve(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	err := pkgconfig.LoadOptional(configPath, cfg, func(c *internal.Config) {
		if p := cmd.String("project"); p != "" {
			c.Project.Path = p
		}
		if p := cmd.String("filters"); p != "" {
			c.Project.FiltersPath = p
		}
	})
	if err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithMCP(cmd.Bool("mcp")),
		internal.WithVersion(version),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:    "projtree",
		Usage:   "Resolve MSBuild item patterns into a browsable project tree",
		Version: version,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the project tree over HTTP, or over MCP stdio with --mcp",
				Action: serve,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "config",
						Aliases:     []string{"c"},
						Usage:       "Path to config file",
						DefaultText: "config/config.yaml",
						Value:       "config/config.yaml",
						Sources:     cli.EnvVars("APP_CONFIG_FILE"),
					},
					&cli.StringFlag{
						Name:    "project",
						Aliases: []string{"p"},
						Usage:   "Project file, overrides project.path",
						Sources: cli.EnvVars("PROJTREE_PROJECT"),
					},
					&cli.StringFlag{
						Name:  "filters",
						Usage: "Filters file, overrides project.filters_path",
					},
					&cli.BoolFlag{
						Name:  "mcp",
						Usage: "Serve MCP tools on stdin/stdout instead of HTTP",
					},
				},
			},
			{
				Name:      "resolve",
				Usage:     "Resolve a project once and print its tree",
				ArgsUsage: "<project>",
				Action:    resolve,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "filters",
						Usage: "Filters file (default: <project>.filters)",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print JSON even on a terminal",
					},
					&cli.IntFlag{
						Name:  "max-parent-traversal",
						Usage: "Reject patterns climbing more parent directories than this",
						Value: 10,
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/veleda/skald/internal"
	"github.com/veleda/skald/internal/mcpserver"
	"github.com/veleda/skald/internal/search"
	"github.com/veleda/skald/internal/session"
	"github.com/veleda/skald/internal/vault"
	pkgconfig "github.com/veleda/skald/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

// runMCP starts the stdio MCP server against the same vault and search
// database the HTTP server uses.
func runMCP(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	store, err := vault.NewFS(cfg.Vault.Path)
	if err != nil {
		return fmt.Errorf("init vault: %w", err)
	}
	db, err := search.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init search: %w", err)
	}
	defer db.Close()

	if err := search.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	ctrl, err := session.New(store, db, nil, logger, session.Options{
		MaxHistory:  cfg.Editor.MaxHistory,
		CommitQuiet: cfg.Editor.CommitQuiet(),
		SaveQuiet:   cfg.Editor.SaveQuiet(),
	})
	if err != nil {
		return fmt.Errorf("init session: %w", err)
	}

	return mcpserver.New(ctrl).ServeStdio()
}

func main() {
	configFlag := &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to config file",
		DefaultText: "config/config.yaml",
		Value:       "config/config.yaml",
		Sources:     cli.EnvVars("APP_CONFIG_FILE"),
	}

	cmd := &cli.Command{
		Name:   "skald",
		Usage:  "Local-first note service with Markdown storage, wikilink resolution, and full-text search",
		Action: run,
		Flags:  []cli.Flag{configFlag},
		Commands: []*cli.Command{
			{
				Name:   "mcp",
				Usage:  "Run the MCP stdio server exposing note tools",
				Action: runMCP,
				Flags:  []cli.Flag{configFlag},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

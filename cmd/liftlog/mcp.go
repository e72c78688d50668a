package main

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/meltforce/liftlog/internal/library"
	"github.com/meltforce/liftlog/internal/mcp"
	"github.com/meltforce/liftlog/internal/settings"
)

var mcpRemote string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve read-only training data to MCP clients over stdio",
	Long: `Serve the training history to MCP clients over stdin/stdout.

Data is read from the configured database, or from a running liftlog
server when --remote is set.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&mcpRemote, "remote", "", "liftlog server URL to read from instead of the database")
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	lib, err := library.Load(cfg.Library.Path)
	if err != nil {
		return err
	}
	deps := mcp.Deps{
		Library:            lib,
		DefaultRestSeconds: cfg.Training.DefaultRestSeconds,
	}

	if mcpRemote != "" {
		client := mcp.NewHTTPClient(mcpRemote)
		deps.Data = client
		deps.Settings = client.Settings()
		log.Info("mcp reading from remote server", "url", mcpRemote)
	} else {
		db, err := openDB(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer db.Close()

		prefs, err := settings.Open(cfg.Settings.Path, cfg.Training.Analytics())
		if err != nil {
			return err
		}
		defer prefs.Close()

		deps.Data = db
		deps.Settings = prefs
	}

	s := mcp.New(deps, Version, log)
	stdio := server.NewStdioServer(s)
	if err := stdio.Listen(ctx, cmd.InOrStdin(), cmd.OutOrStdout()); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

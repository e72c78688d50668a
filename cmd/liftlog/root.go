package main

import (
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/meltforce/liftlog/internal/config"
)

const defaultConfigPath = "config.yaml"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "liftlog",
	Short: "Track strength workouts and analyze training volume",
	Long: `liftlog runs a live workout session with rest timers, stores completed
sessions and reports per-muscle training volume and estimated one-rep maxes.`,
	Version:       Version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath, "path to config file")

	// Add subcommands (alphabetical)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(estimateCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(serveCmd)
}

// loadConfig reads the --config file. The default path may be absent, in
// which case defaults and environment overrides apply.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := configPath
	if f := cmd.Flag("config"); f == nil || !f.Changed {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			path = ""
		}
	}
	return config.Load(path)
}

// newLogger builds the slog logger for the configured format. Logs go to w
// so stdout stays free for command output and the MCP stdio transport.
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	level := cfg.SlogLevel()
	switch cfg.Format {
	case config.FormatJSON:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	case config.FormatPretty:
		return slog.New(charmlog.NewWithOptions(w, charmlog.Options{
			ReportTimestamp: true,
			Level:           charmlog.Level(level),
		}))
	default:
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	}
}

// setup loads config and builds the logger for a subcommand.
func setup(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	return cfg, newLogger(cfg.Log, cmd.ErrOrStderr()), nil
}

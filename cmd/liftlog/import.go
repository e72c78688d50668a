package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/meltforce/liftlog/internal/ingest"
	"github.com/meltforce/liftlog/internal/ingest/alpha"
	"github.com/meltforce/liftlog/internal/storage"
	"github.com/meltforce/liftlog/internal/upload"
)

var (
	importDryRun   bool
	importRemote   string
	importStateDir string
)

var importCmd = &cobra.Command{
	Use:   "import <csv>...",
	Short: "Import Alpha Progression CSV exports",
	Long: `Import Alpha Progression CSV exports into the history.

Without --remote the files are written to the configured database. With
--remote they are sent to a running liftlog server; files it already
accepted are skipped. --dry-run parses the files and prints what would be
imported.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "parse and summarize without writing anything")
	importCmd.Flags().StringVar(&importRemote, "remote", "", "liftlog server URL to upload to (e.g. https://liftlog.tail1234.ts.net)")
	importCmd.Flags().StringVar(&importStateDir, "state-dir", "", "upload state directory (default ~/.liftlog-upload)")
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	if importRemote != "" {
		return runUpload(ctx, args, log)
	}

	if importDryRun {
		for _, path := range args {
			if err := summarizeExport(cmd.OutOrStdout(), path); err != nil {
				return err
			}
		}
		return nil
	}

	db, err := openDB(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	provider := alpha.NewProvider(db, log)
	for _, path := range args {
		result, err := importFile(ctx, provider, db, path)
		if err != nil {
			return fmt.Errorf("importing %s: %w", path, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d sessions imported, %d already present, %d sets\n",
			path, result.SessionsInserted, result.SessionsSkipped, result.SetsInserted)
	}
	return nil
}

type importLogger interface {
	InsertImportLog(ctx context.Context, log storage.ImportLog) (int64, error)
}

// importFile ingests one export and records the outcome in the import log.
func importFile(ctx context.Context, provider *alpha.Provider, logs importLogger, path string) (*ingest.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	start := time.Now()
	result, importErr := provider.Ingest(ctx, f)
	durationMs := int(time.Since(start).Milliseconds())

	entry := storage.ImportLog{
		Source:     "alpha",
		Filename:   filepath.Base(path),
		Status:     "success",
		DurationMs: &durationMs,
	}
	if result != nil {
		entry.SessionsReceived = result.SessionsReceived
		entry.SessionsInserted = result.SessionsInserted
		entry.SetsInserted = result.SetsInserted
	}
	if importErr != nil {
		msg := importErr.Error()
		entry.Status = "error"
		entry.ErrorMessage = &msg
	}
	if _, err := logs.InsertImportLog(ctx, entry); err != nil {
		return result, fmt.Errorf("recording import log: %w", err)
	}
	return result, importErr
}

// summarizeExport prints one line per session the file would import.
func summarizeExport(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	sessions, err := alpha.Parse(f)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	fmt.Fprintf(w, "%s: %d sessions\n", path, len(sessions))
	for _, s := range sessions {
		d := alpha.Convert(s)
		sets := 0
		for _, ex := range d.Exercises {
			sets += len(ex.Sets)
		}
		fmt.Fprintf(w, "  %s  %-40s %2d exercises %3d sets  %s\n",
			d.Session.StartedAt.Format("2006-01-02 15:04"), d.Session.Name,
			len(d.Exercises), sets, d.Session.ID)
	}
	return nil
}

func runUpload(ctx context.Context, paths []string, log *slog.Logger) error {
	client := upload.NewClient(importRemote)

	var state *upload.StateDB
	if !importDryRun {
		dir := importStateDir
		if dir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("finding home directory: %w", err)
			}
			dir = filepath.Join(home, ".liftlog-upload")
		}
		var err error
		state, err = upload.OpenStateDB(dir)
		if err != nil {
			return err
		}
		defer state.Close()
	}

	stats, err := upload.New(client, state, importDryRun, log).Run(ctx, paths)
	log.Info("upload stats",
		"files_total", stats.FilesTotal,
		"files_uploaded", stats.FilesUploaded,
		"files_skipped", stats.FilesSkipped,
		"files_errored", stats.FilesErrored,
		"sessions_inserted", stats.SessionsInserted,
		"sessions_skipped", stats.SessionsSkipped,
		"sets_inserted", stats.SetsInserted,
	)
	if err != nil {
		return err
	}
	if stats.FilesErrored > 0 {
		return fmt.Errorf("%d of %d files failed", stats.FilesErrored, stats.FilesTotal)
	}
	return nil
}

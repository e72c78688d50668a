// Package upload sends local Alpha Progression exports to a remote liftlog
// server, skipping files the server already accepted.
package upload

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/meltforce/liftlog/internal/ingest/alpha"
)

// Stats tracks upload progress.
type Stats struct {
	FilesTotal    int
	FilesUploaded int
	FilesSkipped  int
	FilesErrored  int

	SessionsInserted int
	SessionsSkipped  int
	SetsInserted     int
}

// Uploader walks export files and POSTs the new ones to the server.
type Uploader struct {
	client *Client
	state  *StateDB
	dryRun bool
	log    *slog.Logger
	stats  Stats
}

// New creates a new Uploader. state may be nil when dryRun is set.
func New(client *Client, state *StateDB, dryRun bool, log *slog.Logger) *Uploader {
	return &Uploader{
		client: client,
		state:  state,
		dryRun: dryRun,
		log:    log,
	}
}

// Run uploads every CSV file among paths. Directories are expanded to the
// *.csv files they contain. A failing file is logged and counted; Run only
// returns an error when the inputs cannot be listed or ctx is cancelled.
func (u *Uploader) Run(ctx context.Context, paths []string) (*Stats, error) {
	files, err := expand(paths)
	if err != nil {
		return &u.stats, err
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return &u.stats, err
		}
		u.stats.FilesTotal++
		if err := u.processFile(ctx, f); err != nil {
			u.log.Warn("upload failed", "file", f, "error", err)
			u.stats.FilesErrored++
		}
	}
	return &u.stats, nil
}

func (u *Uploader) processFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if u.dryRun {
		sessions, err := alpha.Parse(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("parsing: %w", err)
		}
		u.log.Info("dry run", "file", path, "sessions", len(sessions))
		return nil
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	hash, err := HashFile(path)
	if err != nil {
		return fmt.Errorf("hashing: %w", err)
	}
	size := int64(len(data))

	uploaded, err := u.state.IsUploaded(ctx, u.client.ServerURL(), abs, size, hash)
	if err != nil {
		return err
	}
	if uploaded {
		u.stats.FilesSkipped++
		return nil
	}

	result, err := u.client.SendAlpha(ctx, filepath.Base(path), data)
	if err != nil {
		return err
	}
	if err := u.state.MarkUploaded(ctx, u.client.ServerURL(), abs, size, hash); err != nil {
		return err
	}

	u.stats.FilesUploaded++
	u.stats.SessionsInserted += result.SessionsInserted
	u.stats.SessionsSkipped += result.SessionsSkipped
	u.stats.SetsInserted += result.SetsInserted
	u.log.Info("uploaded", "file", path,
		"sessions_inserted", result.SessionsInserted,
		"sessions_skipped", result.SessionsSkipped)
	return nil
}

// expand resolves directories to their CSV files, sorted by name.
func expand(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		var found []string
		for _, e := range entries {
			if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
				found = append(found, filepath.Join(p, e.Name()))
			}
		}
		sort.Strings(found)
		files = append(files, found...)
	}
	return files, nil
}

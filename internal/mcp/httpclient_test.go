package mcp

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/meltforce/liftlog/internal/analytics"
	"github.com/meltforce/liftlog/internal/library"
	"github.com/meltforce/liftlog/internal/server"
	"github.com/meltforce/liftlog/internal/settings"
	"github.com/meltforce/liftlog/internal/storage"
)

// newRemote serves seeded data through the REST server and returns a
// client pointed at it.
func newRemote(t *testing.T) (*HTTPClient, *storage.Memory) {
	t.Helper()
	cfg, err := settings.Open(filepath.Join(t.TempDir(), "settings.db"), analytics.DefaultSettings())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { cfg.Close() })

	store := seed(t)
	srv := server.New(server.Deps{Store: store, Library: library.Default(), Settings: cfg},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return NewHTTPClient(ts.URL + "/"), store
}

// TestHTTPClientMatchesStore verifies the remote client returns what the
// store behind the server holds.
func TestHTTPClientMatchesStore(t *testing.T) {
	ctx := context.Background()
	client, store := newRemote(t)

	templates, err := client.ListTemplates(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(templates) != 1 || templates[0].Name != "Push" {
		t.Fatalf("templates = %+v", templates)
	}
	tmpl, err := client.GetTemplate(ctx, templates[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if tmpl.SetCount() != 3 {
		t.Errorf("template sets = %d, want 3", tmpl.SetCount())
	}

	sessions, err := client.ListSessions(ctx, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	want, _ := store.ListSessions(ctx, 10, 0)
	if len(sessions) != len(want) || sessions[0].ID != want[0].ID {
		t.Errorf("sessions = %+v, want %+v", sessions, want)
	}

	hist, err := client.HistoricalSetsForExercise(ctx, "Bench Press", uuid.Nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(hist) != 4 || hist[0].ExerciseName != "Bench Press" {
		t.Errorf("history = %d sets", len(hist))
	}

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	sets, err := client.CompletedSetsBetween(ctx, start, start.AddDate(0, 1, 0))
	if err != nil {
		t.Fatal(err)
	}
	if len(sets) != 4 {
		t.Errorf("sets in March = %d, want 4", len(sets))
	}

	stats, err := client.GetDataStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalSessions != 2 || stats.TotalTemplates != 1 {
		t.Errorf("stats = %+v", stats)
	}

	cfg, err := client.Settings().Get(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if cfg != analytics.DefaultSettings() {
		t.Errorf("settings = %+v, want defaults", cfg)
	}
}

// TestHTTPClientNotFound verifies a 404 surfaces as storage.ErrNotFound.
func TestHTTPClientNotFound(t *testing.T) {
	client, _ := newRemote(t)
	_, err := client.GetTemplate(context.Background(), 42)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

// TestHTTPClientBackedTools verifies the tool handlers work unchanged on
// top of the remote client.
func TestHTTPClientBackedTools(t *testing.T) {
	client, _ := newRemote(t)
	h := newHandlers(Deps{Data: client, Settings: client.Settings()}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	res, err := h.listTemplates(context.Background(), callTool(nil))
	if err != nil {
		t.Fatal(err)
	}
	var templates []struct {
		Name string `json:"name"`
	}
	decodeResult(t, res, &templates)
	if len(templates) != 1 || templates[0].Name != "Push" {
		t.Errorf("templates = %+v", templates)
	}
}

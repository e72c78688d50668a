package upload

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/meltforce/liftlog/internal/ingest"
)

const exportCSV = `
"Push · Day 1";"2026-03-02 18:00 h";"0:45 hr"
"1. Bench Press · Barbell · 5 reps"
#;KG;REPS;RIR
1;80;5;2
2;80;5;1
`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeExport(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(exportCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// fakeServer answers import requests with a fixed result and counts calls.
// The first failures requests get a 503.
func fakeServer(t *testing.T, failures int32) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if r.URL.Path != "/api/v1/import/alpha" || r.URL.Query().Get("filename") == "" {
			http.Error(w, `{"error":"bad request"}`, http.StatusBadRequest)
			return
		}
		if n <= failures {
			http.Error(w, `{"error":"unavailable"}`, http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(ingest.Result{SessionsReceived: 1, SessionsInserted: 1, SetsReceived: 2, SetsInserted: 2})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newClient(url string) *Client {
	c := NewClient(url)
	c.backoff = 0
	return c
}

// TestRunSkipsUploadedFiles verifies that a file accepted once is not sent
// again on the next run against the same server.
func TestRunSkipsUploadedFiles(t *testing.T) {
	srv, calls := fakeServer(t, 0)
	dir := t.TempDir()
	path := writeExport(t, dir, "export.csv")

	state, err := OpenStateDB(filepath.Join(dir, "state"))
	if err != nil {
		t.Fatal(err)
	}
	defer state.Close()

	ctx := context.Background()
	stats, err := New(newClient(srv.URL), state, false, testLogger()).Run(ctx, []string{path})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := &Stats{FilesTotal: 1, FilesUploaded: 1, SessionsInserted: 1, SetsInserted: 2}
	if diff := cmp.Diff(want, stats); diff != "" {
		t.Errorf("first run stats (-want +got):\n%s", diff)
	}

	stats, err = New(newClient(srv.URL), state, false, testLogger()).Run(ctx, []string{path})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if diff := cmp.Diff(&Stats{FilesTotal: 1, FilesSkipped: 1}, stats); diff != "" {
		t.Errorf("second run stats (-want +got):\n%s", diff)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server calls = %d, want 1", got)
	}
}

// TestRunExpandsDirectories verifies that directories contribute only their
// CSV files.
func TestRunExpandsDirectories(t *testing.T) {
	srv, calls := fakeServer(t, 0)
	dir := t.TempDir()
	writeExport(t, dir, "a.csv")
	writeExport(t, dir, "b.CSV")
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	state, err := OpenStateDB(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer state.Close()

	stats, err := New(newClient(srv.URL), state, false, testLogger()).Run(context.Background(), []string{dir})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.FilesTotal != 2 || stats.FilesUploaded != 2 {
		t.Errorf("stats = %+v, want 2 files uploaded", stats)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("server calls = %d, want 2", got)
	}
}

// TestSendAlphaRetries verifies that 5xx responses are retried and a later
// success is returned.
func TestSendAlphaRetries(t *testing.T) {
	srv, calls := fakeServer(t, 2)
	result, err := newClient(srv.URL).SendAlpha(context.Background(), "export.csv", []byte(exportCSV))
	if err != nil {
		t.Fatalf("SendAlpha: %v", err)
	}
	if result.SessionsInserted != 1 {
		t.Errorf("sessions_inserted = %d, want 1", result.SessionsInserted)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("server calls = %d, want 3", got)
	}
}

// TestSendAlphaGivesUp verifies the error after every attempt failed.
func TestSendAlphaGivesUp(t *testing.T) {
	srv, calls := fakeServer(t, 10)
	if _, err := newClient(srv.URL).SendAlpha(context.Background(), "export.csv", nil); err == nil {
		t.Fatal("expected error")
	}
	if got := calls.Load(); got != maxAttempts {
		t.Errorf("server calls = %d, want %d", got, maxAttempts)
	}
}

// TestSendAlphaClientErrorNotRetried verifies that a 4xx fails at once.
func TestSendAlphaClientErrorNotRetried(t *testing.T) {
	srv, calls := fakeServer(t, 0)
	if _, err := newClient(srv.URL).SendAlpha(context.Background(), "", nil); err == nil {
		t.Fatal("expected error")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server calls = %d, want 1", got)
	}
}

// TestRunDryRun verifies that a dry run parses files without contacting
// the server or touching state.
func TestRunDryRun(t *testing.T) {
	srv, calls := fakeServer(t, 0)
	dir := t.TempDir()
	good := writeExport(t, dir, "good.csv")
	bad := filepath.Join(dir, "bad.csv")
	if err := os.WriteFile(bad, []byte("#;KG;REPS;RIR\n1;80;5;2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	stats, err := New(newClient(srv.URL), nil, true, testLogger()).Run(context.Background(), []string{good, bad})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if diff := cmp.Diff(&Stats{FilesTotal: 2, FilesErrored: 1}, stats); diff != "" {
		t.Errorf("stats (-want +got):\n%s", diff)
	}
	if got := calls.Load(); got != 0 {
		t.Errorf("server calls = %d, want 0", got)
	}
}

// TestRunMissingPath verifies that an unreadable input aborts the run.
func TestRunMissingPath(t *testing.T) {
	_, err := New(NewClient("http://127.0.0.1:0"), nil, true, testLogger()).Run(context.Background(), []string{"/nonexistent/export.csv"})
	if err == nil {
		t.Fatal("expected error")
	}
}

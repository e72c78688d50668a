package settings

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/meltforce/liftlog/internal/analytics"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "settings.db"), analytics.DefaultSettings())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestDefaultsWhenEmpty verifies a fresh file yields the defaults.
func TestDefaultsWhenEmpty(t *testing.T) {
	s := openTest(t)
	got, err := s.Get(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got != analytics.DefaultSettings() {
		t.Errorf("Get = %+v, want defaults", got)
	}
}

// TestPutRoundTrip verifies stored settings survive reopening the file.
func TestPutRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "settings.db")
	s, err := Open(path, analytics.DefaultSettings())
	if err != nil {
		t.Fatal(err)
	}
	want := analytics.Settings{CountWarmupAsEffective: true, CountDropSetAsEffective: true, SecondsPerSet: 45}
	if err := s.Put(ctx, want); err != nil {
		t.Fatalf("Put: %v", err)
	}
	s.Close()

	s, err = Open(path, analytics.DefaultSettings())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	got, err := s.Get(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("Get = %+v, want %+v", got, want)
	}
}

// TestSetSingleKey verifies partial updates and validation.
func TestSetSingleKey(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)
	if err := s.Set(ctx, KeyCountDropSets, "true"); err != nil {
		t.Fatal(err)
	}
	got, _ := s.Get(ctx)
	if !got.CountDropSetAsEffective || got.CountWarmupAsEffective || got.SecondsPerSet != analytics.DefaultSecondsPerSet {
		t.Errorf("Get = %+v", got)
	}

	tests := []struct{ key, value string }{
		{KeyCountWarmup, "maybe"},
		{KeySecondsPerSet, "0"},
		{KeySecondsPerSet, "abc"},
		{"theme", "dark"},
	}
	for _, tt := range tests {
		if err := s.Set(ctx, tt.key, tt.value); err == nil {
			t.Errorf("Set(%q, %q) succeeded, want error", tt.key, tt.value)
		}
	}
	if err := s.Put(ctx, analytics.Settings{}); err == nil {
		t.Error("Put with zero seconds_per_set succeeded")
	}
}

// TestReset verifies defaults return after a reset.
func TestReset(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)
	if err := s.Set(ctx, KeyCountWarmup, "true"); err != nil {
		t.Fatal(err)
	}
	if err := s.Reset(ctx); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.Get(ctx); got.CountWarmupAsEffective {
		t.Error("reset did not clear stored value")
	}
}

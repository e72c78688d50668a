// Package settings stores the user's analytics preferences in a local
// SQLite file.
package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "modernc.org/sqlite"

	"github.com/meltforce/liftlog/internal/analytics"
)

// Keys of the settings table.
const (
	KeyCountWarmup   = "count_warmup_as_effective"
	KeyCountDropSets = "count_drop_set_as_effective"
	KeySecondsPerSet = "seconds_per_set"
)

// ErrInvalid is returned for unknown keys and out-of-range values.
var ErrInvalid = errors.New("invalid setting")

// Store reads and writes settings. Keys missing from the file fall back to
// the defaults it was opened with.
type Store struct {
	db       *sql.DB
	defaults analytics.Settings
}

// Open opens (or creates) the SQLite settings database at path.
func Open(path string, defaults analytics.Settings) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating settings dir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening settings db: %w", err)
	}
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS settings (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating settings table: %w", err)
	}

	return &Store{db: db, defaults: defaults}, nil
}

// Get returns the current settings.
func (s *Store) Get(ctx context.Context) (analytics.Settings, error) {
	out := s.defaults
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return out, fmt.Errorf("querying settings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return out, fmt.Errorf("scanning setting: %w", err)
		}
		if err := apply(&out, key, value); err != nil {
			return out, err
		}
	}
	return out, rows.Err()
}

// Put stores every field of v.
func (s *Store) Put(ctx context.Context, v analytics.Settings) error {
	if v.SecondsPerSet <= 0 {
		return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalid, KeySecondsPerSet, v.SecondsPerSet)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning settings update: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for key, value := range map[string]string{
		KeyCountWarmup:   strconv.FormatBool(v.CountWarmupAsEffective),
		KeyCountDropSets: strconv.FormatBool(v.CountDropSetAsEffective),
		KeySecondsPerSet: strconv.Itoa(v.SecondsPerSet),
	} {
		if err := set(ctx, tx, key, value); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing settings: %w", err)
	}
	return nil
}

// Set stores a single key after validating its value.
func (s *Store) Set(ctx context.Context, key, value string) error {
	var probe analytics.Settings
	if err := apply(&probe, key, value); err != nil {
		return err
	}
	return set(ctx, s.db, key, value)
}

// Reset removes all stored values so the defaults apply again.
func (s *Store) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM settings`); err != nil {
		return fmt.Errorf("resetting settings: %w", err)
	}
	return nil
}

// Close closes the settings database.
func (s *Store) Close() error {
	return s.db.Close()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func set(ctx context.Context, db execer, key, value string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value)
	if err != nil {
		return fmt.Errorf("storing setting %s: %w", key, err)
	}
	return nil
}

func apply(s *analytics.Settings, key, value string) error {
	switch key {
	case KeyCountWarmup, KeyCountDropSets:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w %s: %w", ErrInvalid, key, err)
		}
		if key == KeyCountWarmup {
			s.CountWarmupAsEffective = b
		} else {
			s.CountDropSetAsEffective = b
		}
	case KeySecondsPerSet:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w %s: %w", ErrInvalid, key, err)
		}
		if n <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalid, key, n)
		}
		s.SecondsPerSet = n
	default:
		return fmt.Errorf("%w: unknown key %q", ErrInvalid, key)
	}
	return nil
}

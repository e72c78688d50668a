// Package library maps exercise names to the muscles they train.
//
// The catalog is a TOML file of [[exercise]] tables. A built-in catalog is
// embedded in the binary; an optional user file extends or overrides it and
// can be reloaded while the server runs.
package library

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
)

//go:embed default.toml
var defaultCatalog string

// Exercise is one catalog entry.
type Exercise struct {
	Name             string   `toml:"name" json:"name"`
	PrimaryMuscle    string   `toml:"primary_muscle" json:"primary_muscle"`
	AuxiliaryMuscles []string `toml:"auxiliary_muscles" json:"auxiliary_muscles,omitempty"`
}

type file struct {
	Exercises []Exercise `toml:"exercise"`
}

// Catalog is a concurrency-safe exercise lookup table.
type Catalog struct {
	path string

	mu        sync.RWMutex
	exercises map[string]Exercise
}

// Default returns a catalog holding only the built-in exercises.
func Default() *Catalog {
	entries, err := parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("library: built-in catalog: %v", err))
	}
	c := &Catalog{}
	c.exercises = merge(entries, nil)
	return c
}

// Load returns the built-in catalog extended by the TOML file at path.
// An empty path or a missing file yields the built-in catalog.
func Load(path string) (*Catalog, error) {
	c := Default()
	c.path = path
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload re-reads the user file. On error the current catalog is kept.
func (c *Catalog) Reload() error {
	if c.path == "" {
		return nil
	}
	data, err := os.ReadFile(c.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading exercise library %s: %w", c.path, err)
	}
	user, err := parse(string(data))
	if err != nil {
		return fmt.Errorf("parsing exercise library %s: %w", c.path, err)
	}
	builtin, _ := parse(defaultCatalog)

	exercises := merge(builtin, user)
	c.mu.Lock()
	c.exercises = exercises
	c.mu.Unlock()
	return nil
}

func parse(data string) ([]Exercise, error) {
	var f file
	if _, err := toml.Decode(data, &f); err != nil {
		return nil, err
	}
	for i, ex := range f.Exercises {
		if strings.TrimSpace(ex.Name) == "" {
			return nil, fmt.Errorf("exercise %d: missing name", i+1)
		}
		if strings.TrimSpace(ex.PrimaryMuscle) == "" {
			return nil, fmt.Errorf("exercise %q: missing primary_muscle", ex.Name)
		}
	}
	return f.Exercises, nil
}

func merge(builtin, user []Exercise) map[string]Exercise {
	m := make(map[string]Exercise, len(builtin)+len(user))
	for _, ex := range builtin {
		m[key(ex.Name)] = ex
	}
	for _, ex := range user {
		m[key(ex.Name)] = ex
	}
	return m
}

func key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Lookup finds an exercise by name, ignoring case and surrounding space.
func (c *Catalog) Lookup(name string) (Exercise, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ex, ok := c.exercises[key(name)]
	return ex, ok
}

// Muscles implements analytics.MuscleLookup.
func (c *Catalog) Muscles(name string) (string, []string, bool) {
	ex, ok := c.Lookup(name)
	if !ok {
		return "", nil, false
	}
	return ex.PrimaryMuscle, ex.AuxiliaryMuscles, true
}

// Exercises returns all entries sorted by name.
func (c *Catalog) Exercises() []Exercise {
	c.mu.RLock()
	out := make([]Exercise, 0, len(c.exercises))
	for _, ex := range c.exercises {
		out = append(out, ex)
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return key(out[i].Name) < key(out[j].Name) })
	return out
}

// Path returns the user file backing the catalog, if any.
func (c *Catalog) Path() string {
	return c.path
}

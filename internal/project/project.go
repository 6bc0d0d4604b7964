// Package project owns the .filigree/ directory layout: discovering an
// existing project from the working directory tree, and initializing a
// new one. It mirrors the reference's .beads/ discovery and layout
// conventions, adapted to Filigree's flatter, single-purpose directory.
package project

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DirName is the project directory's name, analogous to the reference's
// ".beads".
const DirName = ".filigree"

// Config is the persisted project configuration at config.json.
type Config struct {
	IssuePrefix   string `json:"issue_prefix"`
	FindingGCDays int    `json:"finding_gc_days"`
	CreatedAt     string `json:"created_at"`
}

// DefaultConfig returns the configuration written by Init for a new project.
func DefaultConfig(prefix string) Config {
	return Config{
		IssuePrefix:   prefix,
		FindingGCDays: 7,
		CreatedAt:     time.Now().UTC().Format(time.RFC3339),
	}
}

// Layout is a resolved project directory with the paths of its fixed
// members.
type Layout struct {
	Root         string // the .filigree directory itself
	ConfigPath   string
	DatabasePath string
	ContextPath  string
	TemplatesDir string
	PacksDir     string
}

func layoutFor(root string) Layout {
	return Layout{
		Root:         root,
		ConfigPath:   filepath.Join(root, "config.json"),
		DatabasePath: filepath.Join(root, "filigree.db"),
		ContextPath:  filepath.Join(root, "context.md"),
		TemplatesDir: filepath.Join(root, "templates"),
		PacksDir:     filepath.Join(root, "packs"),
	}
}

// Find walks up from startDir looking for a .filigree directory, the way
// the reference searches for .beads. Returns an error if none is found
// by the filesystem root.
func Find(startDir string) (Layout, error) {
	dir := startDir
	for {
		candidate := filepath.Join(dir, DirName)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return layoutFor(candidate), nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return Layout{}, fmt.Errorf("no %s directory found above %s", DirName, startDir)
		}
		dir = parent
	}
}

// Init creates a new project rooted at filepath.Join(parentDir, DirName).
// It stages every member under a temporary sibling directory and renames
// it into place atomically, so a crash or interrupted init never leaves a
// half-written .filigree behind for another process to pick up.
func Init(ctx context.Context, parentDir, issuePrefix string) (Layout, error) {
	finalRoot := filepath.Join(parentDir, DirName)
	if _, err := os.Stat(finalRoot); err == nil {
		return Layout{}, fmt.Errorf("%s already exists", finalRoot)
	}

	stagingRoot := finalRoot + ".tmp"
	if err := os.RemoveAll(stagingRoot); err != nil {
		return Layout{}, fmt.Errorf("clearing stale staging directory: %w", err)
	}
	if err := os.MkdirAll(stagingRoot, 0o755); err != nil {
		return Layout{}, fmt.Errorf("creating staging directory: %w", err)
	}
	defer os.RemoveAll(stagingRoot)

	layout := layoutFor(stagingRoot)
	for _, dir := range []string{layout.TemplatesDir, layout.PacksDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Layout{}, fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	cfg := DefaultConfig(issuePrefix)
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return Layout{}, fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(layout.ConfigPath, data, 0o644); err != nil {
		return Layout{}, fmt.Errorf("writing config.json: %w", err)
	}
	if err := os.WriteFile(layout.ContextPath, []byte("# Filigree project context\n\n(no issues yet)\n"), 0o644); err != nil {
		return Layout{}, fmt.Errorf("writing context.md: %w", err)
	}

	if err := os.Rename(stagingRoot, finalRoot); err != nil {
		return Layout{}, fmt.Errorf("finalizing project directory: %w", err)
	}
	return layoutFor(finalRoot), nil
}

// LoadConfig reads config.json from an already-resolved Layout.
func LoadConfig(layout Layout) (Config, error) {
	data, err := os.ReadFile(layout.ConfigPath)
	if err != nil {
		return Config{}, fmt.Errorf("reading config.json: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config.json: %w", err)
	}
	if cfg.FindingGCDays == 0 {
		cfg.FindingGCDays = 7
	}
	return cfg, nil
}

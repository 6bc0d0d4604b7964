// Package bootstrap wires a .filigree project directory into a fully
// constructed engine, shared by cmd/filigree and cmd/filigree-mcp so
// neither entrypoint duplicates the project->store->templates->engine
// wiring order.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tachyon-beep/filigree/internal/engine"
	"github.com/tachyon-beep/filigree/internal/metrics"
	"github.com/tachyon-beep/filigree/internal/project"
	"github.com/tachyon-beep/filigree/internal/storage/sqlite"
	"github.com/tachyon-beep/filigree/internal/summary"
	"github.com/tachyon-beep/filigree/internal/templates"
	"github.com/tachyon-beep/filigree/internal/types"
)

const metricsInterval = 30 * time.Second

// App bundles a project's resolved layout with its live storage, template,
// and engine handles. Entrypoints build one App at startup and defer
// Close.
type App struct {
	Layout Layout
	Engine *engine.Engine
	Store  *sqlite.Store
	Tmpls  *templates.Manager
	Logger *slog.Logger

	closeMetrics func(context.Context) error
}

// Layout re-exports project.Layout so callers importing bootstrap don't
// also need internal/project for the common case.
type Layout = project.Layout

// Open discovers the .filigree project above dir, or initializes a new
// one there when create is true and none is found, then wires its
// storage, templates, engine, summary refresher, and metrics recorder
// together. logger defaults to slog.Default() when nil.
func Open(ctx context.Context, dir string, create bool, issuePrefix string, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	layout, err := project.Find(dir)
	if err != nil {
		if !create {
			return nil, fmt.Errorf("locating .filigree project: %w", err)
		}
		layout, err = project.Init(ctx, dir, issuePrefix)
		if err != nil {
			return nil, fmt.Errorf("initializing .filigree project: %w", err)
		}
	}

	cfg, err := project.LoadConfig(layout)
	if err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	store, err := sqlite.Open(ctx, layout.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	tmpls, err := templates.NewManager(layout.Root)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	e := engine.New(store, tmpls, cfg.IssuePrefix)
	e.Summary = summary.New(store, tmpls, layout.ContextPath)

	recorder, closeMetrics, err := metrics.Init(ctx, metricsInterval, func(ctx context.Context) (int64, error) {
		ready, err := e.GetReady(ctx, types.WorkFilter{})
		if err != nil {
			return 0, err
		}
		return int64(len(ready)), nil
	})
	if err != nil {
		logger.Warn("metrics disabled", "error", err)
	} else {
		e.Metrics = recorder
	}

	return &App{
		Layout:       layout,
		Engine:       e,
		Store:        store,
		Tmpls:        tmpls,
		Logger:       logger,
		closeMetrics: closeMetrics,
	}, nil
}

// Close flushes metrics and closes the database handle. Entrypoints
// should defer this immediately after a successful Open.
func (a *App) Close(ctx context.Context) error {
	if a.closeMetrics != nil {
		_ = a.closeMetrics(ctx)
	}
	return a.Store.Close()
}

package cmd

import (
	"fmt"
	"io"

	"github.com/hugo-lorenzo-mato/actionrun/internal/catalog"
	"github.com/hugo-lorenzo-mato/actionrun/internal/config"
	"github.com/hugo-lorenzo-mato/actionrun/internal/core"
	"github.com/hugo-lorenzo-mato/actionrun/internal/engine"
	"github.com/hugo-lorenzo-mato/actionrun/internal/events"
	"github.com/hugo-lorenzo-mato/actionrun/internal/logging"
	"github.com/hugo-lorenzo-mato/actionrun/internal/runstore"
	"github.com/hugo-lorenzo-mato/actionrun/internal/scheduler"
)

// app holds the wired components of one process.
type app struct {
	cfg     *config.Config
	logger  *logging.Logger
	catalog *catalog.Live
	store   core.RunStore
	bus     *events.EventBus
	timer   *scheduler.WallTimer
	engine  *engine.Engine
}

// newLogger builds the process logger from configuration.
func newLogger(cfg *config.Config, out io.Writer) *logging.Logger {
	return logging.New(logging.Config{
		Level:          cfg.Log.Level,
		Format:         cfg.Log.Format,
		Output:         out,
		RedactPatterns: cfg.Log.RedactPatterns,
	})
}

// loadCatalog returns the catalog at path, or the built-in one when path is
// empty.
func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default(), nil
	}
	c, err := catalog.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	return c, nil
}

// buildApp wires store, scheduler and engine from cfg.
func buildApp(cfg *config.Config, logger *logging.Logger) (*app, error) {
	cat, err := loadCatalog(cfg.Catalog.Path)
	if err != nil {
		return nil, err
	}

	store, err := runstore.Open(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("opening run store: %w", err)
	}

	minDelay, maxDelay, err := cfg.Scheduler.Delays()
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	bus := events.New(cfg.Events.BufferSize)
	timer := scheduler.NewWallTimer()
	live := catalog.NewLive(cat)
	sched, err := scheduler.New(store, live,
		scheduler.WithTimer(timer),
		scheduler.WithDelay(minDelay, maxDelay),
		scheduler.WithEventBus(bus),
		scheduler.WithLogger(logger),
	)
	if err != nil {
		bus.Close()
		_ = store.Close()
		return nil, err
	}

	eng := engine.New(live, store, sched,
		engine.WithDefaultSource(cfg.Engine.DefaultSource),
		engine.WithEventBus(bus),
		engine.WithLogger(logger),
	)

	return &app{
		cfg:     cfg,
		logger:  logger,
		catalog: live,
		store:   store,
		bus:     bus,
		timer:   timer,
		engine:  eng,
	}, nil
}

// Close releases the store and event bus.
func (a *app) Close() error {
	a.bus.Close()
	return a.store.Close()
}

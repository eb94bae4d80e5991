package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hugo-lorenzo-mato/actionrun/internal/core"
	"github.com/hugo-lorenzo-mato/actionrun/internal/logging"
)

// Live holds the current catalog and lets it be replaced while runs are
// being resolved. Readers always see one complete catalog.
type Live struct {
	current atomic.Pointer[Catalog]
}

var _ core.ActionLookup = (*Live)(nil)

// NewLive wraps c.
func NewLive(c *Catalog) *Live {
	l := &Live{}
	l.current.Store(c)
	return l
}

// Catalog returns the catalog in effect.
func (l *Live) Catalog() *Catalog { return l.current.Load() }

// Replace swaps in c.
func (l *Live) Replace(c *Catalog) { l.current.Store(c) }

func (l *Live) Find(id string) (core.ActionDefinition, bool) { return l.Catalog().Find(id) }
func (l *Live) List() []core.ActionDefinition                { return l.Catalog().List() }
func (l *Live) IDs() []string                                { return l.Catalog().IDs() }
func (l *Live) Len() int                                     { return l.Catalog().Len() }

// DefaultDebounce collapses the burst of events editors emit on save.
const DefaultDebounce = 200 * time.Millisecond

// Watcher reloads a catalog file into a Live catalog when the file changes.
type Watcher struct {
	path     string
	live     *Live
	logger   *logging.Logger
	debounce time.Duration
	fs       *fsnotify.Watcher
}

// NewWatcher watches the directory holding path. Watching the directory
// rather than the file keeps working across rename-based saves.
func NewWatcher(path string, live *Live, logger *logging.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving catalog path: %w", err)
	}
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := fs.Add(filepath.Dir(abs)); err != nil {
		_ = fs.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Watcher{
		path:     abs,
		live:     live,
		logger:   logger.WithComponent("catalog"),
		debounce: DefaultDebounce,
		fs:       fs,
	}, nil
}

// Run processes file events until ctx ends. It always returns nil once the
// context is done.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fs.Close()

	var reload <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				reload = time.After(w.debounce)
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("catalog watcher error", "error", err)
		case <-reload:
			reload = nil
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	c, err := LoadFile(w.path)
	if err != nil {
		w.logger.Warn("catalog reload failed, keeping previous catalog",
			"path", w.path, "error", err)
		return
	}
	w.live.Replace(c)
	w.logger.Info("catalog reloaded", "path", w.path, "actions", c.Len())
}

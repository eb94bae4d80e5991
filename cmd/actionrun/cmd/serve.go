package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hugo-lorenzo-mato/actionrun/internal/api"
	"github.com/hugo-lorenzo-mato/actionrun/internal/catalog"
	"github.com/hugo-lorenzo-mato/actionrun/internal/config"
	"github.com/hugo-lorenzo-mato/actionrun/internal/diagnostics"
	"github.com/hugo-lorenzo-mato/actionrun/internal/events"
	"github.com/hugo-lorenzo-mato/actionrun/internal/scheduler"
)

var (
	serveHost   string
	servePort   int
	serveNoCORS bool
	serveDrain  time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API server.

Runs are accepted at /api/v1/runs and progress is streamed at /api/v1/events.
Every /api/v1 request must carry an X-Owner-Token header.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "", "host to bind to (overrides config)")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "port to listen on (overrides config)")
	serveCmd.Flags().BoolVar(&serveNoCORS, "no-cors", false, "disable CORS headers")
	serveCmd.Flags().DurationVar(&serveDrain, "drain-timeout", 5*time.Second,
		"how long to wait for in-flight runs on shutdown")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveNoCORS {
		cfg.Server.CORS = false
	}

	logger := newLogger(cfg, os.Stdout)

	a, err := buildApp(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			logger.Warn("closing run store", "error", cerr)
		}
	}()

	timeout, err := cfg.Server.Timeout()
	if err != nil {
		return err
	}
	faults := newFaultCounter(a.bus)

	server := api.NewServer(a.engine,
		api.WithLogger(logger),
		api.WithEventBus(a.bus),
		api.WithDiagnostics(newCollector(cfg, a, faults.Count)),
		api.WithCORS(cfg.Server.CORS, cfg.Server.AllowedOrigins),
		api.WithRequestTimeout(timeout),
	)

	var watcher *catalog.Watcher
	if cfg.Catalog.Watch {
		watcher, err = catalog.NewWatcher(cfg.Catalog.Path, a.catalog, logger)
		if err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := cfg.Server.Addr()
	logger.Info("actionrun starting",
		"version", appVersion,
		"addr", addr,
		"store", cfg.Store.Backend,
		"actions", a.catalog.Len(),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s\n", addr)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.ListenAndServe(gctx, addr)
	})
	g.Go(func() error { return faults.Run(gctx) })
	if watcher != nil {
		g.Go(func() error { return watcher.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		if n := drain(a.timer, serveDrain); n > 0 {
			logger.Warn("shutdown with runs still in flight", "count", n)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	logger.Info("actionrun stopped")
	return nil
}

// drain waits up to timeout for armed completions to fire and returns how
// many were still pending when it gave up.
func drain(timer *scheduler.WallTimer, timeout time.Duration) int {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		n := timer.InFlight()
		if n == 0 {
			return 0
		}
		select {
		case <-ctx.Done():
			return n
		case <-ticker.C:
		}
	}
}

func newCollector(cfg *config.Config, a *app, faults func() int64) *diagnostics.Collector {
	opts := []diagnostics.CollectorOption{diagnostics.WithFaultCount(faults)}
	if dir := storeDir(cfg.Store); dir != "" {
		opts = append(opts, diagnostics.WithDiskPath(dir))
	}
	return diagnostics.NewCollector(a.timer.InFlight, opts...)
}

// faultCounter tallies run_fault events. It subscribes on the priority path,
// which never drops.
type faultCounter struct {
	bus *events.EventBus
	ch  <-chan events.Event
	n   atomic.Int64
}

func newFaultCounter(bus *events.EventBus) *faultCounter {
	return &faultCounter{bus: bus, ch: bus.SubscribePriority(events.TypeRunFault)}
}

// Count returns the faults seen so far.
func (f *faultCounter) Count() int64 { return f.n.Load() }

// Run counts until ctx ends or the bus closes.
func (f *faultCounter) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			// A priority publisher may be blocked on f.ch while holding the
			// bus read lock, so keep receiving until Unsubscribe closes it.
			go f.bus.Unsubscribe(f.ch)
			for range f.ch {
				f.n.Add(1)
			}
			return nil
		case _, ok := <-f.ch:
			if !ok {
				return nil
			}
			f.n.Add(1)
		}
	}
}

// storeDir returns the directory of a file-backed sqlite store, or "" for
// in-memory stores.
func storeDir(cfg config.StoreConfig) string {
	if cfg.Backend != config.StoreBackendSQLite {
		return ""
	}
	dsn := strings.TrimPrefix(cfg.DSN, "file:")
	if i := strings.IndexByte(dsn, '?'); i >= 0 {
		if strings.Contains(dsn[i:], "mode=memory") {
			return ""
		}
		dsn = dsn[:i]
	}
	if dsn == "" || dsn == ":memory:" {
		return ""
	}
	abs, err := filepath.Abs(dsn)
	if err != nil {
		return ""
	}
	return filepath.Dir(abs)
}

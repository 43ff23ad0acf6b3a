package commands

import (
	"context"
	stdErrors "errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"git.home.luguber.info/inful/texbuild/internal/errors"
	"git.home.luguber.info/inful/texbuild/internal/logfields"
	"git.home.luguber.info/inful/texbuild/internal/metrics"
	"git.home.luguber.info/inful/texbuild/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	BuildFlags
	Pattern     []string      `name:"pattern" help:"Glob of source files to watch (repeatable, overrides watch.patterns)"`
	Debounce    time.Duration `help:"Quiet period before rebuilding (overrides watch.debounce)"`
	Interval    time.Duration `help:"Also rebuild on this interval (overrides watch.interval)"`
	MetricsAddr string        `name:"metrics-addr" help:"Serve Prometheus metrics on this address (overrides metrics.listen_addr)"`
}

func (w *WatchCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root.Config, &w.BuildFlags)
	if err != nil {
		return err
	}
	if len(w.Pattern) > 0 {
		cfg.Watch.Patterns = w.Pattern
	}
	if w.Debounce > 0 {
		cfg.Watch.Debounce = w.Debounce
	}
	if w.Interval > 0 {
		cfg.Watch.Interval = w.Interval
	}
	if w.MetricsAddr != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.ListenAddr = w.MetricsAddr
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	s := newSession(cfg, os.Stdout, nil)
	defer s.Close()

	if s.registry != nil && cfg.Metrics.ListenAddr != "" {
		srv := &http.Server{
			Addr:              cfg.Metrics.ListenAddr,
			Handler:           metrics.HTTPHandler(s.registry),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			slog.Info("Serving metrics", slog.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !stdErrors.Is(err, http.ErrServerClosed) {
				slog.Error("Metrics server failed", logfields.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	rootDir := filepath.Dir(absPath(cfg.Build.RootFile))
	watcher, err := watch.New(watch.Options{
		Root:     rootDir,
		Patterns: cfg.Watch.Patterns,
		Ignore:   []string{cfg.Build.OutputDirectory, cfg.Build.AuxDirectory},
		Debounce: cfg.Watch.Debounce,
		Interval: cfg.Watch.Interval,
	}, func(ctx context.Context, _ string) error {
		_, err := s.build(ctx)
		return err
	})
	if err != nil {
		return errors.Wrap(err, errors.CategoryConfig, errors.SeverityFatal, "failed to start watcher")
	}
	return watcher.Run(ctx)
}

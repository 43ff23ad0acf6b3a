package commands

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/texbuild/internal/builder"
	"git.home.luguber.info/inful/texbuild/internal/config"
	"git.home.luguber.info/inful/texbuild/internal/errors"
	"git.home.luguber.info/inful/texbuild/internal/history"
	"git.home.luguber.info/inful/texbuild/internal/logfields"
	"git.home.luguber.info/inful/texbuild/internal/metrics"
	"git.home.luguber.info/inful/texbuild/internal/notify"
	"git.home.luguber.info/inful/texbuild/internal/orchestrator"
	"git.home.luguber.info/inful/texbuild/internal/process"
	"git.home.luguber.info/inful/texbuild/internal/vcs"
)

// session holds the collaborators shared by every build of one command run.
type session struct {
	cfg       *config.Config
	driver    *orchestrator.Driver
	registry  *prom.Registry
	store     *history.SQLiteStore
	publisher *notify.Publisher
}

// newSession wires the driver and its observers from cfg. Optional
// integrations that fail to start are logged and skipped.
func newSession(cfg *config.Config, out io.Writer, runner process.Runner) *session {
	s := &session{cfg: cfg}
	if runner == nil {
		runner = process.NewExecRunner(cfg.Platform.TexPath)
	}

	opts := []orchestrator.Option{
		orchestrator.WithDisplayLog(cfg.Builder.DisplayLog),
		orchestrator.WithTexPath(cfg.Platform.UseTexPathOrDefault()),
		orchestrator.WithObserver(orchestrator.LogObserver{}),
	}

	if cfg.Metrics.Enabled {
		s.registry = prom.NewRegistry()
		opts = append(opts, orchestrator.WithRecorder(metrics.NewPrometheusRecorder(s.registry)))
	}

	if cfg.History.Enabled {
		path := historyPath(cfg)
		store, err := history.Open(path)
		if err != nil {
			slog.Warn("Build history disabled", logfields.Path(path), logfields.Error(err))
		} else {
			s.store = store
			opts = append(opts, orchestrator.WithObserver(orchestrator.HistoryObserver{Recorder: history.NewRecorder(store)}))
		}
	}

	if cfg.Notify.NATSURL != "" {
		pub, err := notify.Connect(cfg.Notify.NATSURL, cfg.Notify.Subject)
		if err != nil {
			slog.Warn("Build notifications disabled", logfields.Error(err))
		} else {
			s.publisher = pub
			opts = append(opts, orchestrator.WithObserver(orchestrator.NotifyObserver{Publisher: pub}))
		}
	}

	s.driver = orchestrator.NewDriver(runner, out, opts...)
	return s
}

// build constructs a fresh builder and drives it once.
func (s *session) build(ctx context.Context) (*orchestrator.Report, error) {
	b, err := builder.New(s.cfg.Build.Builder, s.cfg.Settings())
	if err != nil {
		return nil, err
	}

	info := orchestrator.BuildInfo{
		Builder:  s.cfg.Build.Builder,
		Engine:   s.cfg.Build.Engine,
		RootFile: s.cfg.Build.RootFile,
	}
	if rev, ok, err := vcs.Lookup(b.TexDir()); err != nil {
		slog.Debug("Could not determine source revision", logfields.Directory(b.TexDir()), logfields.Error(err))
	} else if ok {
		info.Revision = rev.Short()
	}

	report, err := s.driver.Run(ctx, b, info)
	s.writeTextfile()
	if err != nil {
		return report, err
	}
	if n := report.FailedSteps(); n > 0 {
		return report, errors.New(errors.CategoryProcess, errors.SeverityError, "one or more tool invocations failed").
			WithContext("failed", n).
			WithContext("build_id", report.BuildID)
	}
	return report, nil
}

func (s *session) writeTextfile() {
	if s.registry == nil || s.cfg.Metrics.Textfile == "" {
		return
	}
	if err := metrics.WriteTextfile(s.cfg.Metrics.Textfile, s.registry); err != nil {
		slog.Warn("Failed to write metrics textfile", logfields.Path(s.cfg.Metrics.Textfile), logfields.Error(err))
	}
}

func (s *session) Close() {
	s.publisher.Close()
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			slog.Warn("Failed to close history store", logfields.Error(err))
		}
	}
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// historyPath resolves a relative history path against the document directory.
func historyPath(cfg *config.Config) string {
	path := cfg.History.Path
	if !filepath.IsAbs(path) && cfg.Build.RootFile != "" {
		path = filepath.Join(filepath.Dir(absPath(cfg.Build.RootFile)), path)
	}
	return path
}

// Package watch rebuilds a document when its sources change and, optionally,
// on a fixed interval.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/texbuild/internal/logfields"
)

// BuildFunc runs one build. reason describes what triggered it.
type BuildFunc func(ctx context.Context, reason string) error

// Options configures a Watcher.
type Options struct {
	// Root is the directory tree to watch.
	Root string
	// Patterns are doublestar globs matched against paths relative to Root.
	Patterns []string
	// Ignore lists directories (absolute or relative to Root) never watched,
	// typically the output and auxiliary directories.
	Ignore   []string
	Debounce time.Duration
	// Interval schedules periodic rebuilds when positive.
	Interval time.Duration
}

// Watcher monitors a source tree and serializes rebuilds.
type Watcher struct {
	opts    Options
	build   BuildFunc
	watcher *fsnotify.Watcher
	prints  *fingerprints
	ignore  map[string]bool

	triggerChan chan string
	mu          sync.Mutex
	pending     string
	timer       *time.Timer
}

// New creates a Watcher; call Run to start it.
func New(opts Options, build BuildFunc) (*Watcher, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve watch root: %w", err)
	}
	opts.Root = root
	for _, p := range opts.Patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid watch pattern %q", p)
		}
	}

	ignore := make(map[string]bool, len(opts.Ignore))
	for _, dir := range opts.Ignore {
		if dir == "" {
			continue
		}
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(root, dir)
		}
		ignore[filepath.Clean(dir)] = true
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	return &Watcher{
		opts:        opts,
		build:       build,
		watcher:     fw,
		prints:      newFingerprints(),
		ignore:      ignore,
		triggerChan: make(chan string, 1),
	}, nil
}

// Matches reports whether path (absolute or relative to the root) is a
// watched source file.
func (w *Watcher) Matches(path string) bool {
	rel := path
	if filepath.IsAbs(path) {
		r, err := filepath.Rel(w.opts.Root, path)
		if err != nil || strings.HasPrefix(r, "..") {
			return false
		}
		rel = r
	}
	rel = filepath.ToSlash(rel)
	for _, p := range w.opts.Patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

func (w *Watcher) skipDir(path string) bool {
	if w.ignore[filepath.Clean(path)] {
		return true
	}
	base := filepath.Base(path)
	return path != w.opts.Root && strings.HasPrefix(base, ".")
}

// addTree registers dir and every subdirectory with fsnotify and records the
// fingerprints of matching files.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if w.skipDir(path) {
				return filepath.SkipDir
			}
			if err := w.watcher.Add(path); err != nil {
				return fmt.Errorf("failed to watch %s: %w", path, err)
			}
			return nil
		}
		if w.Matches(path) {
			w.prints.seed(path)
		}
		return nil
	})
}

// Run performs an initial build, then rebuilds on changes until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() { _ = w.watcher.Close() }()

	if err := w.addTree(w.opts.Root); err != nil {
		return err
	}
	slog.Info("Watching for changes", logfields.Directory(w.opts.Root), slog.Any("patterns", w.opts.Patterns))

	if w.opts.Interval > 0 {
		s, err := w.schedule(w.opts.Interval)
		if err != nil {
			return err
		}
		s.Start()
		defer func() { _ = s.Shutdown() }()
	}

	go w.watchLoop(ctx)

	w.runBuild(ctx, "initial build")
	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			return nil
		case reason := <-w.triggerChan:
			w.runBuild(ctx, reason)
		}
	}
}

func (w *Watcher) runBuild(ctx context.Context, reason string) {
	slog.Info("Starting build", slog.String("reason", reason))
	if err := w.build(ctx, reason); err != nil {
		slog.Error("Build failed", logfields.Error(err))
	}
}

// schedule registers the periodic rebuild job.
func (w *Watcher) schedule(interval time.Duration) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { w.trigger("scheduled rebuild") }),
		gocron.WithName("periodic-rebuild"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("failed to create periodic build job: %w", err)
	}
	return s, nil
}

func (w *Watcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("File watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&fsnotify.Create == fsnotify.Create {
		if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
			if !w.skipDir(event.Name) {
				if err := w.addTree(event.Name); err != nil {
					slog.Warn("Failed to watch new directory", logfields.Directory(event.Name), logfields.Error(err))
				}
			}
			return
		}
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	if !w.Matches(event.Name) {
		return
	}
	if !w.prints.changed(event.Name) {
		slog.Debug("Content unchanged, skipping", logfields.Path(event.Name))
		return
	}
	rel, err := filepath.Rel(w.opts.Root, event.Name)
	if err != nil {
		rel = event.Name
	}
	slog.Debug("Source change detected", logfields.Path(rel), slog.String("op", event.Op.String()))
	w.debounce(rel + " changed")
}

// debounce delays a trigger until no further change arrives within the
// debounce window.
func (w *Watcher) debounce(reason string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending = reason
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.opts.Debounce, func() {
		w.mu.Lock()
		r := w.pending
		w.mu.Unlock()
		w.trigger(r)
	})
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

// trigger queues a build; a build already queued absorbs the request.
func (w *Watcher) trigger(reason string) {
	select {
	case w.triggerChan <- reason:
	default:
	}
}

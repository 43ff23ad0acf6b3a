package builder

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/texbuild/internal/errors"
	"git.home.luguber.info/inful/texbuild/internal/logfields"
)

// Base holds the configuration shared by all strategies and implements the
// step sequencing protocol. Strategies supply the decide function.
type Base struct {
	name     string
	settings Settings

	texRoot  string
	texDir   string
	texName  string
	baseName string
	texExt   string
	jobName  string
	engine   string
	options  []string

	// Invocation forms are relative to texDir when nested under it; the
	// *Full forms are always absolute.
	outputDirectory     string
	outputDirectoryFull string
	auxDirectory        string
	auxDirectoryFull    string

	out      string
	started  bool
	awaiting bool
	queued   *Step
	err      error
	decide   func() (*Step, error)
}

func newBase(name string, s Settings) (Base, error) {
	if strings.TrimSpace(s.RootFile) == "" {
		return Base{}, errors.ConfigRequired("root_file")
	}
	root, err := filepath.Abs(s.RootFile)
	if err != nil {
		return Base{}, errors.Wrap(err, errors.CategoryConfig, errors.SeverityFatal, "resolve root file").
			WithContext("root_file", s.RootFile)
	}

	b := Base{
		name:     name,
		settings: s,
		texRoot:  root,
		engine:   s.Engine,
		options:  append([]string(nil), s.Options...),
	}
	b.texDir, b.texName = filepath.Split(root)
	b.texDir = filepath.Clean(b.texDir)
	b.texExt = filepath.Ext(b.texName)
	b.baseName = strings.TrimSuffix(b.texName, b.texExt)

	b.jobName = s.JobName
	if b.jobName == "" {
		b.jobName = b.baseName
	}
	if b.engine == "" {
		b.engine = EnginePDFTeX
	}

	b.outputDirectory, b.outputDirectoryFull = normalizeDirectory(b.texDir, s.OutputDirectory)
	b.auxDirectory, b.auxDirectoryFull = normalizeDirectory(b.texDir, s.AuxDirectory)
	return b, nil
}

// normalizeDirectory returns the invocation form and the absolute form of dir.
// Relative input is taken relative to texDir.
func normalizeDirectory(texDir, dir string) (string, string) {
	if dir == "" {
		return "", ""
	}
	full := dir
	if !filepath.IsAbs(full) {
		full = filepath.Join(texDir, full)
	}
	full = filepath.Clean(full)
	rel, err := filepath.Rel(texDir, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return full, full
	}
	return rel, full
}

// Name returns the builder name.
func (b *Base) Name() string { return b.name }

// JobName returns the effective job name.
func (b *Base) JobName() string { return b.jobName }

// TexDir returns the absolute directory of the root file.
func (b *Base) TexDir() string { return b.texDir }

// Output returns the most recently observed tool output.
func (b *Base) Output() string { return b.out }

// resolvedOutputDir is where intermediate files land: aux if set, else output.
func (b *Base) resolvedOutputDir() string {
	if b.auxDirectoryFull != "" {
		return b.auxDirectoryFull
	}
	return b.outputDirectoryFull
}

// Next returns the next step of the build.
func (b *Base) Next() (Step, error) {
	if b.err != nil {
		return Step{}, b.err
	}
	if b.awaiting {
		return Step{}, ErrOutputPending
	}
	if !b.started {
		b.started = true
		b.advance()
		if b.err != nil {
			return Step{}, b.err
		}
	}
	if b.queued == nil {
		return Step{}, ErrBuildFinished
	}
	step := *b.queued
	b.queued = nil
	if step.IsInvocation() {
		b.awaiting = true
	} else {
		b.advance()
	}
	return step, nil
}

// Observe records the output of the last invocation and decides what comes next.
func (b *Base) Observe(output string) {
	if !b.awaiting {
		slog.Debug("Ignoring output with no invocation pending", logfields.Builder(b.name))
		return
	}
	b.out = output
	b.awaiting = false
	b.advance()
}

// Done reports whether the sequence is exhausted.
func (b *Base) Done() bool {
	return b.started && !b.awaiting && b.queued == nil
}

// CleanTemps is not implemented by any strategy.
func (b *Base) CleanTemps() error {
	return errors.Unsupported(b.name, "cleantemps")
}

func (b *Base) advance() {
	step, err := b.decide()
	if err != nil {
		b.err = err
		b.queued = nil
		return
	}
	b.queued = step
}

// makeDirectory creates dir, treating an existing directory as success.
func makeDirectory(dir string) error {
	if fi, err := os.Stat(dir); err == nil && fi.IsDir() {
		return nil
	}
	slog.Info("Creating directory", logfields.Directory(dir))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		if fi, statErr := os.Stat(dir); statErr == nil && fi.IsDir() {
			return nil
		}
		return errors.DirectoryCreateFailed(dir, err)
	}
	return nil
}

func statusStep(msg string) *Step {
	return &Step{Message: msg}
}

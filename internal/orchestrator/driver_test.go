package orchestrator

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/texbuild/internal/builder"
	"git.home.luguber.info/inful/texbuild/internal/errors"
	"git.home.luguber.info/inful/texbuild/internal/process"
)

// scriptedRunner answers invocations with canned results keyed by program.
// Each program's queue is consumed in order; an exhausted queue yields
// empty successful output.
type scriptedRunner struct {
	results map[string][]scripted
	calls   []process.Invocation
	onRun   func(n int)
}

type scripted struct {
	output string
	code   int
	err    error
}

func (r *scriptedRunner) Run(_ context.Context, inv process.Invocation) (process.Result, error) {
	r.calls = append(r.calls, inv)
	if r.onRun != nil {
		r.onRun(len(r.calls))
	}
	prog := inv.Args[0]
	queue := r.results[prog]
	if len(queue) == 0 {
		return process.Result{}, nil
	}
	next := queue[0]
	r.results[prog] = queue[1:]
	res := process.Result{Output: next.output, ExitCode: next.code}
	switch {
	case next.err != nil:
		res.ExitCode = -1
		return res, next.err
	case next.code != 0:
		return res, &process.ExitError{Program: prog, Code: next.code, Output: next.output}
	}
	return res, nil
}

func (r *scriptedRunner) programs() []string {
	var out []string
	for _, c := range r.calls {
		out = append(out, c.Args[0])
	}
	return out
}

func newRoot(t *testing.T) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	root := filepath.Join(dir, "doc.tex")
	require.NoError(t, os.WriteFile(root, []byte(`\documentclass{article}`), 0o644))
	return root
}

func newBasic(t *testing.T, s builder.Settings) builder.Builder {
	t.Helper()
	if s.RootFile == "" {
		s.RootFile = newRoot(t)
	}
	if s.Engine == "" {
		s.Engine = builder.EnginePDFLaTeX
	}
	b, err := builder.New(builder.NameBasic, s)
	require.NoError(t, err)
	return b
}

type recordingObserver struct {
	NoopObserver
	events []string
}

func (o *recordingObserver) OnBuildStart(_ context.Context, r *Report) {
	o.events = append(o.events, "start")
}

func (o *recordingObserver) OnStepStart(_ context.Context, i int, s builder.Step) {
	o.events = append(o.events, fmt.Sprintf("step%d:%s", i, s.Tool))
}

func (o *recordingObserver) OnStepComplete(_ context.Context, _ *Report, rec StepRecord) {
	o.events = append(o.events, fmt.Sprintf("done%d:%d", rec.Index, rec.ExitCode))
}

func (o *recordingObserver) OnBuildComplete(_ context.Context, r *Report) {
	o.events = append(o.events, "complete:"+string(r.Outcome))
}

func TestRunSingleCleanPass(t *testing.T) {
	runner := &scriptedRunner{results: map[string][]scripted{}}
	var out bytes.Buffer
	obs := &recordingObserver{}
	d := NewDriver(runner, &out, WithObserver(obs))
	d.newID = func() string { return "fixed-id" }

	b := newBasic(t, builder.Settings{})
	report, err := d.Run(t.Context(), b, BuildInfo{Builder: "basic", Engine: "pdflatex"})
	require.NoError(t, err)

	assert.Equal(t, "fixed-id", report.BuildID)
	assert.Equal(t, OutcomeSuccess, report.Outcome)
	assert.Equal(t, []string{"pdflatex"}, runner.programs())
	assert.Len(t, report.Steps, 1)
	assert.True(t, runner.calls[0].UseTexPath)
	assert.Equal(t, b.TexDir(), runner.calls[0].Dir)
	assert.Equal(t, []string{"start", "step1:pdflatex", "done1:0", "complete:success"}, obs.events)

	text := out.String()
	assert.Contains(t, text, "[Compiling in "+b.TexDir()+"]")
	assert.Contains(t, text, "running pdflatex...")
}

func TestRunBibliographyCycle(t *testing.T) {
	cite := "LaTeX Warning: Citation `knuth84' on page 1 undefined on input line 5."
	runner := &scriptedRunner{results: map[string][]scripted{
		"pdflatex": {{output: cite}},
	}}
	d := NewDriver(runner, nil)

	report, err := d.Run(t.Context(), newBasic(t, builder.Settings{}), BuildInfo{})
	require.NoError(t, err)
	assert.Equal(t, []string{"pdflatex", "bibtex", "pdflatex", "pdflatex"}, runner.programs())
	assert.Equal(t, []string{builder.PatternCitationUndefined}, report.Diagnostics)
}

func TestRunNonZeroExitContinues(t *testing.T) {
	cite := "LaTeX Warning: Citation `x' on page 1 undefined on input line 1."
	runner := &scriptedRunner{results: map[string][]scripted{
		"pdflatex": {{output: cite, code: 1}},
		"bibtex":   {{output: "I couldn't open database file refs.bib", code: 2}},
	}}
	var out bytes.Buffer
	d := NewDriver(runner, &out)

	report, err := d.Run(t.Context(), newBasic(t, builder.Settings{}), BuildInfo{})
	require.NoError(t, err)

	// The failed first pass still had its output fed back, so the
	// bibliography cycle ran.
	assert.Equal(t, []string{"pdflatex", "bibtex", "pdflatex", "pdflatex"}, runner.programs())
	assert.Equal(t, OutcomeFailed, report.Outcome)
	assert.Equal(t, 2, report.FailedSteps())
	assert.Equal(t, 2, report.Steps[1].ExitCode)
	assert.Contains(t, out.String(), "bibtex exited with status 2")
	assert.Contains(t, out.String(), "I couldn't open database file refs.bib")
}

func TestRunExecutableNotFoundAborts(t *testing.T) {
	cite := "LaTeX Warning: Citation `x' on page 1 undefined on input line 1."
	runner := &scriptedRunner{results: map[string][]scripted{
		"pdflatex": {{output: cite}},
		"bibtex":   {{err: fmt.Errorf("bibtex: %w", process.ErrExecutableNotFound)}},
	}}
	obs := &recordingObserver{}
	d := NewDriver(runner, nil, WithObserver(obs))

	report, err := d.Run(t.Context(), newBasic(t, builder.Settings{}), BuildInfo{})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryExecutable))
	assert.ErrorIs(t, err, process.ErrExecutableNotFound)
	assert.Equal(t, OutcomeAborted, report.Outcome)
	assert.Equal(t, []string{"pdflatex", "bibtex"}, runner.programs())
	assert.Equal(t, "complete:aborted", obs.events[len(obs.events)-1])
}

func TestRunBuilderErrorAborts(t *testing.T) {
	root := newRoot(t)
	blocker := filepath.Join(filepath.Dir(root), "out")
	require.NoError(t, os.WriteFile(blocker, []byte("not a directory"), 0o644))

	runner := &scriptedRunner{results: map[string][]scripted{}}
	d := NewDriver(runner, nil)

	b := newBasic(t, builder.Settings{RootFile: root, OutputDirectory: "out"})
	report, err := d.Run(t.Context(), b, BuildInfo{})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileSystem))
	assert.Empty(t, runner.calls)
	assert.Equal(t, OutcomeAborted, report.Outcome)
}

func TestRunCancellationBetweenSteps(t *testing.T) {
	cite := "LaTeX Warning: Citation `x' on page 1 undefined on input line 1."
	ctx, cancel := context.WithCancel(t.Context())
	runner := &scriptedRunner{
		results: map[string][]scripted{"pdflatex": {{output: cite}}},
		onRun: func(n int) {
			if n == 1 {
				cancel()
			}
		},
	}
	d := NewDriver(runner, nil)

	report, err := d.Run(ctx, newBasic(t, builder.Settings{}), BuildInfo{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	// The running step completes; the next one is never started.
	assert.Len(t, runner.calls, 1)
	assert.Equal(t, OutcomeAborted, report.Outcome)
}

func TestRunDisplayLog(t *testing.T) {
	runner := &scriptedRunner{results: map[string][]scripted{
		"pdflatex": {{output: "This is pdfTeX, Version 3.14"}},
	}}
	var out bytes.Buffer
	d := NewDriver(runner, &out, WithDisplayLog(true), WithTexPath(false))

	_, err := d.Run(t.Context(), newBasic(t, builder.Settings{}), BuildInfo{})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "This is pdfTeX, Version 3.14")
	assert.False(t, runner.calls[0].UseTexPath)

	out.Reset()
	runner = &scriptedRunner{results: map[string][]scripted{
		"pdflatex": {{output: "This is pdfTeX, Version 3.14"}},
	}}
	d = NewDriver(runner, &out)
	_, err = d.Run(t.Context(), newBasic(t, builder.Settings{}), BuildInfo{})
	require.NoError(t, err)
	assert.NotContains(t, out.String(), "This is pdfTeX")
}

func TestRunTraditionalStatusStep(t *testing.T) {
	runner := &scriptedRunner{results: map[string][]scripted{}}
	var out bytes.Buffer
	d := NewDriver(runner, &out)

	b, err := builder.New(builder.NameTraditional, builder.Settings{
		RootFile: newRoot(t),
		Engine:   builder.EnginePDFLaTeX,
		Platform: builder.PlatformSettings{OS: "linux"},
	})
	require.NoError(t, err)

	report, err := d.Run(t.Context(), b, BuildInfo{Builder: builder.NameTraditional})
	require.NoError(t, err)
	assert.Equal(t, []string{"latexmk"}, runner.programs())
	require.NotEmpty(t, report.Messages)
	assert.Len(t, report.Steps, 1)
	assert.True(t, strings.Contains(out.String(), "latexmk"))
}

package orchestrator

import (
	"context"
	stdErrors "errors"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/texbuild/internal/builder"
	"git.home.luguber.info/inful/texbuild/internal/errors"
	"git.home.luguber.info/inful/texbuild/internal/metrics"
	"git.home.luguber.info/inful/texbuild/internal/process"
)

// Driver runs builders against a process.Runner.
type Driver struct {
	runner     process.Runner
	out        console
	displayLog bool
	useTexPath bool
	observers  []BuildObserver
	newID      func() string
}

// Option configures a Driver.
type Option func(*Driver)

// WithDisplayLog echoes the full captured output after every invocation.
func WithDisplayLog(enabled bool) Option {
	return func(d *Driver) { d.displayLog = enabled }
}

// WithTexPath controls whether invocations run with the tex search path as
// PATH. It is enabled by default.
func WithTexPath(enabled bool) Option {
	return func(d *Driver) { d.useTexPath = enabled }
}

// WithObserver registers build observers, notified in registration order.
func WithObserver(observers ...BuildObserver) Option {
	return func(d *Driver) { d.observers = append(d.observers, observers...) }
}

// WithRecorder registers a metrics recorder.
func WithRecorder(rec metrics.Recorder) Option {
	return WithObserver(RecorderObserver{Recorder: rec})
}

// NewDriver creates a Driver printing progress to out (nil discards it).
func NewDriver(runner process.Runner, out io.Writer, opts ...Option) *Driver {
	d := &Driver{
		runner:     runner,
		out:        console{w: out},
		useTexPath: true,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run drives b until it finishes. The returned report is always non-nil. A
// non-nil error means the build was aborted: an executable was missing, the
// builder failed, or ctx was canceled. Invocations that exit non-zero do not
// abort the build; they are reflected in Report.Outcome.
func (d *Driver) Run(ctx context.Context, b builder.Builder, info BuildInfo) (*Report, error) {
	report := &Report{
		BuildID: d.newID(),
		Info:    info,
		Builder: b.Name(),
		JobName: b.JobName(),
		TexDir:  b.TexDir(),
		Start:   time.Now(),
	}

	d.out.workingDirectory(b.TexDir())
	for _, o := range d.observers {
		o.OnBuildStart(ctx, report)
	}

	err := d.loop(ctx, b, report)
	report.finish(err)

	d.out.summary(report)
	for _, o := range d.observers {
		o.OnBuildComplete(ctx, report)
	}
	return report, err
}

func (d *Driver) loop(ctx context.Context, b builder.Builder, report *Report) error {
	index := 0
	for {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, errors.CategoryProcess, errors.SeverityWarning, "build canceled")
		}

		step, err := b.Next()
		if stdErrors.Is(err, builder.ErrBuildFinished) {
			return nil
		}
		if err != nil {
			if _, ok := errors.As(err); ok {
				return err
			}
			return errors.BuilderFailed(b.Name(), err)
		}

		if step.Message != "" {
			report.Messages = append(report.Messages, step.Message)
			d.out.message(step.Message)
		}
		if !step.IsInvocation() {
			continue
		}

		index++
		for _, o := range d.observers {
			o.OnStepStart(ctx, index, step)
		}
		rec := d.execute(ctx, index, step)
		report.Steps = append(report.Steps, rec)
		for _, m := range builder.DiagnosticPatterns.Scan(rec.Output) {
			report.addDiagnostic(m.Pattern.Name)
		}
		for _, o := range d.observers {
			o.OnStepComplete(ctx, report, rec)
		}

		if rec.Err != nil {
			if isNotFound(rec.Err) {
				return errors.ExecutableNotFound(rec.Args[0], rec.Err)
			}
			return errors.InvocationFailed(rec.Args[0], rec.ExitCode, rec.Err)
		}
		b.Observe(rec.Output)
	}
}

// execute runs one invocation. Non-zero exits are recorded in ExitCode and
// leave Err nil; Err carries failures to run the program at all.
func (d *Driver) execute(ctx context.Context, index int, step builder.Step) StepRecord {
	rec := StepRecord{
		Index: index,
		Tool:  step.Tool,
		Args:  step.Args,
		Dir:   step.Dir,
	}
	if rec.Tool == "" {
		rec.Tool = filepath.Base(step.Args[0])
	}
	d.out.command(step.CommandLine())

	start := time.Now()
	res, err := d.runner.Run(ctx, process.Invocation{
		Args:       step.Args,
		Dir:        step.Dir,
		Env:        step.Env,
		UseTexPath: d.useTexPath,
	})
	rec.Duration = time.Since(start)
	rec.Output = res.Output
	rec.ExitCode = res.ExitCode

	var exitErr *process.ExitError
	switch {
	case err == nil:
		if d.displayLog {
			d.out.output(res.Output)
		}
	case stdErrors.As(err, &exitErr):
		rec.ExitCode = exitErr.Code
		d.out.failure("%s exited with status %d", step.Args[0], exitErr.Code)
		d.out.output(res.Output)
	default:
		rec.Err = err
		d.out.failure("%v", err)
	}
	return rec
}

func isNotFound(err error) bool {
	return stdErrors.Is(err, process.ErrExecutableNotFound)
}

func isCanceled(err error) bool {
	return stdErrors.Is(err, context.Canceled) || stdErrors.Is(err, context.DeadlineExceeded)
}

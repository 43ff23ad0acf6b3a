package orchestrator

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/texbuild/internal/builder"
	"git.home.luguber.info/inful/texbuild/internal/history"
	"git.home.luguber.info/inful/texbuild/internal/logfields"
	"git.home.luguber.info/inful/texbuild/internal/metrics"
	"git.home.luguber.info/inful/texbuild/internal/notify"
)

// BuildObserver receives callbacks around step execution and the build
// lifecycle. Observers must not block for long; they run on the build path.
type BuildObserver interface {
	OnBuildStart(ctx context.Context, report *Report)
	OnStepStart(ctx context.Context, index int, step builder.Step)
	OnStepComplete(ctx context.Context, report *Report, rec StepRecord)
	OnBuildComplete(ctx context.Context, report *Report)
}

// NoopObserver is a no-op implementation, embeddable by partial observers.
type NoopObserver struct{}

func (NoopObserver) OnBuildStart(context.Context, *Report)               {}
func (NoopObserver) OnStepStart(context.Context, int, builder.Step)      {}
func (NoopObserver) OnStepComplete(context.Context, *Report, StepRecord) {}
func (NoopObserver) OnBuildComplete(context.Context, *Report)            {}

// RecorderObserver adapts metrics.Recorder into a BuildObserver.
type RecorderObserver struct {
	NoopObserver
	Recorder metrics.Recorder
}

func (r RecorderObserver) OnStepComplete(_ context.Context, _ *Report, rec StepRecord) {
	if r.Recorder == nil {
		return
	}
	r.Recorder.ObserveStepDuration(rec.Tool, rec.Duration)
	r.Recorder.IncStepResult(rec.Tool, stepResult(rec))
}

func (r RecorderObserver) OnBuildComplete(_ context.Context, report *Report) {
	if r.Recorder == nil {
		return
	}
	r.Recorder.ObserveBuildDuration(report.Info.Builder, report.Duration())
	r.Recorder.IncBuildOutcome(report.Info.Builder, metrics.BuildOutcomeLabel(report.Outcome))
	for _, d := range report.Diagnostics {
		r.Recorder.IncDiagnostic(d)
	}
}

func stepResult(rec StepRecord) metrics.ResultLabel {
	switch {
	case rec.Err != nil && isNotFound(rec.Err):
		return metrics.ResultMissing
	case rec.Err != nil && isCanceled(rec.Err):
		return metrics.ResultCanceled
	case rec.Failed():
		return metrics.ResultFailed
	default:
		return metrics.ResultSuccess
	}
}

// HistoryObserver appends build events to the history store. Store failures
// are logged and never fail the build.
type HistoryObserver struct {
	NoopObserver
	Recorder *history.Recorder
}

func (h HistoryObserver) OnBuildStart(ctx context.Context, report *Report) {
	err := h.Recorder.BuildStarted(ctx, report.BuildID, history.BuildStarted{
		Builder:  report.Info.Builder,
		Engine:   report.Info.Engine,
		RootFile: report.Info.RootFile,
		JobName:  report.JobName,
		Revision: report.Info.Revision,
	})
	logHistoryError(err, report)
}

func (h HistoryObserver) OnStepComplete(ctx context.Context, report *Report, rec StepRecord) {
	ev := history.StepCompleted{
		Index:      rec.Index,
		Program:    rec.Tool,
		Args:       rec.Args,
		ExitCode:   rec.ExitCode,
		DurationMS: history.DurationMS(rec.Duration),
	}
	if rec.Err != nil {
		ev.Error = rec.Err.Error()
	}
	logHistoryError(h.Recorder.StepCompleted(ctx, report.BuildID, ev), report)
}

func (h HistoryObserver) OnBuildComplete(ctx context.Context, report *Report) {
	ev := history.BuildCompleted{
		Outcome:     string(report.Outcome),
		Invocations: len(report.Steps),
		Failed:      report.FailedSteps(),
		DurationMS:  history.DurationMS(report.Duration()),
		Diagnostics: report.Diagnostics,
	}
	if report.Err != nil {
		ev.Error = report.Err.Error()
	}
	// Record completion even when the build was canceled.
	logHistoryError(h.Recorder.BuildCompleted(context.WithoutCancel(ctx), report.BuildID, ev), report)
}

func logHistoryError(err error, report *Report) {
	if err != nil {
		slog.Warn("Failed to record build history", logfields.BuildID(report.BuildID), logfields.Error(err))
	}
}

// NotifyObserver publishes a completion event for every build.
type NotifyObserver struct {
	NoopObserver
	Publisher *notify.Publisher
}

func (n NotifyObserver) OnBuildComplete(ctx context.Context, report *Report) {
	ev := notify.BuildEvent{
		BuildID:     report.BuildID,
		Builder:     report.Info.Builder,
		RootFile:    report.Info.RootFile,
		JobName:     report.JobName,
		Revision:    report.Info.Revision,
		Outcome:     string(report.Outcome),
		Invocations: len(report.Steps),
		DurationMS:  report.Duration().Milliseconds(),
		Timestamp:   report.End,
	}
	if report.Err != nil {
		ev.Error = report.Err.Error()
	}
	if err := n.Publisher.Publish(context.WithoutCancel(ctx), ev); err != nil {
		slog.Warn("Failed to publish build notification", logfields.BuildID(report.BuildID), logfields.Error(err))
	}
}

// LogObserver writes structured log records for each step and build.
type LogObserver struct {
	NoopObserver
	Logger *slog.Logger
}

func (l LogObserver) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

func (l LogObserver) OnBuildStart(_ context.Context, report *Report) {
	l.logger().Info("Build started",
		logfields.BuildID(report.BuildID),
		logfields.Builder(report.Builder),
		logfields.Engine(report.Info.Engine),
		logfields.JobName(report.JobName),
		logfields.Directory(report.TexDir))
}

func (l LogObserver) OnStepStart(_ context.Context, index int, step builder.Step) {
	l.logger().Debug("Running step", logfields.Step(index), logfields.Program(step.Tool), slog.String("command", step.CommandLine()))
}

func (l LogObserver) OnStepComplete(_ context.Context, report *Report, rec StepRecord) {
	attrs := []any{
		logfields.BuildID(report.BuildID),
		logfields.Step(rec.Index),
		logfields.Program(rec.Tool),
		logfields.ExitCode(rec.ExitCode),
		logfields.DurationMS(float64(rec.Duration.Milliseconds())),
	}
	if rec.Failed() {
		if rec.Err != nil {
			attrs = append(attrs, logfields.Error(rec.Err))
		}
		l.logger().Warn("Step failed", attrs...)
		return
	}
	l.logger().Debug("Step completed", attrs...)
}

func (l LogObserver) OnBuildComplete(_ context.Context, report *Report) {
	attrs := []any{
		logfields.BuildID(report.BuildID),
		logfields.Outcome(string(report.Outcome)),
		logfields.DurationMS(float64(report.Duration().Milliseconds())),
		slog.Int("invocations", len(report.Steps)),
	}
	if report.Err != nil {
		attrs = append(attrs, logfields.Error(report.Err))
	}
	l.logger().Info("Build completed", attrs...)
}

package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "texbuild"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once          sync.Once
	stepDuration  *prom.HistogramVec
	stepResults   *prom.CounterVec
	buildDuration *prom.HistogramVec
	buildOutcome  *prom.CounterVec
	diagnostics   *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.stepDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Duration of individual tool invocations",
			Buckets:   prom.DefBuckets,
		}, []string{"tool"})
		pr.stepResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "step_results_total",
			Help:      "Tool invocation results by outcome",
		}, []string{"tool", "result"})
		pr.buildDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}, []string{"builder"})
		pr.buildOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"builder", "outcome"})
		pr.diagnostics = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "diagnostics_total",
			Help:      "Diagnostic patterns recognized in tool output",
		}, []string{"pattern"})
		reg.MustRegister(pr.stepDuration, pr.stepResults, pr.buildDuration, pr.buildOutcome, pr.diagnostics)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveStepDuration(tool string, d time.Duration) {
	if p == nil || p.stepDuration == nil {
		return
	}
	p.stepDuration.WithLabelValues(tool).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStepResult(tool string, result ResultLabel) {
	if p == nil || p.stepResults == nil {
		return
	}
	p.stepResults.WithLabelValues(tool, string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveBuildDuration(builder string, d time.Duration) {
	if p == nil || p.buildDuration == nil {
		return
	}
	p.buildDuration.WithLabelValues(builder).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBuildOutcome(builder string, outcome BuildOutcomeLabel) {
	if p == nil || p.buildOutcome == nil {
		return
	}
	p.buildOutcome.WithLabelValues(builder, string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncDiagnostic(pattern string) {
	if p == nil || p.diagnostics == nil {
		return
	}
	p.diagnostics.WithLabelValues(pattern).Inc()
}

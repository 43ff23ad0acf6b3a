// Package metrics provides build metrics for texbuild.
//
// Components receive a Recorder through dependency injection. NoopRecorder is
// the default and does nothing; PrometheusRecorder forwards to a Prometheus
// registry which can be scraped over HTTP while watching or written to a
// node_exporter textfile after a one-shot build.
//
//	reg := prometheus.NewRegistry()
//	rec := metrics.NewPrometheusRecorder(reg)
//	driver := orchestrator.NewDriver(runner, os.Stdout, orchestrator.WithRecorder(rec))
package metrics

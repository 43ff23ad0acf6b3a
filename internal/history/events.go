package history

import (
	"context"
	"encoding/json"
	"time"

	"git.home.luguber.info/inful/texbuild/internal/errors"
)

// Event type names.
const (
	TypeBuildStarted   = "BuildStarted"
	TypeStepCompleted  = "StepCompleted"
	TypeBuildCompleted = "BuildCompleted"
)

// BuildStarted is emitted when a build begins.
type BuildStarted struct {
	Builder  string `json:"builder"`
	Engine   string `json:"engine"`
	RootFile string `json:"root_file"`
	JobName  string `json:"jobname"`
	Revision string `json:"revision,omitempty"`
}

// StepCompleted is emitted after every tool invocation.
type StepCompleted struct {
	Index      int      `json:"index"`
	Program    string   `json:"program"`
	Args       []string `json:"args"`
	ExitCode   int      `json:"exit_code"`
	DurationMS int64    `json:"duration_ms"`
	Error      string   `json:"error,omitempty"`
}

// BuildCompleted is emitted when a build ends, successfully or not.
type BuildCompleted struct {
	Outcome     string   `json:"outcome"`
	Invocations int      `json:"invocations"`
	Failed      int      `json:"failed"`
	DurationMS  int64    `json:"duration_ms"`
	Diagnostics []string `json:"diagnostics,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// Recorder appends typed build events to a Store.
type Recorder struct {
	store Store
}

// NewRecorder wraps store.
func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store}
}

func (r *Recorder) append(ctx context.Context, buildID, eventType string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return errors.HistoryError("marshal "+eventType, err).WithContext("build_id", buildID)
	}
	return r.store.Append(ctx, buildID, eventType, payload)
}

// BuildStarted records the start of a build.
func (r *Recorder) BuildStarted(ctx context.Context, buildID string, e BuildStarted) error {
	return r.append(ctx, buildID, TypeBuildStarted, e)
}

// StepCompleted records a finished tool invocation.
func (r *Recorder) StepCompleted(ctx context.Context, buildID string, e StepCompleted) error {
	return r.append(ctx, buildID, TypeStepCompleted, e)
}

// BuildCompleted records the end of a build.
func (r *Recorder) BuildCompleted(ctx context.Context, buildID string, e BuildCompleted) error {
	return r.append(ctx, buildID, TypeBuildCompleted, e)
}

// DurationMS converts d for event payloads.
func DurationMS(d time.Duration) int64 { return d.Milliseconds() }

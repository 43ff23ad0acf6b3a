package history

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

const statusRunning = "running"

// BuildSummary is a read model summarizing a completed or in-progress build.
type BuildSummary struct {
	BuildID     string        `json:"build_id"`
	Builder     string        `json:"builder"`
	Engine      string        `json:"engine"`
	RootFile    string        `json:"root_file"`
	Revision    string        `json:"revision,omitempty"`
	Status      string        `json:"status"` // running or the build outcome
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
	Invocations int           `json:"invocations"`
	Failed      int           `json:"failed"`
	Error       string        `json:"error,omitempty"`
}

// Summaries folds the events of builds started since the given time into
// summaries, newest first, at most limit entries (0 means all).
func Summaries(ctx context.Context, store Store, since time.Time, limit int) ([]*BuildSummary, error) {
	ids, err := store.RecentBuilds(ctx, since, limit)
	if err != nil {
		return nil, err
	}

	summaries := make([]*BuildSummary, 0, len(ids))
	for _, id := range ids {
		s, err := Summary(ctx, store, id)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}

// Summary folds the events of a single build.
func Summary(ctx context.Context, store Store, buildID string) (*BuildSummary, error) {
	events, err := store.Events(ctx, buildID)
	if err != nil {
		return nil, err
	}
	s := &BuildSummary{BuildID: buildID, Status: statusRunning}
	for i, ev := range events {
		if i == 0 {
			s.StartedAt = ev.RecordedAt
		}
		apply(s, ev)
	}
	return s, nil
}

// Steps returns the recorded tool invocations of a build in order.
func Steps(ctx context.Context, store Store, buildID string) ([]StepCompleted, error) {
	events, err := store.Events(ctx, buildID)
	if err != nil {
		return nil, err
	}
	var steps []StepCompleted
	for _, ev := range events {
		if ev.Kind != TypeStepCompleted {
			continue
		}
		var step StepCompleted
		if decode(ev, &step) {
			steps = append(steps, step)
		}
	}
	return steps, nil
}

func apply(s *BuildSummary, ev Event) {
	switch ev.Kind {
	case TypeBuildStarted:
		var e BuildStarted
		if !decode(ev, &e) {
			return
		}
		s.Builder = e.Builder
		s.Engine = e.Engine
		s.RootFile = e.RootFile
		s.Revision = e.Revision
		s.StartedAt = ev.RecordedAt
	case TypeStepCompleted:
		var e StepCompleted
		if !decode(ev, &e) {
			return
		}
		s.Invocations++
		if e.ExitCode != 0 || e.Error != "" {
			s.Failed++
		}
	case TypeBuildCompleted:
		var e BuildCompleted
		if !decode(ev, &e) {
			return
		}
		completed := ev.RecordedAt
		s.CompletedAt = &completed
		s.Status = e.Outcome
		s.Duration = time.Duration(e.DurationMS) * time.Millisecond
		s.Error = e.Error
	}
}

func decode(ev Event, v any) bool {
	if err := json.Unmarshal(ev.Payload, v); err != nil {
		slog.Warn("Skipping malformed history event", "build_id", ev.BuildID, "kind", ev.Kind, "error", err)
		return false
	}
	return true
}

package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeyBuilder    = "builder"
	KeyStep       = "step"
	KeyProgram    = "program"
	KeyEngine     = "engine"
	KeyExitCode   = "exit_code"
	KeyDurationMS = "duration_ms"
	KeyDirectory  = "directory"
	KeyPath       = "path"
	KeyJobName    = "job_name"
	KeyOutcome    = "outcome"
	KeyRevision   = "revision"
	KeyPattern    = "pattern"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr     { return slog.String(KeyBuildID, id) }
func Builder(name string) slog.Attr   { return slog.String(KeyBuilder, name) }
func Step(n int) slog.Attr            { return slog.Int(KeyStep, n) }
func Program(p string) slog.Attr      { return slog.String(KeyProgram, p) }
func Engine(e string) slog.Attr       { return slog.String(KeyEngine, e) }
func ExitCode(c int) slog.Attr        { return slog.Int(KeyExitCode, c) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Directory(d string) slog.Attr    { return slog.String(KeyDirectory, d) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func JobName(j string) slog.Attr      { return slog.String(KeyJobName, j) }
func Outcome(o string) slog.Attr      { return slog.String(KeyOutcome, o) }
func Revision(r string) slog.Attr     { return slog.String(KeyRevision, r) }
func Pattern(name string) slog.Attr   { return slog.String(KeyPattern, name) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}

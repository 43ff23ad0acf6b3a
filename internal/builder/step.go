package builder

import (
	stdErrors "errors"
	"strings"
)

var (
	// ErrBuildFinished is returned by Next once the sequence is exhausted.
	ErrBuildFinished = stdErrors.New("build finished")
	// ErrOutputPending is returned by Next when the output of the previous
	// invocation has not been observed yet.
	ErrOutputPending = stdErrors.New("output of previous step not observed")
)

// Step is a single request produced by a Builder: either an external
// invocation or a status message.
type Step struct {
	Args    []string          // program followed by arguments; empty for status steps
	Message string            // human-readable status
	Dir     string            // working directory of the invocation
	Env     map[string]string // variables added to the inherited environment
	Tool    string            // short program label for reports and metrics
}

// IsInvocation reports whether the step runs a program.
func (s Step) IsInvocation() bool { return len(s.Args) > 0 }

// CommandLine renders the invocation for display.
func (s Step) CommandLine() string { return strings.Join(s.Args, " ") }

// Builder is the contract every strategy implements.
type Builder interface {
	// Name is the human-readable builder name.
	Name() string
	// Next returns the next step, ErrBuildFinished when done, or
	// ErrOutputPending if the previous invocation has not been observed.
	Next() (Step, error)
	// Observe feeds the output of the most recent invocation.
	Observe(output string)
	// Done reports whether no further steps will be produced.
	Done() bool
	// CleanTemps removes intermediate files, or reports an unsupported error.
	CleanTemps() error
	// JobName and TexDir describe the build for reporting.
	JobName() string
	TexDir() string
}

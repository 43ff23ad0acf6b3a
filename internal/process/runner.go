package process

import (
	"bytes"
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"git.home.luguber.info/inful/texbuild/internal/logfields"
)

// ErrExecutableNotFound is returned when the program of an invocation cannot
// be located on the effective search path.
var ErrExecutableNotFound = stdErrors.New("executable not found")

// Invocation describes one external program run.
type Invocation struct {
	Args []string          // program followed by its arguments
	Dir  string            // working directory
	Env  map[string]string // added to (not replacing) the inherited environment
	// UseTexPath overrides PATH with the resolved tex path.
	UseTexPath bool
}

// Result is the captured outcome of an invocation.
type Result struct {
	Output   string
	ExitCode int
}

// ExitError reports a program that ran and exited non-zero.
type ExitError struct {
	Program string
	Code    int
	Output  string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Program, e.Code)
}

// Runner executes invocations. Implementations block until the program exits.
type Runner interface {
	Run(ctx context.Context, inv Invocation) (Result, error)
}

// ExecRunner runs invocations with os/exec.
type ExecRunner struct {
	// TexPath is the configured search path; empty selects the platform default.
	TexPath string
}

// NewExecRunner creates a runner using the given tex path.
func NewExecRunner(texPath string) *ExecRunner {
	return &ExecRunner{TexPath: texPath}
}

// Run executes inv and returns its merged stdout/stderr. A non-zero exit
// yields both a populated Result and an *ExitError.
func (r *ExecRunner) Run(ctx context.Context, inv Invocation) (Result, error) {
	if len(inv.Args) == 0 {
		return Result{}, fmt.Errorf("empty invocation")
	}

	searchPath := os.Getenv("PATH")
	env := os.Environ()
	if inv.UseTexPath {
		searchPath = ResolveTexPath(r.TexPath)
		env = setEnv(env, "PATH", searchPath)
	}
	for _, k := range sortedKeys(inv.Env) {
		env = setEnv(env, k, inv.Env[k])
	}

	program, err := LookPath(inv.Args[0], searchPath)
	if err != nil {
		return Result{ExitCode: -1}, fmt.Errorf("%s: %w", inv.Args[0], ErrExecutableNotFound)
	}

	slog.Debug("Running external command",
		logfields.Program(inv.Args[0]),
		slog.String("command", strings.Join(inv.Args, " ")),
		logfields.Directory(inv.Dir))

	var buf bytes.Buffer
	cmd := exec.CommandContext(ctx, program, inv.Args[1:]...)
	cmd.Dir = inv.Dir
	cmd.Env = env
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	runErr := cmd.Run()
	res := Result{Output: NormalizeOutput(buf.Bytes())}
	if runErr != nil {
		var exitErr *exec.ExitError
		if stdErrors.As(runErr, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, &ExitError{Program: inv.Args[0], Code: res.ExitCode, Output: res.Output}
		}
		res.ExitCode = -1
		return res, fmt.Errorf("run %s: %w", inv.Args[0], runErr)
	}
	return res, nil
}

// NormalizeOutput converts raw tool output to text: invalid UTF-8 is decoded
// as Latin-1 (common for TeX logs), line endings are unified and trailing
// whitespace is dropped.
func NormalizeOutput(raw []byte) string {
	text := string(raw)
	if !utf8.Valid(raw) {
		if decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw); err == nil {
			text = string(decoded)
		}
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.TrimRight(text, " \t\r\n")
}

// AppendPathList prepends dir to an existing path-list variable value.
func AppendPathList(dir, existing string) string {
	return dir + string(os.PathListSeparator) + existing
}

func setEnv(env []string, key, value string) []string {
	prefix := key + "="
	for i, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			env[i] = prefix + value
			return env
		}
	}
	return append(env, prefix+value)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

package builder

import (
	stdErrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// drive runs b to completion, feeding outputs[i] to the i-th invocation and
// empty output once outputs run out. It returns every produced step.
func drive(t *testing.T, b Builder, outputs ...string) []Step {
	t.Helper()
	var steps []Step
	n := 0
	for i := 0; i < 100; i++ {
		step, err := b.Next()
		if stdErrors.Is(err, ErrBuildFinished) {
			require.True(t, b.Done())
			return steps
		}
		require.NoError(t, err)
		steps = append(steps, step)
		if step.IsInvocation() {
			out := ""
			if n < len(outputs) {
				out = outputs[n]
			}
			n++
			b.Observe(out)
		}
	}
	t.Fatalf("builder did not finish")
	return nil
}

func invocations(steps []Step) [][]string {
	var out [][]string
	for _, s := range steps {
		if s.IsInvocation() {
			out = append(out, s.Args)
		}
	}
	return out
}

func programs(steps []Step) []string {
	var out []string
	for _, s := range steps {
		if s.IsInvocation() {
			out = append(out, s.Args[0])
		}
	}
	return out
}

// newRoot creates an empty doc.tex inside a temp dir and returns its path.
func newRoot(t *testing.T, name string) string {
	t.Helper()
	dir := t.TempDir()
	// Resolve symlinks so path comparisons hold on macOS temp dirs.
	dir, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	root := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(root, []byte(`\documentclass{article}`), 0o644))
	return root
}

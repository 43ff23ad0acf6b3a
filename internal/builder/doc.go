// Package builder contains the build decision engine: strategies that decide,
// from the output of the previous toolchain invocation, whether another
// invocation is needed, which program and arguments to use, and when the
// document build is finished.
//
// A Builder is a one-shot, forward-only state machine:
//
//	for {
//	    step, err := b.Next()
//	    if errors.Is(err, builder.ErrBuildFinished) {
//	        break
//	    }
//	    // run step.Args ...
//	    b.Observe(output)
//	}
//
// Observe must be called with the output of every invocation step before the
// next call to Next. Status steps carry only a message and never wait for
// output. Every builder produces at least one step.
//
// Two strategies exist. Basic drives the engine binaries directly and applies
// the diagnostic patterns itself (subdirectory creation, bibliography passes,
// cross-reference reruns). Traditional delegates multi-pass handling to a
// wrapper (latexmk or texify) and only applies the missing-package and
// cross-reference fallbacks.
package builder

// Package process runs external toolchain programs (engines, wrappers,
// bibliography tools) with a TeX-specific search path and returns their
// merged output as text.
//
// Every invocation blocks until the child exits. A program that cannot be
// found on the effective search path yields ErrExecutableNotFound, which is
// kept distinct from a program that ran and exited non-zero (*ExitError).
package process

// Package orchestrator drives a builder.Builder to completion: it pulls
// steps, prints their status, runs invocations through a process.Runner, and
// feeds each captured output back before asking for the next step.
//
// Builds are strictly sequential. Observers receive lifecycle callbacks and
// fan results out to metrics, the build history and notifications.
package orchestrator

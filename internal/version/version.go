// Package version carries build metadata injected at link time:
//
//	go build -ldflags "-X git.home.luguber.info/inful/texbuild/internal/version.Version=v0.3.0 \
//	  -X git.home.luguber.info/inful/texbuild/internal/version.GitCommit=$(git rev-parse --short HEAD)"
package version

import "fmt"

var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// String renders the line printed by --version.
func String() string {
	return fmt.Sprintf("texbuild %s (commit %s, built %s)", Version, GitCommit, BuildTime)
}

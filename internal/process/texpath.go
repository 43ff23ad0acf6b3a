package process

import (
	"os"
	"runtime"
)

// DefaultTexPath returns the search path used for toolchain invocations on
// the given GOOS. The value may reference $PATH and is expanded at run time.
func DefaultTexPath(goos string) string {
	switch goos {
	case "darwin":
		return "$PATH:/Library/TeX/texbin:/usr/texbin:/usr/local/bin:/opt/local/bin"
	case "windows":
		return ""
	default:
		return "$PATH:/usr/texbin"
	}
}

// ResolveTexPath expands a configured tex path. An empty result falls back to
// the process PATH.
func ResolveTexPath(texPath string) string {
	if texPath == "" {
		texPath = DefaultTexPath(runtime.GOOS)
	}
	expanded := os.ExpandEnv(texPath)
	if expanded == "" {
		return os.Getenv("PATH")
	}
	return expanded
}

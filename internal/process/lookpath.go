package process

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// LookPath searches for an executable named file in the directories of the
// given search path (not the process PATH). Names containing a separator are
// checked directly.
func LookPath(file, searchPath string) (string, error) {
	if strings.ContainsRune(file, filepath.Separator) || strings.Contains(file, "/") {
		if isExecutable(file) {
			return file, nil
		}
		return "", ErrExecutableNotFound
	}
	for _, dir := range filepath.SplitList(searchPath) {
		if dir == "" {
			dir = "."
		}
		for _, name := range candidates(file) {
			p := filepath.Join(dir, name)
			if isExecutable(p) {
				return p, nil
			}
		}
	}
	return "", ErrExecutableNotFound
}

func candidates(file string) []string {
	if runtime.GOOS != "windows" || filepath.Ext(file) != "" {
		return []string{file}
	}
	exts := strings.Split(os.Getenv("PATHEXT"), string(os.PathListSeparator))
	if len(exts) == 1 && exts[0] == "" {
		exts = []string{".com", ".exe", ".bat", ".cmd"}
	}
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		out = append(out, file+strings.ToLower(e))
	}
	return out
}

func isExecutable(p string) bool {
	fi, err := os.Stat(p)
	if err != nil || fi.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return fi.Mode().Perm()&0o111 != 0
}

package watch

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/zeebo/blake3"
)

// fingerprints remembers the content hash of every watched file so that
// editor saves that do not change content do not trigger a rebuild.
type fingerprints struct {
	mu     sync.Mutex
	hashes map[string]string
}

func newFingerprints() *fingerprints {
	return &fingerprints{hashes: make(map[string]string)}
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	hasher := blake3.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// changed records the current content of path and reports whether it differs
// from what was seen before. A file that can no longer be read counts as
// changed (and is forgotten).
func (f *fingerprints) changed(path string) bool {
	sum, err := hashFile(path)

	f.mu.Lock()
	defer f.mu.Unlock()

	if err != nil {
		_, known := f.hashes[path]
		delete(f.hashes, path)
		return known || !os.IsNotExist(err)
	}
	if prev, ok := f.hashes[path]; ok && prev == sum {
		return false
	}
	f.hashes[path] = sum
	return true
}

// seed records path without reporting a change.
func (f *fingerprints) seed(path string) {
	sum, err := hashFile(path)
	if err != nil {
		return
	}
	f.mu.Lock()
	f.hashes[path] = sum
	f.mu.Unlock()
}

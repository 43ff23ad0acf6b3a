// Package vcs reports the version-control revision of a document tree so it
// can be attached to build history and notifications.
package vcs

import (
	"errors"
	"fmt"

	ggit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Revision describes the checked-out state of a repository.
type Revision struct {
	Hash   string
	Branch string // empty when HEAD is detached
	Dirty  bool
}

// Short returns the abbreviated hash, with a "+dirty" suffix when the
// worktree has uncommitted changes.
func (r Revision) Short() string {
	if r.Hash == "" {
		return ""
	}
	h := r.Hash
	if len(h) > 8 {
		h = h[:8]
	}
	if r.Dirty {
		h += "+dirty"
	}
	return h
}

// Lookup finds the repository containing dir and returns its HEAD revision.
// ok is false when dir is not inside a git repository.
func Lookup(dir string) (rev Revision, ok bool, err error) {
	repo, err := ggit.PlainOpenWithOptions(dir, &ggit.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, ggit.ErrRepositoryNotExists) {
		return Revision{}, false, nil
	}
	if err != nil {
		return Revision{}, false, fmt.Errorf("open repository: %w", err)
	}

	ref, err := repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		// Fresh repository with no commits yet.
		return Revision{}, true, nil
	}
	if err != nil {
		return Revision{}, false, fmt.Errorf("resolve HEAD: %w", err)
	}

	rev.Hash = ref.Hash().String()
	if ref.Name().IsBranch() {
		rev.Branch = ref.Name().Short()
	}

	wt, err := repo.Worktree()
	if err == nil {
		if status, serr := wt.Status(); serr == nil {
			rev.Dirty = !status.IsClean()
		}
	}
	return rev, true, nil
}

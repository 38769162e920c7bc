package engine

import (
	"github.com/cj3636/gstage/internal/git"
)

// Read-only projections feeding the pickers: stash entries, branches,
// tags and recent history. They run on the actor like everything else so
// a mutation mid-listing is impossible.

// Reader extends Repo with the optional queries the engine exposes when
// the underlying handle supports them. *git.Repository does.
type Reader interface {
	StashList() ([]git.StashEntry, error)
	Branches() ([]git.Branch, error)
	Tags() ([]git.Tag, error)
	Log(limit int) ([]git.Commit, error)
	ResolveRev(rev string) (string, error)
}

// Stashes lists the stash entries, newest first.
func (e *Engine) Stashes() ([]git.StashEntry, error) {
	var entries []git.StashEntry
	err := e.do(func() error {
		r, err := e.reader()
		if err != nil {
			return err
		}
		entries, err = r.StashList()
		return err
	})
	return entries, err
}

// Branches lists local branches.
func (e *Engine) Branches() ([]git.Branch, error) {
	var branches []git.Branch
	err := e.do(func() error {
		r, err := e.reader()
		if err != nil {
			return err
		}
		branches, err = r.Branches()
		return err
	})
	return branches, err
}

// Tags lists tags.
func (e *Engine) Tags() ([]git.Tag, error) {
	var tags []git.Tag
	err := e.do(func() error {
		r, err := e.reader()
		if err != nil {
			return err
		}
		tags, err = r.Tags()
		return err
	})
	return tags, err
}

// RecentCommits returns up to limit commits reachable from HEAD, newest
// first.
func (e *Engine) RecentCommits(limit int) ([]git.Commit, error) {
	var commits []git.Commit
	err := e.do(func() error {
		r, err := e.reader()
		if err != nil {
			return err
		}
		commits, err = r.Log(limit)
		return err
	})
	return commits, err
}

// ResolveRev resolves a revision expression to a full commit hash, which
// the pickers use to validate a target before starting an operation.
func (e *Engine) ResolveRev(rev string) (string, error) {
	var hash string
	err := e.do(func() error {
		r, err := e.reader()
		if err != nil {
			return err
		}
		hash, err = r.ResolveRev(rev)
		return err
	})
	return hash, err
}

func (e *Engine) reader() (Reader, error) {
	if r, ok := e.repo.(Reader); ok {
		return r, nil
	}
	return nil, git.ErrNoOperation
}

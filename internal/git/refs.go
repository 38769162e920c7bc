package git

import (
	"errors"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Read-only projections of repository objects. These go through the
// go-git handle so history and ref queries never touch the index the
// write path is mutating.

// Head describes the current HEAD reference.
type Head struct {
	// Branch is the short branch name, empty when detached.
	Branch string
	// Hash is the full commit hash, empty in an unborn repository.
	Hash string
	// Summary is the first line of the HEAD commit message.
	Summary  string
	Detached bool
}

// Branch is a local branch projection.
type Branch struct {
	Name    string
	Hash    string
	Current bool
}

// Tag is a tag projection.
type Tag struct {
	Name string
	Hash string
}

// Commit is a history entry projection.
type Commit struct {
	Hash    string
	Summary string
	Author  string
	When    time.Time
}

// Head returns the current HEAD projection. An unborn repository yields a
// zero Head rather than an error.
func (r *Repository) Head() (Head, error) {
	ref, err := r.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return Head{}, nil
		}
		return Head{}, libErr("head", err)
	}

	h := Head{Hash: ref.Hash().String()}
	if ref.Name().IsBranch() {
		h.Branch = ref.Name().Short()
	} else {
		h.Detached = true
	}

	if commit, err := r.repo.CommitObject(ref.Hash()); err == nil {
		h.Summary = firstLine(commit.Message)
	}
	return h, nil
}

// Branches lists local branches.
func (r *Repository) Branches() ([]Branch, error) {
	head, _ := r.repo.Head()

	iter, err := r.repo.Branches()
	if err != nil {
		return nil, libErr("branches", err)
	}
	defer iter.Close()

	var branches []Branch
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		branches = append(branches, Branch{
			Name:    ref.Name().Short(),
			Hash:    ref.Hash().String(),
			Current: head != nil && head.Name() == ref.Name(),
		})
		return nil
	})
	if err != nil {
		return nil, libErr("branches", err)
	}
	return branches, nil
}

// Tags lists tags, annotated tags resolved to their target commit.
func (r *Repository) Tags() ([]Tag, error) {
	iter, err := r.repo.Tags()
	if err != nil {
		return nil, libErr("tags", err)
	}
	defer iter.Close()

	var tags []Tag
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		hash := ref.Hash()
		if tagObj, tagErr := r.repo.TagObject(hash); tagErr == nil {
			hash = tagObj.Target
		}
		tags = append(tags, Tag{Name: ref.Name().Short(), Hash: hash.String()})
		return nil
	})
	if err != nil {
		return nil, libErr("tags", err)
	}
	return tags, nil
}

// Log returns up to limit commits reachable from HEAD, newest first.
func (r *Repository) Log(limit int) ([]Commit, error) {
	ref, err := r.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, nil
		}
		return nil, libErr("log", err)
	}

	iter, err := r.repo.Log(&gogit.LogOptions{From: ref.Hash()})
	if err != nil {
		return nil, libErr("log", err)
	}
	defer iter.Close()

	var commits []Commit
	err = iter.ForEach(func(c *object.Commit) error {
		commits = append(commits, Commit{
			Hash:    c.Hash.String(),
			Summary: firstLine(c.Message),
			Author:  c.Author.Name,
			When:    c.Author.When,
		})
		if limit > 0 && len(commits) >= limit {
			return errStopIteration
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStopIteration) {
		return nil, libErr("log", err)
	}
	return commits, nil
}

// ResolveRev resolves a revision expression to a full commit hash.
func (r *Repository) ResolveRev(rev string) (string, error) {
	hash, err := r.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return "", libErr("resolve "+rev, err)
	}
	return hash.String(), nil
}

var errStopIteration = errors.New("stop iteration")

func firstLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return s[:i]
		}
	}
	return s
}

package git

import (
	"fmt"
	"strings"
)

// ApplyOptions selects where and how a patch lands.
type ApplyOptions struct {
	// Cached applies to the index only, leaving the worktree alone.
	Cached bool
	// Reverse applies the patch backwards.
	Reverse bool
	// Check validates the patch without applying it.
	Check bool
}

// Apply feeds a unified patch to `git apply`. A patch that fails the
// validity check (or fails to land) surfaces as ErrStaleTarget so the
// caller knows to refresh and retry; the index and worktree are untouched
// in that case because git apply is atomic per invocation.
func (r *Repository) Apply(patch string, opts ApplyOptions) error {
	args := []string{"apply", "--whitespace=nowarn"}
	if opts.Cached {
		args = append(args, "--cached")
	}
	if opts.Reverse {
		args = append(args, "--reverse")
	}
	if opts.Check {
		args = append(args, "--check")
	}
	args = append(args, "-")

	if err := r.runStdin(patch, args...); err != nil {
		if isApplyMismatch(err) {
			return fmt.Errorf("%w: %v", ErrStaleTarget, err)
		}
		return libErr("apply", err)
	}
	return nil
}

// isApplyMismatch distinguishes "patch does not fit the current tree"
// from infrastructure failures.
func isApplyMismatch(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "patch does not apply") ||
		strings.Contains(msg, "does not match index") ||
		strings.Contains(msg, "already exists in") ||
		strings.Contains(msg, "No such file or directory") && strings.Contains(msg, "apply")
}

// StagePaths adds whole files to the index. Deleted files are recorded as
// removals, which `git add -A --` handles for both cases.
func (r *Repository) StagePaths(paths ...string) error {
	args := append([]string{"add", "-A", "--"}, paths...)
	if _, err := r.run(args...); err != nil {
		return libErr("add", err)
	}
	return nil
}

// UnstagePaths resets index entries for the given paths back to HEAD.
func (r *Repository) UnstagePaths(paths ...string) error {
	args := append([]string{"reset", "-q", "HEAD", "--"}, paths...)
	if _, err := r.run(args...); err != nil {
		// In an empty repository there is no HEAD to reset against.
		if strings.Contains(err.Error(), "unknown revision") || strings.Contains(err.Error(), "bad revision") {
			rmArgs := append([]string{"rm", "--cached", "-q", "--"}, paths...)
			if _, rmErr := r.run(rmArgs...); rmErr != nil {
				return libErr("rm --cached", rmErr)
			}
			return nil
		}
		return libErr("reset", err)
	}
	return nil
}

// DiscardPaths restores the worktree content of tracked files from the
// index. Irreversible.
func (r *Repository) DiscardPaths(paths ...string) error {
	args := append([]string{"checkout", "--"}, paths...)
	if _, err := r.run(args...); err != nil {
		return libErr("checkout", err)
	}
	return nil
}

// RemoveUntracked deletes untracked files from the worktree. Irreversible.
func (r *Repository) RemoveUntracked(paths ...string) error {
	args := append([]string{"clean", "-f", "--"}, paths...)
	if _, err := r.run(args...); err != nil {
		return libErr("clean", err)
	}
	return nil
}

// Commit records the staged changes.
func (r *Repository) Commit(message string) error {
	if _, err := r.run("commit", "-m", message); err != nil {
		return libErr("commit", err)
	}
	return nil
}

// ResetHard moves HEAD, index and worktree to the given revision.
func (r *Repository) ResetHard(rev string) error {
	if _, err := r.run("reset", "--hard", rev); err != nil {
		return libErr("reset --hard", err)
	}
	return nil
}

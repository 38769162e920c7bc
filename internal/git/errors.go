package git

import (
	"errors"
	"fmt"
)

// Error taxonomy for repository operations. Callers branch on these with
// errors.Is; anything else coming out of this package is a LibraryError.
var (
	// ErrNotRepository indicates the path is not inside a git repository.
	ErrNotRepository = errors.New("not a git repository")

	// ErrDiffUnavailable indicates the repository is in a state where the
	// requested diff cannot be computed.
	ErrDiffUnavailable = errors.New("diff unavailable")

	// ErrStaleTarget indicates a synthesized patch no longer applies because
	// the worktree or index changed since the last refresh.
	ErrStaleTarget = errors.New("stale target")

	// ErrDirtyWorktree indicates uncommitted changes prevent starting an
	// operation.
	ErrDirtyWorktree = errors.New("dirty worktree")

	// ErrUnresolvedConflicts indicates continue was attempted while
	// conflicted files still carry markers.
	ErrUnresolvedConflicts = errors.New("unresolved conflicts")

	// ErrNoOperation indicates continue/abort was called with no operation
	// in progress.
	ErrNoOperation = errors.New("no operation in progress")

	// ErrOperationInProgress indicates start was called while another
	// operation is running or paused.
	ErrOperationInProgress = errors.New("operation already in progress")

	// ErrEmptyPatch indicates a line selection produced a patch with no
	// changed lines.
	ErrEmptyPatch = errors.New("empty patch")
)

// LibraryError wraps an opaque failure from the underlying git machinery
// (exec git or go-git). The Op field names the failed call.
type LibraryError struct {
	Op  string
	Err error
}

func (e *LibraryError) Error() string {
	return fmt.Sprintf("git %s: %v", e.Op, e.Err)
}

func (e *LibraryError) Unwrap() error { return e.Err }

// libErr wraps err as a LibraryError unless it is already part of the
// typed taxonomy.
func libErr(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, sentinel := range []error{
		ErrNotRepository, ErrDiffUnavailable, ErrStaleTarget, ErrDirtyWorktree,
		ErrUnresolvedConflicts, ErrNoOperation, ErrOperationInProgress, ErrEmptyPatch,
	} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	return &LibraryError{Op: op, Err: err}
}

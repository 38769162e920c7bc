package engine

import (
	"fmt"
	"strconv"

	"github.com/cj3636/gstage/internal/conflict"
	"github.com/cj3636/gstage/internal/git"
)

// StartOperation begins a repository operation. rev is the branch or
// commit the operation consumes; for stash apply it is the stash index.
// The call returns once the first step ran to completion: either the
// operation finished (state Idle), or it paused on conflicts (state
// Paused), observable in the next snapshot. A dirty worktree that blocks
// the start surfaces as git.ErrDirtyWorktree.
func (e *Engine) StartOperation(kind git.OpKind, rev string) error {
	return e.do(func() error { return e.mutate(func() error { return e.startOperation(kind, rev) }) })
}

// ContinueOperation resumes a paused operation. It fails with
// git.ErrUnresolvedConflicts while any conflicted file still carries
// markers; files resolved but not yet staged are staged on the way.
func (e *Engine) ContinueOperation() error {
	return e.do(func() error { return e.mutate(e.continueOperation) })
}

// AbortOperation rolls the repository back to its pre-operation state
// via the underlying rollback primitive and returns to Idle. The result
// is always reported; a failed abort leaves the operation paused.
func (e *Engine) AbortOperation() error {
	return e.do(func() error { return e.mutate(e.abortOperation) })
}

func (e *Engine) startOperation(kind git.OpKind, rev string) error {
	if e.op.Active() {
		return git.ErrOperationInProgress
	}

	head, err := e.repo.Head()
	if err != nil {
		return err
	}

	e.op = Operation{Kind: kind, State: OpRunning, Rev: rev, prevHead: head.Hash}
	e.log.Info().Str("op", kind.String()).Str("rev", rev).Msg("starting operation")

	switch kind {
	case git.OpMerge:
		err = e.repo.Merge(rev)
	case git.OpRebase:
		err = e.repo.Rebase(rev)
	case git.OpCherryPick:
		err = e.repo.CherryPick(rev)
	case git.OpRevert:
		err = e.repo.Revert(rev)
	case git.OpStashApply:
		var index int
		index, err = strconv.Atoi(rev)
		if err != nil {
			e.op = Operation{}
			return fmt.Errorf("bad stash index %q: %w", rev, err)
		}
		err = e.repo.StashApply(index)
	default:
		e.op = Operation{}
		return fmt.Errorf("unknown operation kind %d", kind)
	}

	if err != nil {
		// The operation never started; nothing to abort.
		e.op = Operation{}
		return err
	}

	e.settleOperation()
	return nil
}

func (e *Engine) continueOperation() error {
	if e.op.State != OpPaused {
		return git.ErrNoOperation
	}

	if err := e.stageResolved(); err != nil {
		return err
	}

	e.op.State = OpRunning
	e.log.Info().Str("op", e.op.Kind.String()).Int("step", e.op.Step).Msg("continuing operation")

	var err error
	switch e.op.Kind {
	case git.OpMerge:
		err = e.repo.MergeContinue()
	case git.OpRebase:
		err = e.repo.RebaseContinue()
	case git.OpCherryPick:
		err = e.repo.CherryPickContinue()
	case git.OpRevert:
		err = e.repo.RevertContinue()
	case git.OpStashApply:
		// Stash apply has no continue primitive; staging the resolved
		// files is the whole of it.
		err = nil
	default:
		err = git.ErrNoOperation
	}

	if err != nil {
		e.op.State = OpPaused
		return err
	}

	e.settleOperation()
	return nil
}

func (e *Engine) abortOperation() error {
	if e.op.State != OpPaused && e.op.State != OpRunning {
		return git.ErrNoOperation
	}

	e.log.Info().Str("op", e.op.Kind.String()).Msg("aborting operation")

	var err error
	switch e.op.Kind {
	case git.OpMerge:
		err = e.repo.MergeAbort()
	case git.OpRebase:
		err = e.repo.RebaseAbort()
	case git.OpCherryPick:
		err = e.repo.CherryPickAbort()
	case git.OpRevert:
		err = e.repo.RevertAbort()
	case git.OpStashApply:
		// No dedicated abort; restore the recorded pre-apply HEAD state.
		rev := e.op.prevHead
		if rev == "" {
			rev = "HEAD"
		}
		err = e.repo.ResetHard(rev)
	default:
		err = git.ErrNoOperation
	}

	if err != nil {
		e.op.State = OpPaused
		return err
	}

	e.op = Operation{}
	return nil
}

// stageResolved verifies every conflicted file has its markers gone and
// stages the ones not yet in the index. Any file still carrying markers
// fails the whole continue.
func (e *Engine) stageResolved() error {
	status, err := e.repo.Status()
	if err != nil {
		return err
	}

	var toStage []string
	for _, path := range status.Conflicted {
		content, readErr := e.repo.ReadWorktreeFile(path)
		if readErr == nil && conflict.HasMarkers(string(content)) {
			return git.ErrUnresolvedConflicts
		}
		toStage = append(toStage, path)
	}
	if len(toStage) > 0 {
		return e.repo.StagePaths(toStage...)
	}
	return nil
}

// settleOperation decides where a step landed: conflicts pause the
// operation, a cleared marker concludes it.
func (e *Engine) settleOperation() {
	status, err := e.repo.Status()
	if err != nil {
		// Leave the operation paused; the next refresh reconciles
		// against the on-disk markers.
		e.op.State = OpPaused
		e.snap.Err = err
		return
	}

	marker := e.repo.CurrentOpMarker()
	if marker.Kind == git.OpRebase {
		e.op.Step = marker.Step
		e.op.Total = marker.Total
	}

	switch {
	case status.HasConflicts():
		e.op.State = OpPaused
		e.log.Info().Str("op", e.op.Kind.String()).Int("conflicts", len(status.Conflicted)).Msg("operation paused on conflicts")
	case marker.Kind != git.OpNone:
		// No conflicts but the marker persists (e.g. rebase stopped for
		// an empty commit); keep it paused for an explicit continue.
		e.op.State = OpPaused
	default:
		e.log.Info().Str("op", e.op.Kind.String()).Msg("operation finished")
		e.op = Operation{}
	}
}

package engine

import (
	"github.com/cj3636/gstage/internal/git"
)

// Mutations beyond the staging surface: stash management and commit
// creation. These run on the actor like everything else so the watcher
// never observes a half-finished index.

// Mutator extends Repo with the optional mutations the engine exposes
// when the underlying handle supports them. *git.Repository does.
type Mutator interface {
	StashPush(message string, includeUntracked bool) error
	StashPop(index int) error
	StashDrop(index int) error
	Commit(message string) error
}

// StashPush saves local changes to a new stash entry.
func (e *Engine) StashPush(message string, includeUntracked bool) error {
	return e.do(func() error {
		return e.mutate(func() error {
			m, err := e.mutator()
			if err != nil {
				return err
			}
			return m.StashPush(message, includeUntracked)
		})
	})
}

// StashPop applies and drops a stash entry. Conflicts pause a stash
// apply operation exactly as StartOperation(OpStashApply) would.
func (e *Engine) StashPop(index int) error {
	return e.do(func() error {
		return e.mutate(func() error {
			m, err := e.mutator()
			if err != nil {
				return err
			}
			if err := m.StashPop(index); err != nil {
				return err
			}
			e.settleStash()
			return nil
		})
	})
}

// StashDrop removes a stash entry without applying it.
func (e *Engine) StashDrop(index int) error {
	return e.do(func() error {
		return e.mutate(func() error {
			m, err := e.mutator()
			if err != nil {
				return err
			}
			return m.StashDrop(index)
		})
	})
}

// Commit records the staged changes. During a paused operation the
// orchestrator owns committing; use ContinueOperation instead.
func (e *Engine) Commit(message string) error {
	return e.do(func() error {
		if e.op.Active() {
			return git.ErrOperationInProgress
		}
		return e.mutate(func() error {
			m, err := e.mutator()
			if err != nil {
				return err
			}
			return m.Commit(message)
		})
	})
}

func (e *Engine) mutator() (Mutator, error) {
	if m, ok := e.repo.(Mutator); ok {
		return m, nil
	}
	return nil, git.ErrNoOperation
}

// settleStash promotes a conflicted stash pop into a paused stash-apply
// operation so the usual resolve/continue/abort path takes over.
func (e *Engine) settleStash() {
	status, err := e.repo.Status()
	if err != nil || !status.HasConflicts() {
		return
	}
	head, _ := e.repo.Head()
	e.op = Operation{Kind: git.OpStashApply, State: OpPaused, prevHead: head.Hash}
}

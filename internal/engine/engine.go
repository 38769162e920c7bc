// Package engine is the single-writer core behind the UI: it owns
// repository state, rebuilds the render tree on (debounced) change
// signals, converts cursor positions into minimal patches, and drives
// merge/rebase/cherry-pick/revert/stash operations as explicit state
// machines. All mutations execute serialized on one goroutine; the UI
// and the watcher only ever enqueue work.
package engine

import (
	"github.com/rs/zerolog"

	"github.com/cj3636/gstage/internal/conflict"
	"github.com/cj3636/gstage/internal/cursor"
	"github.com/cj3636/gstage/internal/git"
	"github.com/cj3636/gstage/internal/tree"
)

// Repo is the slice of the git layer the engine drives. *git.Repository
// implements it; tests substitute a fake.
type Repo interface {
	Diff(git.Scope) (*git.Diff, error)
	Status() (*git.Status, error)
	Head() (git.Head, error)

	Apply(patch string, opts git.ApplyOptions) error
	StagePaths(paths ...string) error
	UnstagePaths(paths ...string) error
	DiscardPaths(paths ...string) error
	RemoveUntracked(paths ...string) error

	ReadWorktreeFile(path string) ([]byte, error)
	WriteWorktreeFile(path string, content []byte) error

	CurrentOpMarker() git.OpMarker
	Merge(rev string) error
	MergeContinue() error
	MergeAbort() error
	Rebase(onto string) error
	RebaseContinue() error
	RebaseAbort() error
	CherryPick(rev string) error
	CherryPickContinue() error
	CherryPickAbort() error
	Revert(rev string) error
	RevertContinue() error
	RevertAbort() error
	StashApply(index int) error
	ResetHard(rev string) error
}

// Engine is the core actor. Construct with New, then Run on a dedicated
// goroutine (or call Start to spawn one).
type Engine struct {
	repo    Repo
	builder *tree.Builder
	cursor  *cursor.Model
	log     zerolog.Logger

	cmds    chan command
	changes <-chan struct{}
	done    chan struct{}

	// Actor-owned state; only the run loop touches these.
	op        Operation
	lastInput tree.Input
	lastTree  *tree.Tree
	snap      Snapshot

	updates chan Snapshot
}

type command struct {
	fn    func() error
	reply chan error
}

// New builds an engine over the given repository handle.
func New(repo Repo, log zerolog.Logger) *Engine {
	return &Engine{
		repo:    repo,
		builder: tree.NewBuilder(),
		cursor:  cursor.New(),
		log:     log.With().Str("component", "engine").Logger(),
		cmds:    make(chan command),
		done:    make(chan struct{}),
		updates: make(chan Snapshot, 1),
	}
}

// Start runs the actor loop on a new goroutine, consuming debounced
// change signals from changes (may be nil). An initial refresh runs
// before the first command is accepted.
func (e *Engine) Start(changes <-chan struct{}) {
	e.changes = changes
	go e.run()
}

// Stop terminates the actor loop. In-flight commands finish first.
func (e *Engine) Stop() { close(e.done) }

// Updates delivers the latest snapshot after every refresh or cursor
// change. The channel holds one element; unconsumed snapshots are
// replaced by newer ones (last-write-wins).
func (e *Engine) Updates() <-chan Snapshot { return e.updates }

func (e *Engine) run() {
	e.refresh()
	for {
		select {
		case <-e.done:
			return
		case cmd := <-e.cmds:
			cmd.reply <- cmd.fn()
		case <-e.changes:
			// Watcher signal. Commands already queued were enqueued
			// before this refresh fires and still run serialized after
			// it; a mutation mid-flight is impossible because this loop
			// is the only writer.
			e.refresh()
		}
	}
}

// do executes fn on the actor goroutine and waits for its result.
func (e *Engine) do(fn func() error) error {
	cmd := command{fn: fn, reply: make(chan error, 1)}
	select {
	case e.cmds <- cmd:
		return <-cmd.reply
	case <-e.done:
		return ErrStopped
	}
}

// Refresh forces a full rebuild of the render tree.
func (e *Engine) Refresh() error {
	return e.do(func() error {
		e.refresh()
		return e.snap.Err
	})
}

// SetCursor moves the cursor to the node with the given key and clears
// any multi-selection.
func (e *Engine) SetCursor(key string) error {
	return e.do(func() error {
		if err := e.cursor.Set(e.lastTree, key); err != nil {
			return err
		}
		e.publish()
		return nil
	})
}

// ExtendSelection adds a sibling line to the multi-selection.
func (e *Engine) ExtendSelection(key string) error {
	return e.do(func() error {
		if err := e.cursor.Extend(e.lastTree, key); err != nil {
			return err
		}
		e.publish()
		return nil
	})
}

// ToggleExpand flips a node's collapse state and rebuilds the tree from
// the cached diffs (no repository reads).
func (e *Engine) ToggleExpand(key string) error {
	return e.do(func() error {
		if e.lastTree.Find(key) == nil {
			return cursor.ErrUnknownKey
		}
		e.builder.Toggle(key)
		e.rebuildFromCache()
		return nil
	})
}

// Stage stages the target under the cursor (line subset, hunk, file or
// untracked file) into the index.
func (e *Engine) Stage() error {
	return e.do(func() error { return e.mutate(e.stageTarget) })
}

// Unstage removes the target under the cursor from the index, leaving
// the worktree untouched.
func (e *Engine) Unstage() error {
	return e.do(func() error { return e.mutate(e.unstageTarget) })
}

// Discard reverts the target under the cursor in the worktree.
// Irreversible; confirmation is the UI's business.
func (e *Engine) Discard() error {
	return e.do(func() error { return e.mutate(e.discardTarget) })
}

// ResolveConflict keeps one side of the conflict section identified by
// key, rewrites the file without its markers, and stages the file once
// no sections remain.
func (e *Engine) ResolveConflict(key string, side conflict.Side) error {
	return e.do(func() error { return e.mutate(func() error { return e.resolveConflict(key, side) }) })
}

// Snapshot returns the latest published snapshot.
func (e *Engine) Snapshot() Snapshot {
	reply := make(chan Snapshot, 1)
	err := e.do(func() error {
		reply <- e.snap
		return nil
	})
	if err != nil {
		return Snapshot{}
	}
	return <-reply
}

// mutate wraps a repository mutation: it runs to completion (never
// cancelled), then immediately re-triggers a refresh so the tree is
// rebuilt against the post-mutation index.
func (e *Engine) mutate(fn func() error) error {
	err := fn()
	e.refresh()
	return err
}

// publish stores the current snapshot and pushes it to the updates
// channel, displacing any unconsumed older snapshot.
func (e *Engine) publish() {
	e.snap.Cursor = e.cursor.Current()
	e.snap.Selected = e.cursor.SelectionKeys()
	select {
	case e.updates <- e.snap:
	default:
		select {
		case <-e.updates:
		default:
		}
		select {
		case e.updates <- e.snap:
		default:
		}
	}
}

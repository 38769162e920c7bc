package engine

import (
	"github.com/cj3636/gstage/internal/git"
	"github.com/cj3636/gstage/internal/tree"
)

// OpState is the orchestrator's position in the operation state machine.
type OpState int

const (
	// OpIdle means no operation is in progress.
	OpIdle OpState = iota
	// OpRunning means an operation step is executing. Steps run to
	// completion on the engine goroutine, so Running is never observed
	// from outside; it exists so transitions are explicit.
	OpRunning
	// OpPaused means the operation hit conflicts and waits for
	// resolution plus an explicit continue (or abort).
	OpPaused
)

// String returns the state name.
func (s OpState) String() string {
	switch s {
	case OpRunning:
		return "running"
	case OpPaused:
		return "paused"
	default:
		return "idle"
	}
}

// Operation describes the in-progress repository operation. It lives in
// memory only; after a restart the git dir's own markers are the source
// of truth and the refresh loop re-adopts them.
type Operation struct {
	Kind  git.OpKind
	State OpState
	// Step and Total expose rebase progress (1-based step over total
	// picks); zero for single-step operations.
	Step  int
	Total int
	// Rev is the revision the operation was started with, when known.
	Rev string

	// prevHead records the HEAD hash at start for rollbacks that have no
	// dedicated abort primitive.
	prevHead string
}

// Active reports whether an operation is running or paused.
func (o Operation) Active() bool { return o.State != OpIdle }

// RepositoryState is the engine-owned summary handed to the UI next to
// the render tree. The UI never mutates repository state directly; it
// issues commands back into the engine.
type RepositoryState struct {
	Head      git.Head
	Operation Operation
	Dirty     bool
	// Ahead and Behind count commits relative to upstream.
	Ahead  int
	Behind int
}

// Snapshot is the immutable refresh product consumed by the UI. When a
// refresh fails, Tree is the last good tree and Err carries the failure.
type Snapshot struct {
	Tree  *tree.Tree
	State RepositoryState
	Err   error
	// Cursor is the current cursor key so the UI can highlight it
	// without reaching into the cursor model.
	Cursor string
	// Selected holds the multi-selected keys, nil when none.
	Selected map[string]bool
}

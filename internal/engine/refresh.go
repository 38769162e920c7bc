package engine

import (
	"errors"
	"sort"

	"github.com/cj3636/gstage/internal/conflict"
	"github.com/cj3636/gstage/internal/git"
	"github.com/cj3636/gstage/internal/tree"
)

// ErrStopped is returned for commands issued after Stop.
var ErrStopped = errors.New("engine stopped")

// refresh rebuilds the render tree from the live repository. On failure
// the previous tree is retained and the snapshot's Err flag carries the
// cause; the engine never crashes a refresh.
func (e *Engine) refresh() {
	input, state, err := e.collect()
	if err != nil {
		e.log.Warn().Err(err).Msg("refresh failed, keeping previous tree")
		e.snap.Err = err
		e.publish()
		return
	}

	fresh := e.builder.Build(input)
	e.cursor.Reanchor(e.lastTree, fresh)

	e.lastInput = input
	e.lastTree = fresh
	e.snap = Snapshot{Tree: fresh, State: state}
	e.publish()
}

// rebuildFromCache rebuilds the tree from the last collected diffs,
// for collapse toggles that change structure but not repository state.
func (e *Engine) rebuildFromCache() {
	fresh := e.builder.Build(e.lastInput)
	e.cursor.Reanchor(e.lastTree, fresh)
	e.lastTree = fresh
	e.snap.Tree = fresh
	e.publish()
}

// collect gathers the three raw diffs, untracked paths and parsed
// conflict sections that a build consumes.
func (e *Engine) collect() (tree.Input, RepositoryState, error) {
	var input tree.Input
	var state RepositoryState

	status, err := e.repo.Status()
	if err != nil {
		return input, state, err
	}

	head, err := e.repo.Head()
	if err != nil {
		return input, state, err
	}

	unstaged, err := e.repo.Diff(git.Scope{Kind: git.WorktreeVsIndex})
	if err != nil && !errors.Is(err, git.ErrDiffUnavailable) {
		return input, state, err
	}
	if unstaged == nil {
		unstaged = &git.Diff{}
	}

	staged, err := e.repo.Diff(git.Scope{Kind: git.IndexVsHead})
	if err != nil && !errors.Is(err, git.ErrDiffUnavailable) {
		return input, state, err
	}
	if staged == nil {
		staged = &git.Diff{}
	}

	conflicts, err := e.collectConflicts(status)
	if err != nil {
		return input, state, err
	}

	input = tree.Input{
		Unstaged:  filterPaths(unstaged, status.Conflicted),
		Staged:    filterPaths(staged, status.Conflicted),
		Untracked: append([]string(nil), status.Untracked...),
		Conflicts: conflicts,
	}

	e.reconcileOperation(status)

	state = RepositoryState{
		Head:      head,
		Operation: e.op,
		Dirty:     status.IsDirty(),
		Ahead:     status.Ahead,
		Behind:    status.Behind,
	}
	return input, state, nil
}

// collectConflicts parses marker sections out of every unmerged file. A
// conflicted file whose markers are already gone (resolved but not yet
// staged) contributes no sections and therefore leaves the Conflicts
// section once staged.
func (e *Engine) collectConflicts(status *git.Status) ([]tree.ConflictFile, error) {
	paths := append([]string(nil), status.Conflicted...)
	sort.Strings(paths)

	var files []tree.ConflictFile
	for _, path := range paths {
		content, err := e.repo.ReadWorktreeFile(path)
		if err != nil {
			// Deleted-by-them/us conflicts have no worktree content.
			files = append(files, tree.ConflictFile{Path: path})
			continue
		}
		sections, err := conflict.Parse(string(content))
		if err != nil {
			return nil, err
		}
		files = append(files, tree.ConflictFile{Path: path, Sections: sections})
	}
	return files, nil
}

// filterPaths drops conflicted paths from a diff so a file never appears
// in Unstaged or Staged while it is in Conflicts.
func filterPaths(d *git.Diff, exclude []string) *git.Diff {
	if d.IsEmpty() || len(exclude) == 0 {
		return d
	}
	excluded := make(map[string]bool, len(exclude))
	for _, p := range exclude {
		excluded[p] = true
	}
	out := &git.Diff{}
	for _, f := range d.Files {
		if !excluded[f.Path] {
			out.Files = append(out.Files, f)
		}
	}
	return out
}

// reconcileOperation aligns the in-memory operation with the git dir's
// on-disk markers. The markers win: they survive restarts and reflect
// operations concluded or started outside the engine.
func (e *Engine) reconcileOperation(status *git.Status) {
	marker := e.repo.CurrentOpMarker()

	switch {
	case marker.Kind == git.OpNone:
		// Stash-apply conflicts leave no marker; the operation stays
		// paused while unmerged paths remain.
		if e.op.Kind == git.OpStashApply && e.op.State == OpPaused && status.HasConflicts() {
			return
		}
		if e.op.Active() {
			e.log.Debug().Str("op", e.op.Kind.String()).Msg("operation concluded outside engine")
		}
		e.op = Operation{}

	case !e.op.Active():
		// Adopted from disk: a restart mid-operation or an operation
		// started by another tool. It always adopts as paused; even
		// without conflicted paths it needs an explicit continue.
		e.op = Operation{
			Kind:  marker.Kind,
			State: OpPaused,
			Step:  marker.Step,
			Total: marker.Total,
		}

	default:
		e.op.Step = marker.Step
		e.op.Total = marker.Total
	}
}

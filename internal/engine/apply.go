package engine

import (
	"errors"
	"fmt"

	"github.com/cj3636/gstage/internal/conflict"
	"github.com/cj3636/gstage/internal/cursor"
	"github.com/cj3636/gstage/internal/git"
	"github.com/cj3636/gstage/internal/patch"
	"github.com/cj3636/gstage/internal/tree"
)

// ErrWrongSection is returned when a command does not apply to the
// section the cursor is in (e.g. discard inside Staged).
var ErrWrongSection = errors.New("command does not apply to this section")

// synthesize renders the minimal patch for a resolved target. reverse
// must mirror the ApplyOptions the patch is destined for: a line subset
// keeps the unselected changes intact on the side git matches against,
// which is the old side on a forward apply and the new side on a
// reverse one.
func synthesize(t cursor.Target, reverse bool) (string, error) {
	switch t.Kind {
	case cursor.TargetLines:
		return patch.Lines(t.File, t.HunkIndex, t.LineIndexes, reverse)
	case cursor.TargetHunk:
		return patch.Hunk(t.File, t.HunkIndex)
	case cursor.TargetFile:
		return patch.File(t.File), nil
	default:
		return "", cursor.ErrNoTarget
	}
}

// applyChecked validates the synthesized patch against the current tree
// before committing it, so a half-applied hunk is impossible: either the
// whole patch lands or the call fails with ErrStaleTarget.
func (e *Engine) applyChecked(p string, opts git.ApplyOptions) error {
	check := opts
	check.Check = true
	if err := e.repo.Apply(p, check); err != nil {
		return err
	}
	return e.repo.Apply(p, opts)
}

func (e *Engine) stageTarget() error {
	t, err := e.cursor.Resolve(e.lastTree)
	if err != nil {
		return err
	}

	switch t.Section {
	case tree.SectionStaged:
		// Already staged: idempotent no-op, not a stale target.
		return nil
	case tree.SectionConflicts:
		return ErrWrongSection
	case tree.SectionUntracked:
		return e.repo.StagePaths(t.Path)
	}

	// Whole files go through the index directly; git add covers
	// modifications, additions and deletions alike.
	if t.Kind == cursor.TargetFile {
		return e.repo.StagePaths(t.Path)
	}

	p, err := synthesize(t, false)
	if err != nil {
		return err
	}
	e.log.Debug().Str("path", t.Path).Int("hunk", t.HunkIndex).Msg("staging patch")
	return e.applyChecked(p, git.ApplyOptions{Cached: true})
}

func (e *Engine) unstageTarget() error {
	t, err := e.cursor.Resolve(e.lastTree)
	if err != nil {
		return err
	}

	switch t.Section {
	case tree.SectionUnstaged, tree.SectionUntracked:
		// Nothing of this target is in the index: idempotent no-op.
		return nil
	case tree.SectionConflicts:
		return ErrWrongSection
	}

	if t.Kind == cursor.TargetFile {
		return e.repo.UnstagePaths(t.Path)
	}

	p, err := synthesize(t, true)
	if err != nil {
		return err
	}
	e.log.Debug().Str("path", t.Path).Int("hunk", t.HunkIndex).Msg("unstaging patch")
	return e.applyChecked(p, git.ApplyOptions{Cached: true, Reverse: true})
}

func (e *Engine) discardTarget() error {
	t, err := e.cursor.Resolve(e.lastTree)
	if err != nil {
		return err
	}

	switch t.Section {
	case tree.SectionStaged, tree.SectionConflicts:
		return ErrWrongSection
	case tree.SectionUntracked:
		return e.repo.RemoveUntracked(t.Path)
	}

	if t.Kind == cursor.TargetFile {
		if t.Status == git.StatusAdded {
			return e.repo.RemoveUntracked(t.Path)
		}
		return e.repo.DiscardPaths(t.Path)
	}

	p, err := synthesize(t, true)
	if err != nil {
		return err
	}
	e.log.Debug().Str("path", t.Path).Int("hunk", t.HunkIndex).Msg("discarding patch")
	return e.applyChecked(p, git.ApplyOptions{Reverse: true})
}

// resolveConflict rewrites the conflicted file keeping the chosen side of
// the section identified by key. Once the last section is gone the file
// is staged, which is what moves it out of the Conflicts section and
// lets a paused operation continue.
func (e *Engine) resolveConflict(key string, side conflict.Side) error {
	node := e.lastTree.Find(key)
	if node == nil {
		return cursor.ErrUnknownKey
	}
	if node.Conflict == nil {
		return fmt.Errorf("%w: %s is not a conflict node", cursor.ErrNoTarget, key)
	}

	content, err := e.repo.ReadWorktreeFile(node.Path)
	if err != nil {
		return err
	}

	if preview, perr := conflict.Preview(node.Path, string(content), node.Conflict.Ordinal, side); perr == nil {
		e.log.Debug().Str("path", node.Path).Str("side", side.String()).Str("diff", preview).Msg("resolving conflict")
	}

	resolved, err := conflict.Resolve(string(content), node.Conflict.Ordinal, side)
	if err != nil {
		return err
	}
	if err := e.repo.WriteWorktreeFile(node.Path, []byte(resolved)); err != nil {
		return err
	}

	if !conflict.HasMarkers(resolved) {
		return e.repo.StagePaths(node.Path)
	}
	return nil
}

// Package cursor tracks the current node and any multi-selection in the
// render tree, and turns a cursor position into the target of a command:
// a line subset, a whole hunk, a whole file, or one side of a conflict.
package cursor

import (
	"errors"
	"fmt"
	"sort"

	"github.com/cj3636/gstage/internal/conflict"
	"github.com/cj3636/gstage/internal/git"
	"github.com/cj3636/gstage/internal/tree"
)

// Selection errors.
var (
	ErrNoTarget      = errors.New("cursor is not on an actionable node")
	ErrUnknownKey    = errors.New("unknown node key")
	ErrMixedSiblings = errors.New("selection must stay within sibling lines of one hunk")
)

// TargetKind says what a command operates on.
type TargetKind int

const (
	TargetLines TargetKind = iota
	TargetHunk
	TargetFile
	TargetConflictSide
)

// Target is the resolved object of a stage/unstage/discard/resolve
// command.
type Target struct {
	Kind    TargetKind
	Section tree.Section
	Path    string
	Status  git.FileStatus

	// File and HunkIndex are set for TargetLines, TargetHunk and
	// diff-backed TargetFile.
	File      *git.FileDiff
	HunkIndex int
	// LineIndexes are positions within the hunk's Lines slice, ascending.
	LineIndexes []int

	// ConflictOrdinal and Side are set for TargetConflictSide.
	ConflictOrdinal int
	Side            conflict.Side
}

// Model holds the cursor key and the multi-selected sibling keys.
type Model struct {
	current  string
	selected map[string]bool
}

// New returns an empty cursor model.
func New() *Model {
	return &Model{selected: make(map[string]bool)}
}

// Current returns the current node key, empty if unset.
func (m *Model) Current() string { return m.current }

// Selected reports whether a key is in the multi-selection.
func (m *Model) Selected(key string) bool { return m.selected[key] }

// SelectionKeys returns a copy of the multi-selected keys, nil when the
// selection is empty.
func (m *Model) SelectionKeys() map[string]bool {
	if len(m.selected) == 0 {
		return nil
	}
	keys := make(map[string]bool, len(m.selected))
	for k := range m.selected {
		keys[k] = true
	}
	return keys
}

// SelectionSize returns the number of multi-selected keys.
func (m *Model) SelectionSize() int { return len(m.selected) }

// Set moves the cursor and clears any multi-selection.
func (m *Model) Set(t *tree.Tree, key string) error {
	if t.Find(key) == nil {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	m.current = key
	m.clearSelection()
	return nil
}

// Extend adds a node to the multi-selection. The node must be a Line
// sharing its parent hunk with the cursor (and any prior selection); the
// cursor node itself is implicitly part of the selection.
func (m *Model) Extend(t *tree.Tree, key string) error {
	node := t.Find(key)
	if node == nil {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	cur := t.Find(m.current)
	if cur == nil {
		return ErrNoTarget
	}
	if node.Kind != tree.KindLine || cur.Kind != tree.KindLine || node.Parent != cur.Parent {
		return ErrMixedSiblings
	}
	m.selected[key] = true
	return nil
}

// Reanchor re-points the model at an equivalent node in a freshly built
// tree. The cursor falls back to the nearest surviving ancestor key and
// finally to the first section; selection keys that no longer exist are
// dropped, and per the selection contract any loss clears the whole
// selection.
func (m *Model) Reanchor(old, fresh *tree.Tree) {
	for key := range m.selected {
		if fresh.Find(key) == nil {
			m.clearSelection()
			break
		}
	}

	if fresh.Find(m.current) != nil {
		return
	}
	m.clearSelection()

	// Climb the old tree's ancestry looking for a surviving key.
	if old != nil {
		for node := old.Find(m.current); node != nil; node = old.Find(node.Parent) {
			if fresh.Find(node.Key) != nil {
				m.current = node.Key
				return
			}
		}
	}

	if len(fresh.Sections) > 0 {
		m.current = fresh.Sections[0].Key
	} else {
		m.current = ""
	}
}

// Resolve turns the cursor position and selection into a command target.
// Precedence: multi-selected lines within one hunk, then the hunk under
// the cursor, then the file, then a conflict side.
func (m *Model) Resolve(t *tree.Tree) (Target, error) {
	node := t.Find(m.current)
	if node == nil {
		return Target{}, ErrNoTarget
	}

	// Conflict nodes resolve to a side regardless of selection.
	if node.Conflict != nil {
		return Target{
			Kind:            TargetConflictSide,
			Section:         node.Section,
			Path:            node.Path,
			Status:          node.Status,
			ConflictOrdinal: node.Conflict.Ordinal,
			Side:            node.Side,
		}, nil
	}

	switch node.Kind {
	case tree.KindLine:
		if len(m.selected) > 0 {
			return m.lineSubset(t, node)
		}
		return hunkTarget(node), nil
	case tree.KindHunk:
		return hunkTarget(node), nil
	case tree.KindFile:
		return Target{
			Kind:    TargetFile,
			Section: node.Section,
			Path:    node.Path,
			Status:  node.Status,
			File:    node.File,
		}, nil
	default:
		return Target{}, ErrNoTarget
	}
}

func (m *Model) lineSubset(t *tree.Tree, cur *tree.Node) (Target, error) {
	idxs := []int{cur.LineIndex}
	for key := range m.selected {
		sel := t.Find(key)
		if sel == nil || sel.Parent != cur.Parent {
			return Target{}, ErrMixedSiblings
		}
		if sel.Key != cur.Key {
			idxs = append(idxs, sel.LineIndex)
		}
	}
	sort.Ints(idxs)

	return Target{
		Kind:        TargetLines,
		Section:     cur.Section,
		Path:        cur.Path,
		Status:      cur.Status,
		File:        cur.File,
		HunkIndex:   cur.HunkIndex,
		LineIndexes: idxs,
	}, nil
}

func hunkTarget(node *tree.Node) Target {
	return Target{
		Kind:      TargetHunk,
		Section:   node.Section,
		Path:      node.Path,
		Status:    node.Status,
		File:      node.File,
		HunkIndex: node.HunkIndex,
	}
}

func (m *Model) clearSelection() {
	if len(m.selected) > 0 {
		m.selected = make(map[string]bool)
	}
}

// Package tree builds the hierarchical render tree the UI navigates:
// Section → File → Hunk/Conflict → Line. Every rebuild produces a fresh
// immutable tree; nodes are matched across rebuilds by stable structural
// keys so cursor position and collapse state survive a refresh.
package tree

import (
	"fmt"

	"github.com/cj3636/gstage/internal/conflict"
	"github.com/cj3636/gstage/internal/git"
)

// Section identifies one of the four top-level groups.
type Section int

const (
	SectionConflicts Section = iota
	SectionUntracked
	SectionUnstaged
	SectionStaged
)

// Title returns the section heading shown to the user.
func (s Section) Title() string {
	switch s {
	case SectionConflicts:
		return "Conflicts"
	case SectionUntracked:
		return "Untracked files"
	case SectionUnstaged:
		return "Unstaged changes"
	case SectionStaged:
		return "Staged changes"
	default:
		return "?"
	}
}

func (s Section) keyName() string {
	switch s {
	case SectionConflicts:
		return "conflicts"
	case SectionUntracked:
		return "untracked"
	case SectionUnstaged:
		return "unstaged"
	case SectionStaged:
		return "staged"
	default:
		return "?"
	}
}

// NodeKind tags the node variants.
type NodeKind int

const (
	KindSection NodeKind = iota
	KindFile
	KindHunk
	KindLine
	KindConflict
)

// Node is one entry in the render tree. Nodes are immutable once the
// tree is built; collapse toggles go through the Builder and take effect
// on the next build.
type Node struct {
	Kind     NodeKind
	Key      string
	Parent   string
	Display  string
	Expanded bool

	Section Section
	Path    string
	Status  git.FileStatus

	// File is set on KindFile nodes in the diff-backed sections and on
	// their descendants.
	File *git.FileDiff
	// HunkIndex addresses File.Hunks on KindHunk and KindLine nodes.
	HunkIndex int
	// LineIndex addresses Hunk.Lines on KindLine nodes (or the side's
	// content lines under a conflict node).
	LineIndex int

	// Conflict and Side are set on KindConflict nodes and their lines.
	Conflict *conflict.Section
	Side     conflict.Side

	Children []*Node
}

// Tree is the immutable result of one build.
type Tree struct {
	Sections []*Node
	index    map[string]*Node
}

// Find returns the node with the given stable key, or nil.
func (t *Tree) Find(key string) *Node {
	if t == nil {
		return nil
	}
	return t.index[key]
}

// Walk visits every node depth-first in display order.
func (t *Tree) Walk(fn func(*Node)) {
	var visit func(*Node)
	visit = func(n *Node) {
		fn(n)
		for _, c := range n.Children {
			visit(c)
		}
	}
	for _, s := range t.Sections {
		visit(s)
	}
}

// Visible flattens the tree into display order, descending only into
// expanded nodes.
func (t *Tree) Visible() []*Node {
	var out []*Node
	var visit func(*Node)
	visit = func(n *Node) {
		out = append(out, n)
		if !n.Expanded {
			return
		}
		for _, c := range n.Children {
			visit(c)
		}
	}
	for _, s := range t.Sections {
		visit(s)
	}
	return out
}

// ConflictFile carries a conflicted file's parsed sections plus its raw
// worktree diff for display.
type ConflictFile struct {
	Path     string
	Sections []conflict.Section
}

// Input is everything a build consumes. A build is a pure function of
// this input plus the builder's collapse-state map.
type Input struct {
	// Unstaged is the WorktreeVsIndex diff with conflicted paths already
	// filtered out.
	Unstaged *git.Diff
	// Staged is the IndexVsHead diff.
	Staged *git.Diff
	// Untracked lists paths not in the index.
	Untracked []string
	// Conflicts lists conflicted files with their parsed marker sections.
	Conflicts []ConflictFile
}

// Builder rebuilds the tree wholesale on each refresh, carrying collapse
// state across rebuilds by stable key.
type Builder struct {
	expanded map[string]bool
}

// NewBuilder returns a builder with no remembered collapse state.
func NewBuilder() *Builder {
	return &Builder{expanded: make(map[string]bool)}
}

// Toggle flips the remembered expand state for a key. Takes effect on
// the next Build.
func (b *Builder) Toggle(key string) {
	b.expanded[key] = !b.expanded[key]
}

// SetExpanded records an explicit expand state for a key.
func (b *Builder) SetExpanded(key string, expanded bool) {
	b.expanded[key] = expanded
}

// Build assembles a fresh tree. Empty sections are omitted. New file
// nodes default to collapsed; hunks default to expanded so an expanded
// file immediately shows its hunks; sections are always expanded unless
// explicitly collapsed.
func (b *Builder) Build(in Input) *Tree {
	t := &Tree{index: make(map[string]*Node)}

	if len(in.Conflicts) > 0 {
		t.Sections = append(t.Sections, b.buildConflicts(t, in.Conflicts))
	}
	if len(in.Untracked) > 0 {
		t.Sections = append(t.Sections, b.buildUntracked(t, in.Untracked))
	}
	if !in.Unstaged.IsEmpty() {
		t.Sections = append(t.Sections, b.buildDiffSection(t, SectionUnstaged, in.Unstaged))
	}
	if !in.Staged.IsEmpty() {
		t.Sections = append(t.Sections, b.buildDiffSection(t, SectionStaged, in.Staged))
	}

	// Drop remembered state for keys that no longer exist so the map does
	// not grow without bound across refreshes.
	for key := range b.expanded {
		if _, ok := t.index[key]; !ok {
			delete(b.expanded, key)
		}
	}
	return t
}

func (b *Builder) add(t *Tree, n *Node, defaultExpanded bool) *Node {
	if state, ok := b.expanded[n.Key]; ok {
		n.Expanded = state
	} else {
		n.Expanded = defaultExpanded
	}
	t.index[n.Key] = n
	return n
}

func (b *Builder) sectionNode(t *Tree, s Section) *Node {
	return b.add(t, &Node{
		Kind:    KindSection,
		Key:     "section:" + s.keyName(),
		Display: s.Title(),
		Section: s,
	}, true)
}

func (b *Builder) buildDiffSection(t *Tree, s Section, d *git.Diff) *Node {
	sec := b.sectionNode(t, s)
	for i := range d.Files {
		f := &d.Files[i]
		sec.Children = append(sec.Children, b.buildFile(t, sec, s, f))
	}
	return sec
}

func (b *Builder) buildFile(t *Tree, parent *Node, s Section, f *git.FileDiff) *Node {
	fileKey := fmt.Sprintf("%s:%s", s.keyName(), f.Path)
	added, removed := f.Changes()
	file := b.add(t, &Node{
		Kind:    KindFile,
		Key:     fileKey,
		Parent:  parent.Key,
		Display: fmt.Sprintf("%s %s (+%d -%d)", statusGlyph(f.Status), displayPath(f), added, removed),
		Section: s,
		Path:    f.Path,
		Status:  f.Status,
		File:    f,
	}, false)

	for hi := range f.Hunks {
		h := &f.Hunks[hi]
		hunkKey := fmt.Sprintf("%s:%s", fileKey, h.Header)
		hunk := b.add(t, &Node{
			Kind:      KindHunk,
			Key:       hunkKey,
			Parent:    fileKey,
			Display:   h.Header,
			Section:   s,
			Path:      f.Path,
			Status:    f.Status,
			File:      f,
			HunkIndex: hi,
		}, true)

		for li, line := range h.Lines {
			lineKey := fmt.Sprintf("%s:%d", hunkKey, li)
			hunk.Children = append(hunk.Children, b.add(t, &Node{
				Kind:      KindLine,
				Key:       lineKey,
				Parent:    hunkKey,
				Display:   string(line.Kind) + line.Text,
				Section:   s,
				Path:      f.Path,
				Status:    f.Status,
				File:      f,
				HunkIndex: hi,
				LineIndex: li,
			}, false))
		}
		file.Children = append(file.Children, hunk)
	}
	return file
}

func (b *Builder) buildUntracked(t *Tree, paths []string) *Node {
	sec := b.sectionNode(t, SectionUntracked)
	for _, p := range paths {
		key := fmt.Sprintf("%s:%s", SectionUntracked.keyName(), p)
		sec.Children = append(sec.Children, b.add(t, &Node{
			Kind:    KindFile,
			Key:     key,
			Parent:  sec.Key,
			Display: "? " + p,
			Section: SectionUntracked,
			Path:    p,
			Status:  git.StatusUntracked,
		}, false))
	}
	return sec
}

func (b *Builder) buildConflicts(t *Tree, files []ConflictFile) *Node {
	sec := b.sectionNode(t, SectionConflicts)
	for fi := range files {
		cf := &files[fi]
		fileKey := fmt.Sprintf("%s:%s", SectionConflicts.keyName(), cf.Path)
		file := b.add(t, &Node{
			Kind:    KindFile,
			Key:     fileKey,
			Parent:  sec.Key,
			Display: fmt.Sprintf("! %s (%d unresolved)", cf.Path, len(cf.Sections)),
			Section: SectionConflicts,
			Path:    cf.Path,
			Status:  git.StatusConflicted,
		}, false)

		for si := range cf.Sections {
			cs := &cf.Sections[si]
			for _, side := range []conflict.Side{conflict.SideOurs, conflict.SideTheirs} {
				file.Children = append(file.Children, b.buildConflictSide(t, file, cf.Path, cs, side))
			}
		}
		sec.Children = append(sec.Children, file)
	}
	return sec
}

func (b *Builder) buildConflictSide(t *Tree, file *Node, path string, cs *conflict.Section, side conflict.Side) *Node {
	key := fmt.Sprintf("%s:#%d:%s", file.Key, cs.Ordinal, side)
	label := cs.OursLabel
	content := cs.Ours
	if side == conflict.SideTheirs {
		label = cs.TheirsLabel
		content = cs.Theirs
	}

	node := b.add(t, &Node{
		Kind:     KindConflict,
		Key:      key,
		Parent:   file.Key,
		Display:  fmt.Sprintf("#%d %s (%s)", cs.Ordinal+1, side, label),
		Section:  SectionConflicts,
		Path:     path,
		Status:   git.StatusConflicted,
		Conflict: cs,
		Side:     side,
	}, true)

	for li, text := range content {
		node.Children = append(node.Children, b.add(t, &Node{
			Kind:      KindLine,
			Key:       fmt.Sprintf("%s:%d", key, li),
			Parent:    key,
			Display:   "  " + text,
			Section:   SectionConflicts,
			Path:      path,
			Status:    git.StatusConflicted,
			Conflict:  cs,
			Side:      side,
			LineIndex: li,
		}, false))
	}
	return node
}

func statusGlyph(s git.FileStatus) string {
	switch s {
	case git.StatusAdded:
		return "A"
	case git.StatusDeleted:
		return "D"
	case git.StatusRenamed:
		return "R"
	case git.StatusConflicted:
		return "!"
	case git.StatusUntracked:
		return "?"
	default:
		return "M"
	}
}

func displayPath(f *git.FileDiff) string {
	if f.Status == git.StatusRenamed && f.OrigPath != "" && f.OrigPath != f.Path {
		return f.OrigPath + " -> " + f.Path
	}
	return f.Path
}

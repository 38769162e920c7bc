package tui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/cj3636/gstage/internal/config"
	"github.com/cj3636/gstage/internal/engine"
	"github.com/cj3636/gstage/internal/git"
)

// stubRepo backs the model with canned listings and records the
// mutations the pickers dispatch.
type stubRepo struct {
	stashes  []git.StashEntry
	branches []git.Branch
	tags     []git.Tag
	history  []git.Commit

	pops    []int
	merges  []string
	rebases []string
	picks   []string
}

func (s *stubRepo) Diff(git.Scope) (*git.Diff, error) { return &git.Diff{}, nil }
func (s *stubRepo) Status() (*git.Status, error)      { return &git.Status{}, nil }

func (s *stubRepo) Head() (git.Head, error) {
	return git.Head{Branch: "main", Hash: "aaa111"}, nil
}

func (s *stubRepo) Apply(string, git.ApplyOptions) error { return nil }
func (s *stubRepo) StagePaths(...string) error           { return nil }
func (s *stubRepo) UnstagePaths(...string) error         { return nil }
func (s *stubRepo) DiscardPaths(...string) error         { return nil }
func (s *stubRepo) RemoveUntracked(...string) error      { return nil }

func (s *stubRepo) ReadWorktreeFile(string) ([]byte, error) { return nil, errors.New("no file") }
func (s *stubRepo) WriteWorktreeFile(string, []byte) error  { return nil }
func (s *stubRepo) CurrentOpMarker() git.OpMarker           { return git.OpMarker{} }

func (s *stubRepo) Merge(rev string) error {
	s.merges = append(s.merges, rev)
	return nil
}

func (s *stubRepo) MergeContinue() error { return nil }
func (s *stubRepo) MergeAbort() error    { return nil }

func (s *stubRepo) Rebase(onto string) error {
	s.rebases = append(s.rebases, onto)
	return nil
}

func (s *stubRepo) RebaseContinue() error { return nil }
func (s *stubRepo) RebaseAbort() error    { return nil }

func (s *stubRepo) CherryPick(rev string) error {
	s.picks = append(s.picks, rev)
	return nil
}

func (s *stubRepo) CherryPickContinue() error { return nil }
func (s *stubRepo) CherryPickAbort() error    { return nil }

func (s *stubRepo) Revert(string) error   { return nil }
func (s *stubRepo) RevertContinue() error { return nil }
func (s *stubRepo) RevertAbort() error    { return nil }

func (s *stubRepo) StashApply(int) error   { return nil }
func (s *stubRepo) ResetHard(string) error { return nil }

func (s *stubRepo) StashPush(string, bool) error { return nil }
func (s *stubRepo) StashDrop(int) error          { return nil }
func (s *stubRepo) Commit(string) error          { return nil }

func (s *stubRepo) StashPop(index int) error {
	s.pops = append(s.pops, index)
	return nil
}

func (s *stubRepo) StashList() ([]git.StashEntry, error) { return s.stashes, nil }
func (s *stubRepo) Branches() ([]git.Branch, error)      { return s.branches, nil }
func (s *stubRepo) Tags() ([]git.Tag, error)             { return s.tags, nil }
func (s *stubRepo) Log(int) ([]git.Commit, error)        { return s.history, nil }

func (s *stubRepo) ResolveRev(rev string) (string, error) {
	for _, b := range s.branches {
		if b.Name == rev || b.Hash == rev {
			return b.Hash, nil
		}
	}
	for _, tg := range s.tags {
		if tg.Name == rev {
			return tg.Hash, nil
		}
	}
	for _, c := range s.history {
		if c.Hash == rev {
			return c.Hash, nil
		}
	}
	return "", errors.New("unknown revision " + rev)
}

func newTestModel(t *testing.T, repo engine.Repo) Model {
	t.Helper()
	e := engine.New(repo, zerolog.Nop())
	e.Start(nil)
	t.Cleanup(e.Stop)
	require.NoError(t, e.Refresh())
	return NewModel(e, config.DefaultConfig())
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press feeds one key and runs any returned command to completion.
func press(t *testing.T, m Model, msg tea.KeyMsg) Model {
	t.Helper()
	next, cmd := m.Update(msg)
	if cmd != nil {
		cmd()
	}
	return next.(Model)
}

func TestStashPopOpensPickerAndPopsSelection(t *testing.T) {
	stub := &stubRepo{stashes: []git.StashEntry{
		{Index: 0, Message: "wip"},
		{Index: 1, Message: "older work"},
	}}
	m := newTestModel(t, stub)

	m = press(t, m, keyRunes("Z"))
	require.NotNil(t, m.picker)
	require.Len(t, m.picker.items, 2)
	require.Contains(t, m.picker.items[1].label, "stash@{1}")

	m = press(t, m, keyRunes("j"))
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	require.Nil(t, m.picker)
	require.Equal(t, []int{1}, stub.pops)
}

func TestStashPickerWithoutEntries(t *testing.T) {
	m := newTestModel(t, &stubRepo{})

	m = press(t, m, keyRunes("Z"))
	require.Nil(t, m.picker)
	require.Equal(t, "no stash entries", m.status)
}

func TestMergePickerExcludesCurrentBranch(t *testing.T) {
	stub := &stubRepo{
		branches: []git.Branch{
			{Name: "main", Hash: "aaa111", Current: true},
			{Name: "feature", Hash: "bbb222"},
		},
		tags: []git.Tag{{Name: "v1.0.0", Hash: "ccc333"}},
	}
	m := newTestModel(t, stub)

	m = press(t, m, keyRunes("M"))
	require.NotNil(t, m.picker)
	require.Len(t, m.picker.items, 2)
	require.Contains(t, m.picker.items[0].label, "feature")
	require.Contains(t, m.picker.items[1].label, "(tag)")

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Nil(t, m.picker)
	require.Equal(t, []string{"feature"}, stub.merges)
}

func TestRebasePickerStartsRebase(t *testing.T) {
	stub := &stubRepo{branches: []git.Branch{
		{Name: "main", Hash: "aaa111", Current: true},
		{Name: "feature", Hash: "bbb222"},
	}}
	m := newTestModel(t, stub)

	m = press(t, m, keyRunes("R"))
	require.NotNil(t, m.picker)
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	require.Equal(t, []string{"feature"}, stub.rebases)
}

func TestCherryPickPickerUsesCommitHash(t *testing.T) {
	stub := &stubRepo{history: []git.Commit{
		{Hash: "aaa111bbb222ccc333", Summary: "newest"},
		{Hash: "ddd444eee555fff666", Summary: "older"},
	}}
	m := newTestModel(t, stub)

	m = press(t, m, keyRunes("P"))
	require.NotNil(t, m.picker)
	require.Contains(t, m.picker.items[0].label, "newest")

	m = press(t, m, keyRunes("j"))
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	require.Equal(t, []string{"ddd444eee555fff666"}, stub.picks)
}

func TestPickerEscCancels(t *testing.T) {
	stub := &stubRepo{stashes: []git.StashEntry{{Index: 0, Message: "wip"}}}
	m := newTestModel(t, stub)

	m = press(t, m, keyRunes("Z"))
	require.NotNil(t, m.picker)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	require.Nil(t, m.picker)
	require.Empty(t, stub.pops)
}

func TestPickerRejectsVanishedTarget(t *testing.T) {
	stub := &stubRepo{branches: []git.Branch{
		{Name: "main", Hash: "aaa111", Current: true},
		{Name: "feature", Hash: "bbb222"},
	}}
	m := newTestModel(t, stub)

	m = press(t, m, keyRunes("M"))
	require.NotNil(t, m.picker)

	// The branch disappears between opening the picker and confirming.
	stub.branches = stub.branches[:1]
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	require.Error(t, m.err)
	require.Empty(t, stub.merges)
}

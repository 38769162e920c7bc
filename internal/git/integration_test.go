package git_test

import (
	"fmt"
	"os/exec"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/cj3636/gstage/internal/git"
	"github.com/cj3636/gstage/internal/patch"
)

// These tests run the staging primitives against a real repository, so
// every synthesized patch is validated by git itself rather than a fake.

func initRepo(t *testing.T) *git.Repository {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	dir := t.TempDir()
	mustGit(t, dir, "init", "-q")
	mustGit(t, dir, "config", "user.email", "test@example.com")
	mustGit(t, dir, "config", "user.name", "test")

	repo, err := git.Open(dir, zerolog.Nop())
	require.NoError(t, err)
	return repo
}

func mustGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
}

func commitFile(t *testing.T, repo *git.Repository, path, content string) {
	t.Helper()
	require.NoError(t, repo.WriteWorktreeFile(path, []byte(content)))
	require.NoError(t, repo.StagePaths(path))
	require.NoError(t, repo.Commit("base"))
}

// numbered renders n lines "line 1\n" .. "line n\n".
func numbered(n int) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "line %d\n", i)
	}
	return b.String()
}

func worktreeDiff(t *testing.T, repo *git.Repository) *git.Diff {
	t.Helper()
	d, err := repo.Diff(git.Scope{Kind: git.WorktreeVsIndex})
	require.NoError(t, err)
	return d
}

func stagedDiff(t *testing.T, repo *git.Repository) *git.Diff {
	t.Helper()
	d, err := repo.Diff(git.Scope{Kind: git.IndexVsHead})
	require.NoError(t, err)
	return d
}

// applyChecked mirrors the engine's two-pass apply: validate, then land.
func applyChecked(t *testing.T, repo *git.Repository, p string, opts git.ApplyOptions) {
	t.Helper()
	check := opts
	check.Check = true
	require.NoError(t, repo.Apply(p, check))
	require.NoError(t, repo.Apply(p, opts))
}

// lineIndex finds the position of a changed line within a hunk.
func lineIndex(t *testing.T, h *git.Hunk, kind git.LineKind, text string) int {
	t.Helper()
	for i, l := range h.Lines {
		if l.Kind == kind && l.Text == text {
			return i
		}
	}
	t.Fatalf("line %q not found in hunk %s", text, h.Header)
	return -1
}

// twoHunkWorktree commits a 20-line file and edits lines 2 and 18, far
// enough apart that the 3-line context windows cannot merge.
func twoHunkWorktree(t *testing.T, repo *git.Repository) {
	t.Helper()
	commitFile(t, repo, "f.txt", numbered(20))

	edited := strings.NewReplacer("line 2\n", "LINE TWO\n", "line 18\n", "LINE EIGHTEEN\n").
		Replace(numbered(20))
	require.NoError(t, repo.WriteWorktreeFile("f.txt", []byte(edited)))
}

func TestStageEachHunkThenUnstageRestoresOriginal(t *testing.T) {
	repo := initRepo(t)
	twoHunkWorktree(t, repo)

	orig := worktreeDiff(t, repo)
	f := orig.File("f.txt")
	require.NotNil(t, f)
	require.Len(t, f.Hunks, 2)
	origRendered := patch.File(f)

	// Stage hunk by hunk. Afterwards the index carries the whole edit and
	// the worktree is clean relative to it.
	for i := range f.Hunks {
		p, err := patch.Hunk(f, i)
		require.NoError(t, err)
		applyChecked(t, repo, p, git.ApplyOptions{Cached: true})
	}

	require.True(t, worktreeDiff(t, repo).IsEmpty())
	staged := stagedDiff(t, repo).File("f.txt")
	require.NotNil(t, staged)
	require.Equal(t, origRendered, patch.File(staged))

	// Unstage hunk by hunk with reverse applies. The index returns to HEAD
	// and the worktree diff matches the original edit again.
	for i := range staged.Hunks {
		p, err := patch.Hunk(staged, i)
		require.NoError(t, err)
		applyChecked(t, repo, p, git.ApplyOptions{Cached: true, Reverse: true})
	}

	require.True(t, stagedDiff(t, repo).IsEmpty())
	back := worktreeDiff(t, repo).File("f.txt")
	require.NotNil(t, back)
	require.Equal(t, origRendered, patch.File(back))
}

func TestStageAllHunksEqualsStagingWholeFile(t *testing.T) {
	repo := initRepo(t)
	twoHunkWorktree(t, repo)

	f := worktreeDiff(t, repo).File("f.txt")
	require.NotNil(t, f)

	for i := range f.Hunks {
		p, err := patch.Hunk(f, i)
		require.NoError(t, err)
		applyChecked(t, repo, p, git.ApplyOptions{Cached: true})
	}
	viaHunks := patch.File(stagedDiff(t, repo).File("f.txt"))

	require.NoError(t, repo.UnstagePaths("f.txt"))
	require.True(t, stagedDiff(t, repo).IsEmpty())

	require.NoError(t, repo.StagePaths("f.txt"))
	viaFile := patch.File(stagedDiff(t, repo).File("f.txt"))

	require.Equal(t, viaFile, viaHunks)
}

func TestStageLineSubsetForward(t *testing.T) {
	repo := initRepo(t)
	commitFile(t, repo, "f.txt", "alpha\nold\nomega\n")
	require.NoError(t, repo.WriteWorktreeFile("f.txt", []byte("alpha\nnew1\nnew2\nomega\n")))

	f := worktreeDiff(t, repo).File("f.txt")
	require.NotNil(t, f)
	require.Len(t, f.Hunks, 1)
	sel := []int{lineIndex(t, &f.Hunks[0], git.LineAdded, "new1")}

	p, err := patch.Lines(f, 0, sel, false)
	require.NoError(t, err)
	applyChecked(t, repo, p, git.ApplyOptions{Cached: true})

	// Only new1 landed in the index; the unselected removal left the old
	// line in place there.
	staged := stagedDiff(t, repo).File("f.txt")
	require.NotNil(t, staged)
	added, removed := staged.Changes()
	require.Equal(t, 1, added)
	require.Equal(t, 0, removed)
	require.Contains(t, patch.File(staged), "+new1\n")
	require.NotContains(t, patch.File(staged), "new2")
}

func TestUnstageLineSubsetReverse(t *testing.T) {
	repo := initRepo(t)
	commitFile(t, repo, "f.txt", "alpha\nold\nomega\n")
	require.NoError(t, repo.WriteWorktreeFile("f.txt", []byte("alpha\nnew1\nnew2\nomega\n")))
	require.NoError(t, repo.StagePaths("f.txt"))

	f := stagedDiff(t, repo).File("f.txt")
	require.NotNil(t, f)
	require.Len(t, f.Hunks, 1)
	sel := []int{lineIndex(t, &f.Hunks[0], git.LineAdded, "new1")}

	p, err := patch.Lines(f, 0, sel, true)
	require.NoError(t, err)
	applyChecked(t, repo, p, git.ApplyOptions{Cached: true, Reverse: true})

	// new1 left the index; the rest of the edit is still staged.
	staged := patch.File(stagedDiff(t, repo).File("f.txt"))
	require.NotContains(t, staged, "new1")
	require.Contains(t, staged, "-old\n")
	require.Contains(t, staged, "+new2\n")

	// The worktree still holds new1, so it shows up as unstaged again.
	unstaged := patch.File(worktreeDiff(t, repo).File("f.txt"))
	require.Contains(t, unstaged, "+new1\n")
}

func TestDiscardLineSubsetReverse(t *testing.T) {
	repo := initRepo(t)
	commitFile(t, repo, "f.txt", "alpha\nold\nomega\n")
	require.NoError(t, repo.WriteWorktreeFile("f.txt", []byte("alpha\nnew1\nnew2\nomega\n")))

	f := worktreeDiff(t, repo).File("f.txt")
	require.NotNil(t, f)
	sel := []int{lineIndex(t, &f.Hunks[0], git.LineAdded, "new2")}

	p, err := patch.Lines(f, 0, sel, true)
	require.NoError(t, err)
	applyChecked(t, repo, p, git.ApplyOptions{Reverse: true})

	content, err := repo.ReadWorktreeFile("f.txt")
	require.NoError(t, err)
	require.Equal(t, "alpha\nnew1\nomega\n", string(content))
}

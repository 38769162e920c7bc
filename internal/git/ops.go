package git

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// OpKind identifies a multi-step repository operation.
type OpKind int

const (
	OpNone OpKind = iota
	OpMerge
	OpRebase
	OpCherryPick
	OpRevert
	OpStashApply
)

// String returns the operation name as shown to the user.
func (k OpKind) String() string {
	switch k {
	case OpMerge:
		return "merge"
	case OpRebase:
		return "rebase"
	case OpCherryPick:
		return "cherry-pick"
	case OpRevert:
		return "revert"
	case OpStashApply:
		return "stash apply"
	default:
		return "none"
	}
}

// opConflict reports whether an operation failed because of content
// conflicts rather than an infrastructure error.
func opConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "CONFLICT") ||
		strings.Contains(msg, "conflict") ||
		strings.Contains(msg, "needs merge") ||
		strings.Contains(msg, "could not apply")
}

// opDirty reports whether git refused to start because of local changes.
func opDirty(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Please commit your changes") ||
		strings.Contains(msg, "would be overwritten") ||
		strings.Contains(msg, "cannot rebase: You have unstaged changes") ||
		strings.Contains(msg, "your local changes")
}

// classifyOpErr maps a raw operation failure onto the error taxonomy.
// Conflicts are not errors at this layer; callers check Conflicted
// afterwards, so only dirty-precondition and opaque failures remain.
func classifyOpErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if opDirty(err) {
		return ErrDirtyWorktree
	}
	if opConflict(err) {
		// The operation is now paused on disk; not an error here.
		return nil
	}
	return libErr(op, err)
}

// Merge starts a merge of the given revision into HEAD. A nil return with
// conflicted files in the status means the merge paused.
func (r *Repository) Merge(rev string) error {
	_, err := r.run("merge", "--no-edit", rev)
	return classifyOpErr("merge", err)
}

// MergeContinue concludes a conflicted merge once everything is resolved
// and staged.
func (r *Repository) MergeContinue() error {
	_, err := r.run("-c", "core.editor=true", "merge", "--continue")
	return classifyOpErr("merge --continue", err)
}

// MergeAbort rolls back to the pre-merge state.
func (r *Repository) MergeAbort() error {
	if _, err := r.run("merge", "--abort"); err != nil {
		return libErr("merge --abort", err)
	}
	return nil
}

// Rebase starts rebasing HEAD onto the given revision.
func (r *Repository) Rebase(onto string) error {
	_, err := r.run("rebase", onto)
	return classifyOpErr("rebase", err)
}

// RebaseContinue resumes a paused rebase after conflicts were resolved
// and staged.
func (r *Repository) RebaseContinue() error {
	_, err := r.run("-c", "core.editor=true", "rebase", "--continue")
	return classifyOpErr("rebase --continue", err)
}

// RebaseAbort rolls back to the pre-rebase branch state.
func (r *Repository) RebaseAbort() error {
	if _, err := r.run("rebase", "--abort"); err != nil {
		return libErr("rebase --abort", err)
	}
	return nil
}

// CherryPick applies the given commit onto HEAD.
func (r *Repository) CherryPick(rev string) error {
	_, err := r.run("cherry-pick", rev)
	return classifyOpErr("cherry-pick", err)
}

// CherryPickContinue concludes a conflicted cherry-pick.
func (r *Repository) CherryPickContinue() error {
	_, err := r.run("-c", "core.editor=true", "cherry-pick", "--continue")
	return classifyOpErr("cherry-pick --continue", err)
}

// CherryPickAbort rolls back a conflicted cherry-pick.
func (r *Repository) CherryPickAbort() error {
	if _, err := r.run("cherry-pick", "--abort"); err != nil {
		return libErr("cherry-pick --abort", err)
	}
	return nil
}

// Revert applies the inverse of the given commit onto HEAD.
func (r *Repository) Revert(rev string) error {
	_, err := r.run("revert", "--no-edit", rev)
	return classifyOpErr("revert", err)
}

// RevertContinue concludes a conflicted revert.
func (r *Repository) RevertContinue() error {
	_, err := r.run("-c", "core.editor=true", "revert", "--continue")
	return classifyOpErr("revert --continue", err)
}

// RevertAbort rolls back a conflicted revert.
func (r *Repository) RevertAbort() error {
	if _, err := r.run("revert", "--abort"); err != nil {
		return libErr("revert --abort", err)
	}
	return nil
}

// StashEntry is a read-only projection of one stash.
type StashEntry struct {
	Index   int
	Message string
}

// StashList returns the stash stack, newest first.
func (r *Repository) StashList() ([]StashEntry, error) {
	out, err := r.runRead("stash", "list", "--format=%gd%x00%gs")
	if err != nil {
		return nil, libErr("stash list", err)
	}
	var entries []StashEntry
	for i, line := range lines(out) {
		parts := strings.SplitN(line, "\x00", 2)
		entry := StashEntry{Index: i}
		if len(parts) == 2 {
			entry.Message = parts[1]
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// StashPush saves local changes to a new stash entry.
func (r *Repository) StashPush(message string, includeUntracked bool) error {
	args := []string{"stash", "push"}
	if includeUntracked {
		args = append(args, "--include-untracked")
	}
	if message != "" {
		args = append(args, "-m", message)
	}
	if _, err := r.run(args...); err != nil {
		return libErr("stash push", err)
	}
	return nil
}

// StashApply applies a stash entry without dropping it. A nil return with
// conflicted files means the apply paused on conflicts.
func (r *Repository) StashApply(index int) error {
	_, err := r.run("stash", "apply", stashRef(index))
	return classifyOpErr("stash apply", err)
}

// StashDrop removes a stash entry.
func (r *Repository) StashDrop(index int) error {
	if _, err := r.run("stash", "drop", stashRef(index)); err != nil {
		return libErr("stash drop", err)
	}
	return nil
}

// StashPop applies and drops in one step.
func (r *Repository) StashPop(index int) error {
	_, err := r.run("stash", "pop", stashRef(index))
	return classifyOpErr("stash pop", err)
}

func stashRef(index int) string {
	return "stash@{" + strconv.Itoa(index) + "}"
}

// OpMarker describes an in-progress operation recorded on disk. After a
// process restart these markers, not anything held in memory, are the
// source of truth.
type OpMarker struct {
	Kind OpKind
	// Step and Total carry rebase progress; zero otherwise.
	Step  int
	Total int
}

// CurrentOpMarker inspects the git dir for operation markers.
func (r *Repository) CurrentOpMarker() OpMarker {
	exists := func(name string) bool {
		_, err := os.Stat(filepath.Join(r.gitDir, name))
		return err == nil
	}

	switch {
	case exists("rebase-merge"), exists("rebase-apply"):
		m := OpMarker{Kind: OpRebase}
		dir := "rebase-merge"
		if !exists(dir) {
			dir = "rebase-apply"
		}
		m.Step = readMarkerInt(filepath.Join(r.gitDir, dir, "msgnum"))
		m.Total = readMarkerInt(filepath.Join(r.gitDir, dir, "end"))
		return m
	case exists("MERGE_HEAD"):
		return OpMarker{Kind: OpMerge}
	case exists("CHERRY_PICK_HEAD"):
		return OpMarker{Kind: OpCherryPick}
	case exists("REVERT_HEAD"):
		return OpMarker{Kind: OpRevert}
	default:
		return OpMarker{Kind: OpNone}
	}
}

func readMarkerInt(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return n
}

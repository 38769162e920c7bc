package git

import (
	"fmt"
	"strconv"
	"strings"
)

// contextLines is the fixed context window for all diffs. Patch synthesis
// depends on every hunk carrying exactly this much context.
const contextLines = 3

// FileStatus classifies a per-file change.
type FileStatus int

const (
	StatusModified FileStatus = iota
	StatusAdded
	StatusDeleted
	StatusRenamed
	StatusConflicted
	StatusUntracked
)

// String returns the lowercase name of the status.
func (s FileStatus) String() string {
	switch s {
	case StatusModified:
		return "modified"
	case StatusAdded:
		return "added"
	case StatusDeleted:
		return "deleted"
	case StatusRenamed:
		return "renamed"
	case StatusConflicted:
		return "conflicted"
	case StatusUntracked:
		return "untracked"
	default:
		return "unknown"
	}
}

// LineKind tags a diff line.
type LineKind byte

const (
	LineContext LineKind = ' '
	LineAdded   LineKind = '+'
	LineRemoved LineKind = '-'
)

// Line is one line of a hunk.
type Line struct {
	Kind  LineKind
	Text  string
	OldNo int // line number in the old file, 0 for additions
	NewNo int // line number in the new file, 0 for removals
	// NoNewline marks the line preceding a "\ No newline at end of file"
	// indicator.
	NoNewline bool
}

// Hunk is a contiguous block of changes plus surrounding context.
type Hunk struct {
	OldStart int
	OldCount int
	NewStart int
	NewCount int
	// Header is the raw "@@ -a,b +c,d @@ ..." line, including any
	// trailing function context git appended.
	Header string
	Lines  []Line
}

// Delta returns newCount-oldCount, the net line shift this hunk causes.
func (h *Hunk) Delta() int { return h.NewCount - h.OldCount }

// FileDiff is the raw patch for a single file.
type FileDiff struct {
	// Path is the current (new) path relative to the repository root.
	Path string
	// OrigPath differs from Path only for renames.
	OrigPath string
	Status   FileStatus
	Binary   bool
	Hunks    []Hunk
}

// Changes reports total added and removed line counts.
func (f *FileDiff) Changes() (added, removed int) {
	for _, h := range f.Hunks {
		for _, l := range h.Lines {
			switch l.Kind {
			case LineAdded:
				added++
			case LineRemoved:
				removed++
			}
		}
	}
	return added, removed
}

// Diff is an ordered sequence of per-file patches.
type Diff struct {
	Files []FileDiff
}

// IsEmpty reports whether the diff contains no files.
func (d *Diff) IsEmpty() bool { return d == nil || len(d.Files) == 0 }

// File returns the diff for path, or nil.
func (d *Diff) File(path string) *FileDiff {
	for i := range d.Files {
		if d.Files[i].Path == path {
			return &d.Files[i]
		}
	}
	return nil
}

// ScopeKind selects which two trees a diff compares.
type ScopeKind int

const (
	// WorktreeVsIndex compares the working tree against the staging index.
	WorktreeVsIndex ScopeKind = iota
	// IndexVsHead compares the staging index against HEAD.
	IndexVsHead
	// WorktreeVsHead compares the working tree against HEAD.
	WorktreeVsHead
	// CommitVsParent compares a commit against its first parent.
	CommitVsParent
)

// Scope identifies a diff request. Commit is only meaningful for
// CommitVsParent.
type Scope struct {
	Kind   ScopeKind
	Commit string
}

// Diff computes the raw per-file patches for the given scope with a fixed
// 3-line context window. It is read-only and retries transient lock
// contention; a repository state git cannot diff surfaces as
// ErrDiffUnavailable.
func (r *Repository) Diff(scope Scope) (*Diff, error) {
	args := []string{"diff", "--no-color", "--no-ext-diff", "-M", fmt.Sprintf("-U%d", contextLines)}
	switch scope.Kind {
	case WorktreeVsIndex:
		// default form
	case IndexVsHead:
		args = append(args, "--cached", "HEAD")
	case WorktreeVsHead:
		args = append(args, "HEAD")
	case CommitVsParent:
		args = []string{"diff-tree", "--no-color", "-p", "-M", "--root", "--no-commit-id",
			fmt.Sprintf("-U%d", contextLines), scope.Commit}
	default:
		return nil, fmt.Errorf("%w: unknown scope %d", ErrDiffUnavailable, scope.Kind)
	}

	out, err := r.runRead(args...)
	if err != nil {
		if strings.Contains(err.Error(), "bad revision") || strings.Contains(err.Error(), "unknown revision") {
			return nil, fmt.Errorf("%w: %v", ErrDiffUnavailable, err)
		}
		return nil, libErr("diff", err)
	}
	return ParseUnified(out), nil
}

// ParseUnified parses `git diff` output into per-file patches. Unknown
// header lines are skipped so format extensions do not break parsing.
func ParseUnified(out string) *Diff {
	d := &Diff{}
	if strings.TrimSpace(out) == "" {
		return d
	}

	var file *FileDiff
	var hunk *Hunk
	oldNo, newNo := 0, 0

	flushHunk := func() {
		if hunk != nil && file != nil {
			file.Hunks = append(file.Hunks, *hunk)
		}
		hunk = nil
	}
	flushFile := func() {
		flushHunk()
		if file != nil {
			d.Files = append(d.Files, *file)
		}
		file = nil
	}

	for _, raw := range strings.Split(out, "\n") {
		switch {
		case strings.HasPrefix(raw, "diff --git "):
			flushFile()
			file = &FileDiff{Status: StatusModified}
			if old, new_, ok := splitGitHeader(raw); ok {
				file.OrigPath = old
				file.Path = new_
			}

		case file == nil:
			continue

		case strings.HasPrefix(raw, "new file mode "):
			file.Status = StatusAdded
		case strings.HasPrefix(raw, "deleted file mode "):
			file.Status = StatusDeleted
		case strings.HasPrefix(raw, "similarity index "):
			file.Status = StatusRenamed
		case strings.HasPrefix(raw, "rename from "):
			file.OrigPath = strings.TrimPrefix(raw, "rename from ")
		case strings.HasPrefix(raw, "rename to "):
			file.Path = strings.TrimPrefix(raw, "rename to ")
		case strings.HasPrefix(raw, "Binary files "), strings.HasPrefix(raw, "GIT binary patch"):
			file.Binary = true

		case strings.HasPrefix(raw, "--- "):
			if p := unquotePath(strings.TrimPrefix(raw, "--- ")); p != "/dev/null" {
				file.OrigPath = strings.TrimPrefix(p, "a/")
			}
		case strings.HasPrefix(raw, "+++ "):
			if p := unquotePath(strings.TrimPrefix(raw, "+++ ")); p != "/dev/null" {
				file.Path = strings.TrimPrefix(p, "b/")
			}

		case strings.HasPrefix(raw, "@@ "):
			flushHunk()
			h, ok := parseHunkHeader(raw)
			if !ok {
				continue
			}
			hunk = &h
			oldNo, newNo = h.OldStart, h.NewStart

		case hunk != nil && raw != "":
			switch raw[0] {
			case '+':
				hunk.Lines = append(hunk.Lines, Line{Kind: LineAdded, Text: raw[1:], NewNo: newNo})
				newNo++
			case '-':
				hunk.Lines = append(hunk.Lines, Line{Kind: LineRemoved, Text: raw[1:], OldNo: oldNo})
				oldNo++
			case ' ':
				hunk.Lines = append(hunk.Lines, Line{Kind: LineContext, Text: raw[1:], OldNo: oldNo, NewNo: newNo})
				oldNo++
				newNo++
			case '\\':
				if n := len(hunk.Lines); n > 0 {
					hunk.Lines[n-1].NoNewline = true
				}
			}
		}
	}
	flushFile()
	return d
}

// splitGitHeader extracts the a/ and b/ paths from a "diff --git" line.
func splitGitHeader(line string) (oldPath, newPath string, ok bool) {
	rest := strings.TrimPrefix(line, "diff --git ")
	// Quoted paths appear when names contain spaces or non-ASCII bytes.
	if strings.HasPrefix(rest, "\"") {
		parts := strings.SplitN(rest, "\" \"", 2)
		if len(parts) != 2 {
			return "", "", false
		}
		oldPath = unquotePath(parts[0] + "\"")
		newPath = unquotePath("\"" + parts[1])
	} else {
		parts := strings.SplitN(rest, " ", 2)
		if len(parts) != 2 {
			return "", "", false
		}
		oldPath = parts[0]
		newPath = parts[1]
	}
	return strings.TrimPrefix(oldPath, "a/"), strings.TrimPrefix(newPath, "b/"), true
}

// parseHunkHeader parses "@@ -oldStart[,oldCount] +newStart[,newCount] @@ ...".
func parseHunkHeader(line string) (Hunk, bool) {
	h := Hunk{Header: line, OldCount: 1, NewCount: 1}

	body := strings.TrimPrefix(line, "@@ ")
	end := strings.Index(body, " @@")
	if end < 0 {
		return h, false
	}
	for _, field := range strings.Fields(body[:end]) {
		switch {
		case strings.HasPrefix(field, "-"):
			start, count, ok := parseRange(field[1:])
			if !ok {
				return h, false
			}
			h.OldStart, h.OldCount = start, count
		case strings.HasPrefix(field, "+"):
			start, count, ok := parseRange(field[1:])
			if !ok {
				return h, false
			}
			h.NewStart, h.NewCount = start, count
		}
	}
	return h, true
}

func parseRange(s string) (start, count int, ok bool) {
	count = 1
	if comma := strings.Index(s, ","); comma >= 0 {
		n, err := strconv.Atoi(s[comma+1:])
		if err != nil {
			return 0, 0, false
		}
		count = n
		s = s[:comma]
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, 0, false
	}
	return n, count, true
}

func unquotePath(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		if unquoted, err := strconv.Unquote(s); err == nil {
			return unquoted
		}
	}
	return s
}

// Package patch synthesizes minimal unified patches from raw per-file
// diffs: a whole file, a single hunk, or an arbitrary subset of a hunk's
// changed lines. The output is plain `git apply` input; reversal happens
// at apply time, never by rewriting the text.
package patch

import (
	"fmt"
	"strings"

	"github.com/cj3636/gstage/internal/git"
)

const noNewlineMarker = `\ No newline at end of file`

// File renders the complete patch for a file diff.
func File(f *git.FileDiff) string {
	var b strings.Builder
	writeFileHeader(&b, f)
	for i := range f.Hunks {
		writeHunk(&b, &f.Hunks[i])
	}
	return b.String()
}

// Hunk renders a patch containing only the hunk at index i. The hunk
// keeps its original header; git locates it by context, so headers from
// sibling hunks staying behind do not matter.
func Hunk(f *git.FileDiff, i int) (string, error) {
	if i < 0 || i >= len(f.Hunks) {
		return "", fmt.Errorf("%w: hunk %d of %d", git.ErrEmptyPatch, i, len(f.Hunks))
	}
	var b strings.Builder
	writeFileHeader(&b, f)
	writeHunk(&b, &f.Hunks[i])
	return b.String(), nil
}

// Lines renders a patch containing only the selected changed lines of the
// hunk at index i. Indices refer to positions in the hunk's Lines slice.
// The hunk header is recomputed for the adjusted line counts; selecting
// every changed line degenerates to the full hunk. Set reverse when the
// patch will be handed to a reverse apply.
func Lines(f *git.FileDiff, i int, selected []int, reverse bool) (string, error) {
	if i < 0 || i >= len(f.Hunks) {
		return "", fmt.Errorf("%w: hunk %d of %d", git.ErrEmptyPatch, i, len(f.Hunks))
	}
	sub, err := SubsetHunk(&f.Hunks[i], selected, reverse)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	writeFileHeader(&b, f)
	writeHunk(&b, &sub)
	return b.String(), nil
}

// SubsetHunk builds a syntactically valid hunk containing only the
// selected changed lines of h. Context lines are always kept; unselected
// changes degrade so that the side git matches against stays intact.
//
// Forward (reverse=false, for `git apply`): the old side must match the
// target, so unselected additions are dropped and unselected removals
// become context.
//
// Reverse (reverse=true, for `git apply --reverse`): the new side must
// match the target, so the roles flip: unselected additions become
// context and unselected removals are dropped.
func SubsetHunk(h *git.Hunk, selected []int, reverse bool) (git.Hunk, error) {
	keep := make(map[int]bool, len(selected))
	for _, idx := range selected {
		if idx < 0 || idx >= len(h.Lines) {
			return git.Hunk{}, fmt.Errorf("%w: line index %d out of range", git.ErrEmptyPatch, idx)
		}
		keep[idx] = true
	}

	sub := git.Hunk{OldStart: h.OldStart, NewStart: h.NewStart}
	changed := 0

	demote := func(line git.Line) {
		ctx := line
		ctx.Kind = git.LineContext
		sub.Lines = append(sub.Lines, ctx)
		sub.OldCount++
		sub.NewCount++
	}

	for idx, line := range h.Lines {
		switch line.Kind {
		case git.LineContext:
			sub.Lines = append(sub.Lines, line)
			sub.OldCount++
			sub.NewCount++
		case git.LineAdded:
			switch {
			case keep[idx]:
				sub.Lines = append(sub.Lines, line)
				sub.NewCount++
				changed++
			case reverse:
				// The addition stays in the target, so it survives on
				// both sides.
				demote(line)
			}
		case git.LineRemoved:
			switch {
			case keep[idx]:
				sub.Lines = append(sub.Lines, line)
				sub.OldCount++
				changed++
			case reverse:
				// The removal stays applied in the target; the line is
				// absent from both sides.
			default:
				// The removal is not taken, so the old line survives on
				// both sides.
				demote(line)
			}
		}
	}

	if changed == 0 {
		return git.Hunk{}, git.ErrEmptyPatch
	}

	sub.Header = FormatHeader(&sub)
	return sub, nil
}

// FormatHeader renders the "@@ -a,b +c,d @@" line for a hunk.
func FormatHeader(h *git.Hunk) string {
	return fmt.Sprintf("@@ -%s +%s @@", formatRange(h.OldStart, h.OldCount), formatRange(h.NewStart, h.NewCount))
}

func formatRange(start, count int) string {
	if count == 1 {
		return fmt.Sprintf("%d", start)
	}
	// A zero-count range reports the line before the change.
	if count == 0 && start > 0 {
		return fmt.Sprintf("%d,0", start)
	}
	return fmt.Sprintf("%d,%d", start, count)
}

func writeFileHeader(b *strings.Builder, f *git.FileDiff) {
	oldPath, newPath := f.OrigPath, f.Path
	if oldPath == "" {
		oldPath = newPath
	}

	fmt.Fprintf(b, "diff --git a/%s b/%s\n", oldPath, newPath)

	switch f.Status {
	case git.StatusAdded, git.StatusUntracked:
		b.WriteString("new file mode 100644\n")
		b.WriteString("--- /dev/null\n")
		fmt.Fprintf(b, "+++ b/%s\n", newPath)
	case git.StatusDeleted:
		b.WriteString("deleted file mode 100644\n")
		fmt.Fprintf(b, "--- a/%s\n", oldPath)
		b.WriteString("+++ /dev/null\n")
	case git.StatusRenamed:
		fmt.Fprintf(b, "rename from %s\n", oldPath)
		fmt.Fprintf(b, "rename to %s\n", newPath)
		fmt.Fprintf(b, "--- a/%s\n", oldPath)
		fmt.Fprintf(b, "+++ b/%s\n", newPath)
	default:
		fmt.Fprintf(b, "--- a/%s\n", oldPath)
		fmt.Fprintf(b, "+++ b/%s\n", newPath)
	}
}

func writeHunk(b *strings.Builder, h *git.Hunk) {
	header := h.Header
	if header == "" {
		header = FormatHeader(h)
	}
	b.WriteString(header)
	b.WriteByte('\n')

	for _, line := range h.Lines {
		b.WriteByte(byte(line.Kind))
		b.WriteString(line.Text)
		b.WriteByte('\n')
		if line.NoNewline {
			b.WriteString(noNewlineMarker)
			b.WriteByte('\n')
		}
	}
}

// ChangedIndexes returns the indexes of all non-context lines in a hunk,
// the selection that makes a line subset equal to the whole hunk.
func ChangedIndexes(h *git.Hunk) []int {
	var idxs []int
	for i, line := range h.Lines {
		if line.Kind != git.LineContext {
			idxs = append(idxs, i)
		}
	}
	return idxs
}

package git

import (
	"strings"
)

// Status is a snapshot of the working tree as reported by
// `git status --porcelain=v2`.
type Status struct {
	// Branch is the current branch name, empty when detached.
	Branch string
	// Head is the abbreviated HEAD commit, "(initial)" before the first
	// commit.
	Head string
	// Ahead and Behind count commits relative to upstream.
	Ahead  int
	Behind int
	// Staged maps paths with index changes to their status.
	Staged map[string]FileStatus
	// Unstaged maps paths with worktree changes to their status.
	Unstaged map[string]FileStatus
	// Untracked lists paths git does not track, in git's own order.
	Untracked []string
	// Conflicted lists unmerged paths.
	Conflicted []string
}

// IsDirty reports whether anything differs from HEAD, untracked files
// included.
func (s *Status) IsDirty() bool {
	return len(s.Staged) > 0 || len(s.Unstaged) > 0 || len(s.Untracked) > 0 || len(s.Conflicted) > 0
}

// HasConflicts reports whether any path is unmerged.
func (s *Status) HasConflicts() bool { return len(s.Conflicted) > 0 }

// IsConflicted reports whether path is unmerged.
func (s *Status) IsConflicted(path string) bool {
	for _, p := range s.Conflicted {
		if p == path {
			return true
		}
	}
	return false
}

// Status reads the working tree status. Read-only, retried on lock
// contention.
func (r *Repository) Status() (*Status, error) {
	out, err := r.runRead("status", "--porcelain=v2", "--branch", "--untracked-files=all", "--no-renames")
	if err != nil {
		return nil, libErr("status", err)
	}
	return parseStatusV2(out), nil
}

// parseStatusV2 parses porcelain v2 output. Entry formats:
//
//	# branch.head <name>
//	1 XY ... <path>         ordinary change
//	2 XY ... <path><tab><origPath>  rename
//	u XY ... <path>         unmerged
//	? <path>                untracked
func parseStatusV2(out string) *Status {
	st := &Status{
		Staged:   make(map[string]FileStatus),
		Unstaged: make(map[string]FileStatus),
	}

	for _, line := range lines(out) {
		switch {
		case strings.HasPrefix(line, "# branch.head "):
			st.Branch = strings.TrimPrefix(line, "# branch.head ")
			if st.Branch == "(detached)" {
				st.Branch = ""
			}
		case strings.HasPrefix(line, "# branch.oid "):
			st.Head = strings.TrimPrefix(line, "# branch.oid ")
		case strings.HasPrefix(line, "# branch.ab "):
			fields := strings.Fields(strings.TrimPrefix(line, "# branch.ab "))
			for _, f := range fields {
				if strings.HasPrefix(f, "+") {
					st.Ahead = atoiOr0(f[1:])
				} else if strings.HasPrefix(f, "-") {
					st.Behind = atoiOr0(f[1:])
				}
			}

		case strings.HasPrefix(line, "1 "):
			fields := strings.SplitN(line, " ", 9)
			if len(fields) < 9 {
				continue
			}
			xy, path := fields[1], fields[8]
			recordStatusPair(st, xy, path)

		case strings.HasPrefix(line, "2 "):
			fields := strings.SplitN(line, " ", 10)
			if len(fields) < 10 {
				continue
			}
			xy := fields[1]
			path := fields[9]
			if tab := strings.Index(path, "\t"); tab >= 0 {
				path = path[:tab]
			}
			recordStatusPair(st, xy, path)

		case strings.HasPrefix(line, "u "):
			fields := strings.SplitN(line, " ", 11)
			if len(fields) >= 11 {
				st.Conflicted = append(st.Conflicted, fields[10])
			}

		case strings.HasPrefix(line, "? "):
			st.Untracked = append(st.Untracked, strings.TrimPrefix(line, "? "))
		}
	}
	return st
}

func recordStatusPair(st *Status, xy, path string) {
	if len(xy) != 2 {
		return
	}
	if c := statusFromCode(xy[0]); c >= 0 {
		st.Staged[path] = c
	}
	if c := statusFromCode(xy[1]); c >= 0 {
		st.Unstaged[path] = c
	}
}

func statusFromCode(code byte) FileStatus {
	switch code {
	case 'M', 'T':
		return StatusModified
	case 'A':
		return StatusAdded
	case 'D':
		return StatusDeleted
	case 'R', 'C':
		return StatusRenamed
	default:
		return -1
	}
}

func atoiOr0(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
	}
	return n
}

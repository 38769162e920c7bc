// Package conflict parses three-way merge markers out of file content and
// resolves a chosen side back into plain text. It is a pure text
// transform with no knowledge of the version-control layer.
package conflict

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

const (
	markerOurs   = "<<<<<<<"
	markerBase   = "|||||||"
	markerSplit  = "======="
	markerTheirs = ">>>>>>>"
)

// ErrMalformed indicates the marker triplet is incomplete or nested.
var ErrMalformed = errors.New("malformed conflict markers")

// Side selects which variant of a conflicted region to keep.
type Side int

const (
	SideOurs Side = iota
	SideTheirs
)

// String returns "ours" or "theirs".
func (s Side) String() string {
	if s == SideTheirs {
		return "theirs"
	}
	return "ours"
}

// Section is one conflicted region. Line indexes are zero-based positions
// in the file content split on newlines; StartLine addresses the <<<<<<<
// marker and EndLine the >>>>>>> marker, inclusive.
type Section struct {
	Ordinal   int
	StartLine int
	EndLine   int
	// OursLabel and TheirsLabel are the ref names git wrote after the
	// markers.
	OursLabel   string
	TheirsLabel string
	Ours        []string
	// Base holds the common ancestor lines when the diff3 conflict style
	// is in use; nil otherwise.
	Base   []string
	Theirs []string
}

// OursText returns the ours variant joined with newlines.
func (s *Section) OursText() string { return strings.Join(s.Ours, "\n") }

// TheirsText returns the theirs variant joined with newlines.
func (s *Section) TheirsText() string { return strings.Join(s.Theirs, "\n") }

// HasMarkers is a cheap check for whether content still carries any
// conflict marker, used to decide if a file counts as resolved.
func HasMarkers(content string) bool {
	for _, line := range strings.Split(content, "\n") {
		if isMarker(line, markerOurs) || isMarker(line, markerTheirs) {
			return true
		}
	}
	return false
}

// Parse scans content for conflict sections in order of appearance. Text
// outside markers is common context and is not returned. Incomplete or
// nested markers yield ErrMalformed.
func Parse(content string) ([]Section, error) {
	const (
		outside = iota
		inOurs
		inBase
		inTheirs
	)

	var sections []Section
	var cur Section
	state := outside

	for i, line := range strings.Split(content, "\n") {
		switch {
		case isMarker(line, markerOurs):
			if state != outside {
				return nil, fmt.Errorf("%w: nested %s at line %d", ErrMalformed, markerOurs, i+1)
			}
			cur = Section{Ordinal: len(sections), StartLine: i, OursLabel: markerLabel(line)}
			state = inOurs

		case isMarker(line, markerBase):
			if state != inOurs {
				return nil, fmt.Errorf("%w: unexpected %s at line %d", ErrMalformed, markerBase, i+1)
			}
			cur.Base = []string{}
			state = inBase

		case isMarker(line, markerSplit):
			if state != inOurs && state != inBase {
				if state == outside {
					// Bare ======= lines occur in ordinary text; only
					// meaningful inside a section.
					continue
				}
				return nil, fmt.Errorf("%w: unexpected %s at line %d", ErrMalformed, markerSplit, i+1)
			}
			state = inTheirs

		case isMarker(line, markerTheirs):
			if state != inTheirs {
				return nil, fmt.Errorf("%w: unexpected %s at line %d", ErrMalformed, markerTheirs, i+1)
			}
			cur.EndLine = i
			cur.TheirsLabel = markerLabel(line)
			sections = append(sections, cur)
			state = outside

		default:
			switch state {
			case inOurs:
				cur.Ours = append(cur.Ours, line)
			case inBase:
				cur.Base = append(cur.Base, line)
			case inTheirs:
				cur.Theirs = append(cur.Theirs, line)
			}
		}
	}

	if state != outside {
		return nil, fmt.Errorf("%w: unterminated section starting at line %d", ErrMalformed, cur.StartLine+1)
	}
	return sections, nil
}

// Resolve replaces the section with the given ordinal by the chosen
// side's content and returns the new file content. The section and its
// markers disappear; everything else is untouched. Sections are
// re-parsed from content, so ordinals stay valid across prior
// resolutions of other sections only if the caller re-reads content in
// between.
func Resolve(content string, ordinal int, side Side) (string, error) {
	sections, err := Parse(content)
	if err != nil {
		return "", err
	}
	if ordinal < 0 || ordinal >= len(sections) {
		return "", fmt.Errorf("%w: no section %d", ErrMalformed, ordinal)
	}
	sec := sections[ordinal]

	replacement := sec.Ours
	if side == SideTheirs {
		replacement = sec.Theirs
	}

	lines := strings.Split(content, "\n")
	resolved := make([]string, 0, len(lines))
	resolved = append(resolved, lines[:sec.StartLine]...)
	resolved = append(resolved, replacement...)
	resolved = append(resolved, lines[sec.EndLine+1:]...)
	return strings.Join(resolved, "\n"), nil
}

// Preview renders the unified diff a resolution would produce, for
// logging and confirmation surfaces.
func Preview(path, content string, ordinal int, side Side) (string, error) {
	resolved, err := Resolve(content, ordinal, side)
	if err != nil {
		return "", err
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(content),
		B:        difflib.SplitLines(resolved),
		FromFile: "a/" + path,
		ToFile:   "b/" + path,
		Context:  3,
	})
}

func isMarker(line, marker string) bool {
	if !strings.HasPrefix(line, marker) {
		return false
	}
	rest := line[len(marker):]
	return rest == "" || strings.HasPrefix(rest, " ")
}

func markerLabel(line string) string {
	if idx := strings.IndexByte(line, ' '); idx >= 0 {
		return strings.TrimSpace(line[idx+1:])
	}
	return ""
}

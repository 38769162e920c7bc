// Package export renders synthesized patches for consumption outside the
// TUI: raw `git apply` input, fenced markdown for sharing, or the
// terminal clipboard via OSC52.
package export

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cj3636/gstage/internal/git"
	"github.com/cj3636/gstage/internal/patch"
)

// Format selects the output rendering.
type Format string

const (
	FormatPatch    Format = "patch"
	FormatMarkdown Format = "markdown"
)

// Render produces the chosen representation of a file's patch.
func Render(f *git.FileDiff, format Format) (string, error) {
	text := patch.File(f)
	switch format {
	case FormatPatch, "":
		return text, nil
	case FormatMarkdown:
		var b strings.Builder
		fmt.Fprintf(&b, "### %s\n\n", f.Path)
		b.WriteString("```diff\n")
		b.WriteString(text)
		if !strings.HasSuffix(text, "\n") {
			b.WriteByte('\n')
		}
		b.WriteString("```\n")
		return b.String(), nil
	default:
		return "", fmt.Errorf("unsupported export format: %s", format)
	}
}

// RenderHunk produces the chosen representation of a single hunk.
func RenderHunk(f *git.FileDiff, hunkIndex int, format Format) (string, error) {
	text, err := patch.Hunk(f, hunkIndex)
	if err != nil {
		return "", err
	}
	if format == FormatMarkdown {
		return "```diff\n" + text + "```\n", nil
	}
	return text, nil
}

// CopyToClipboard writes the content to the terminal clipboard using OSC52.
// The writer defaults to stdout when nil.
func CopyToClipboard(content string, w io.Writer) error {
	if w == nil {
		w = os.Stdout
	}
	encoded := base64.StdEncoding.EncodeToString([]byte(content))
	_, err := fmt.Fprintf(w, "\x1b]52;c;%s\a", encoded)
	return err
}

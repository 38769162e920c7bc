package export

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cj3636/gstage/internal/git"
)

func sampleFile() *git.FileDiff {
	return &git.FileDiff{
		Path:     "a.txt",
		OrigPath: "a.txt",
		Status:   git.StatusModified,
		Hunks: []git.Hunk{{
			OldStart: 1, OldCount: 1, NewStart: 1, NewCount: 1,
			Header: "@@ -1 +1 @@",
			Lines: []git.Line{
				{Kind: git.LineRemoved, Text: "old", OldNo: 1},
				{Kind: git.LineAdded, Text: "new", NewNo: 1},
			},
		}},
	}
}

func TestRenderPatch(t *testing.T) {
	out, err := Render(sampleFile(), FormatPatch)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "diff --git a/a.txt b/a.txt\n"))
	require.Contains(t, out, "-old\n+new\n")

	// Empty format defaults to patch.
	def, err := Render(sampleFile(), "")
	require.NoError(t, err)
	require.Equal(t, out, def)
}

func TestRenderMarkdown(t *testing.T) {
	out, err := Render(sampleFile(), FormatMarkdown)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "### a.txt\n\n```diff\n"))
	require.True(t, strings.HasSuffix(out, "```\n"))
	require.Contains(t, out, "+new\n")
}

func TestRenderUnknownFormat(t *testing.T) {
	_, err := Render(sampleFile(), Format("html"))
	require.Error(t, err)
}

func TestRenderHunk(t *testing.T) {
	out, err := RenderHunk(sampleFile(), 0, FormatPatch)
	require.NoError(t, err)
	require.Contains(t, out, "@@ -1 +1 @@")

	_, err = RenderHunk(sampleFile(), 5, FormatPatch)
	require.ErrorIs(t, err, git.ErrEmptyPatch)
}

func TestCopyToClipboardEmitsOSC52(t *testing.T) {
	var b strings.Builder
	require.NoError(t, CopyToClipboard("hello", &b))

	out := b.String()
	require.True(t, strings.HasPrefix(out, "\x1b]52;c;"))
	require.True(t, strings.HasSuffix(out, "\a"))

	payload := strings.TrimSuffix(strings.TrimPrefix(out, "\x1b]52;c;"), "\a")
	decoded, err := base64.StdEncoding.DecodeString(payload)
	require.NoError(t, err)
	require.Equal(t, "hello", string(decoded))
}

package git

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const modifyDiff = `diff --git a/main.go b/main.go
index 1a2b3c4..5d6e7f8 100644
--- a/main.go
+++ b/main.go
@@ -1,5 +1,5 @@ package main
 package main
 
-func old() {}
+func renamedFn() {}
 
 var x = 1
@@ -20,3 +20,4 @@ func tail() {
 	a()
 	b()
+	c()
 }
`

func TestParseUnifiedModify(t *testing.T) {
	d := ParseUnified(modifyDiff)
	require.Len(t, d.Files, 1)

	f := d.Files[0]
	require.Equal(t, "main.go", f.Path)
	require.Equal(t, "main.go", f.OrigPath)
	require.Equal(t, StatusModified, f.Status)
	require.False(t, f.Binary)
	require.Len(t, f.Hunks, 2)

	h := f.Hunks[0]
	require.Equal(t, 1, h.OldStart)
	require.Equal(t, 5, h.OldCount)
	require.Equal(t, 1, h.NewStart)
	require.Equal(t, 5, h.NewCount)
	require.Equal(t, "@@ -1,5 +1,5 @@ package main", h.Header)
	require.Len(t, h.Lines, 6)

	require.Equal(t, LineRemoved, h.Lines[2].Kind)
	require.Equal(t, "func old() {}", h.Lines[2].Text)
	require.Equal(t, 3, h.Lines[2].OldNo)
	require.Zero(t, h.Lines[2].NewNo)

	require.Equal(t, LineAdded, h.Lines[3].Kind)
	require.Equal(t, 3, h.Lines[3].NewNo)
	require.Zero(t, h.Lines[3].OldNo)

	require.Equal(t, LineContext, h.Lines[4].Kind)
	require.Equal(t, 4, h.Lines[4].OldNo)
	require.Equal(t, 4, h.Lines[4].NewNo)

	h2 := f.Hunks[1]
	require.Equal(t, 20, h2.OldStart)
	require.Equal(t, 1, h2.Delta())

	added, removed := f.Changes()
	require.Equal(t, 2, added)
	require.Equal(t, 1, removed)
}

const addedDiff = `diff --git a/docs/new.md b/docs/new.md
new file mode 100644
index 0000000..e69de29
--- /dev/null
+++ b/docs/new.md
@@ -0,0 +1,2 @@
+# Title
+body
`

func TestParseUnifiedAddedFile(t *testing.T) {
	d := ParseUnified(addedDiff)
	require.Len(t, d.Files, 1)

	f := d.Files[0]
	require.Equal(t, StatusAdded, f.Status)
	require.Equal(t, "docs/new.md", f.Path)
	require.Len(t, f.Hunks, 1)
	require.Equal(t, 0, f.Hunks[0].OldStart)
	require.Equal(t, 0, f.Hunks[0].OldCount)
	require.Equal(t, 2, f.Hunks[0].NewCount)
}

const deletedDiff = `diff --git a/old.txt b/old.txt
deleted file mode 100644
index e69de29..0000000
--- a/old.txt
+++ /dev/null
@@ -1,2 +0,0 @@
-gone
-also gone
`

func TestParseUnifiedDeletedFile(t *testing.T) {
	d := ParseUnified(deletedDiff)
	require.Len(t, d.Files, 1)
	require.Equal(t, StatusDeleted, d.Files[0].Status)
	require.Equal(t, "old.txt", d.Files[0].Path, "deleted files keep their path from the header")
}

const renameDiff = `diff --git a/lib/a.go b/lib/b.go
similarity index 95%
rename from lib/a.go
rename to lib/b.go
index 1a2b3c4..5d6e7f8 100644
--- a/lib/a.go
+++ b/lib/b.go
@@ -1 +1 @@
-package a
+package b
`

func TestParseUnifiedRename(t *testing.T) {
	d := ParseUnified(renameDiff)
	require.Len(t, d.Files, 1)

	f := d.Files[0]
	require.Equal(t, StatusRenamed, f.Status)
	require.Equal(t, "lib/a.go", f.OrigPath)
	require.Equal(t, "lib/b.go", f.Path)
	require.Len(t, f.Hunks, 1)
}

const binaryDiff = `diff --git a/logo.png b/logo.png
index 1a2b3c4..5d6e7f8 100644
Binary files a/logo.png and b/logo.png differ
`

func TestParseUnifiedBinary(t *testing.T) {
	d := ParseUnified(binaryDiff)
	require.Len(t, d.Files, 1)
	require.True(t, d.Files[0].Binary)
	require.Empty(t, d.Files[0].Hunks)
}

const noNewlineDiff = `diff --git a/a.txt b/a.txt
index 1a2b3c4..5d6e7f8 100644
--- a/a.txt
+++ b/a.txt
@@ -1 +1 @@
-old
\ No newline at end of file
+new
\ No newline at end of file
`

func TestParseUnifiedNoNewline(t *testing.T) {
	d := ParseUnified(noNewlineDiff)
	require.Len(t, d.Files, 1)

	lines := d.Files[0].Hunks[0].Lines
	require.Len(t, lines, 2)
	require.True(t, lines[0].NoNewline)
	require.True(t, lines[1].NoNewline)
}

func TestParseUnifiedMultipleFiles(t *testing.T) {
	d := ParseUnified(modifyDiff + addedDiff)
	require.Len(t, d.Files, 2)
	require.NotNil(t, d.File("main.go"))
	require.NotNil(t, d.File("docs/new.md"))
	require.Nil(t, d.File("absent.go"))
}

func TestParseUnifiedEmpty(t *testing.T) {
	require.True(t, ParseUnified("").IsEmpty())
	require.True(t, ParseUnified("\n\n").IsEmpty())
	var nilDiff *Diff
	require.True(t, nilDiff.IsEmpty())
}

func TestParseHunkHeader(t *testing.T) {
	h, ok := parseHunkHeader("@@ -10,4 +12,6 @@ func foo() {")
	require.True(t, ok)
	require.Equal(t, 10, h.OldStart)
	require.Equal(t, 4, h.OldCount)
	require.Equal(t, 12, h.NewStart)
	require.Equal(t, 6, h.NewCount)

	// Counts default to 1 when omitted.
	h, ok = parseHunkHeader("@@ -3 +3 @@")
	require.True(t, ok)
	require.Equal(t, 1, h.OldCount)
	require.Equal(t, 1, h.NewCount)

	_, ok = parseHunkHeader("@@ not a header")
	require.False(t, ok)
}

func TestSplitGitHeaderQuotedPaths(t *testing.T) {
	oldPath, newPath, ok := splitGitHeader(`diff --git "a/with space.txt" "b/with space.txt"`)
	require.True(t, ok)
	require.Equal(t, "with space.txt", oldPath)
	require.Equal(t, "with space.txt", newPath)

	oldPath, newPath, ok = splitGitHeader("diff --git a/x.go b/x.go")
	require.True(t, ok)
	require.Equal(t, "x.go", oldPath)
	require.Equal(t, "x.go", newPath)
}

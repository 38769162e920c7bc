package git

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const statusOutput = `# branch.oid 4a5b6c7d8e9f0a1b2c3d4e5f6a7b8c9d0e1f2a3b
# branch.head main
# branch.upstream origin/main
# branch.ab +2 -1
1 M. N... 100644 100644 100644 1111111 2222222 staged.go
1 .M N... 100644 100644 100644 1111111 1111111 unstaged.go
1 MM N... 100644 100644 100644 1111111 2222222 both.go
1 A. N... 000000 100644 100644 0000000 2222222 added.go
1 .D N... 100644 100644 000000 1111111 1111111 removed.go
2 R. N... 100644 100644 100644 1111111 2222222 R100 renamed.go	orig.go
u UU N... 100644 100644 100644 100644 1111111 2222222 3333333 conflicted.go
? scratch.txt
? notes/draft.md
`

func TestParseStatusV2(t *testing.T) {
	st := parseStatusV2(statusOutput)

	require.Equal(t, "main", st.Branch)
	require.Equal(t, "4a5b6c7d8e9f0a1b2c3d4e5f6a7b8c9d0e1f2a3b", st.Head)
	require.Equal(t, 2, st.Ahead)
	require.Equal(t, 1, st.Behind)

	require.Equal(t, StatusModified, st.Staged["staged.go"])
	require.NotContains(t, st.Unstaged, "staged.go")

	require.Equal(t, StatusModified, st.Unstaged["unstaged.go"])
	require.NotContains(t, st.Staged, "unstaged.go")

	// A file can be in both maps at once.
	require.Contains(t, st.Staged, "both.go")
	require.Contains(t, st.Unstaged, "both.go")

	require.Equal(t, StatusAdded, st.Staged["added.go"])
	require.Equal(t, StatusDeleted, st.Unstaged["removed.go"])
	require.Equal(t, StatusRenamed, st.Staged["renamed.go"], "rename entry keys on the new path")

	require.Equal(t, []string{"conflicted.go"}, st.Conflicted)
	require.Equal(t, []string{"scratch.txt", "notes/draft.md"}, st.Untracked)
}

func TestParseStatusV2Detached(t *testing.T) {
	st := parseStatusV2("# branch.oid abc123\n# branch.head (detached)\n")
	require.Empty(t, st.Branch)
	require.Equal(t, "abc123", st.Head)
	require.False(t, st.IsDirty())
}

func TestStatusPredicates(t *testing.T) {
	st := parseStatusV2(statusOutput)
	require.True(t, st.IsDirty())
	require.True(t, st.HasConflicts())
	require.True(t, st.IsConflicted("conflicted.go"))
	require.False(t, st.IsConflicted("staged.go"))

	empty := parseStatusV2("# branch.head main\n")
	require.False(t, empty.IsDirty())
	require.False(t, empty.HasConflicts())
}

func TestParseStatusV2SkipsMalformedEntries(t *testing.T) {
	st := parseStatusV2("1 M.\nu UU short\n?\n")
	require.Empty(t, st.Staged)
	require.Empty(t, st.Conflicted)
	require.Empty(t, st.Untracked)
}

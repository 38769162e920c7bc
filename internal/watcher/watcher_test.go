package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestWatcher(t *testing.T) (*Watcher, string) {
	t.Helper()
	root := t.TempDir()
	gitDir := filepath.Join(root, ".git")
	require.NoError(t, os.MkdirAll(gitDir, 0o755))

	w, err := New(root, gitDir, 50*time.Millisecond, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	require.NoError(t, w.Start())
	return w, root
}

func waitSignal(t *testing.T, w *Watcher, timeout time.Duration) bool {
	t.Helper()
	select {
	case <-w.Changes():
		return true
	case <-time.After(timeout):
		return false
	}
}

func TestBurstCoalescesIntoOneSignal(t *testing.T) {
	w, root := newTestWatcher(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(root, "f.txt"), []byte{byte('a' + i)}, 0o644))
	}

	require.True(t, waitSignal(t, w, 2*time.Second), "burst must produce a signal")
	require.False(t, waitSignal(t, w, 300*time.Millisecond), "burst must produce exactly one signal")
}

func TestLockFilesIgnored(t *testing.T) {
	w, root := newTestWatcher(t)

	require.NoError(t, os.WriteFile(filepath.Join(root, "index.lock"), []byte("x"), 0o644))
	require.False(t, waitSignal(t, w, 300*time.Millisecond))

	require.NoError(t, os.WriteFile(filepath.Join(root, "real.txt"), []byte("x"), 0o644))
	require.True(t, waitSignal(t, w, 2*time.Second))
}

func TestGitDirIndexTriggersSignal(t *testing.T) {
	w, root := newTestWatcher(t)
	gitDir := filepath.Join(root, ".git")

	// Noise entries in the git dir stay silent.
	require.NoError(t, os.WriteFile(filepath.Join(gitDir, "COMMIT_EDITMSG"), []byte("m"), 0o644))
	require.False(t, waitSignal(t, w, 300*time.Millisecond))

	require.NoError(t, os.WriteFile(filepath.Join(gitDir, "index"), []byte("idx"), 0o644))
	require.True(t, waitSignal(t, w, 2*time.Second))
}

func TestNewDirectoryJoinsWatchSet(t *testing.T) {
	w, root := newTestWatcher(t)

	sub := filepath.Join(root, "pkg")
	require.NoError(t, os.Mkdir(sub, 0o755))
	require.True(t, waitSignal(t, w, 2*time.Second), "directory creation itself signals")

	require.NoError(t, os.WriteFile(filepath.Join(sub, "inner.go"), []byte("package pkg"), 0o644))
	require.True(t, waitSignal(t, w, 2*time.Second), "files inside the new directory are seen")
}

func TestStartAfterClose(t *testing.T) {
	root := t.TempDir()
	gitDir := filepath.Join(root, ".git")
	require.NoError(t, os.MkdirAll(gitDir, 0o755))

	w, err := New(root, gitDir, 0, zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, DefaultDebounce, w.debounce, "non-positive debounce falls back")

	require.NoError(t, w.Close())
	require.NoError(t, w.Close(), "close is idempotent")
	require.ErrorIs(t, w.Start(), ErrClosed)
}

func TestRelevantFilter(t *testing.T) {
	root := t.TempDir()
	gitDir := filepath.Join(root, ".git")
	w := &Watcher{root: root, gitDir: gitDir}

	ev := func(path string) fsnotify.Event {
		return fsnotify.Event{Name: path, Op: fsnotify.Write}
	}

	require.True(t, w.relevant(ev(filepath.Join(root, "main.go"))))
	require.False(t, w.relevant(ev(filepath.Join(root, "main.go~"))))
	require.False(t, w.relevant(ev(filepath.Join(gitDir, "index.lock"))))

	require.True(t, w.relevant(ev(filepath.Join(gitDir, "index"))))
	require.True(t, w.relevant(ev(filepath.Join(gitDir, "MERGE_HEAD"))))
	require.True(t, w.relevant(ev(filepath.Join(gitDir, "rebase-merge", "msgnum"))))
	require.False(t, w.relevant(ev(filepath.Join(gitDir, "objects", "ab", "cdef"))))
	require.False(t, w.relevant(ev(filepath.Join(gitDir, "COMMIT_EDITMSG"))))
}

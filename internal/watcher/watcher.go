// Package watcher observes the working tree and the git dir for external
// changes and reports them as coalesced refresh signals. It never touches
// repository state itself; consumers decide when to rebuild.
package watcher

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce is the window within which raw events coalesce into a
// single signal.
const DefaultDebounce = 150 * time.Millisecond

// ErrClosed is returned from Start after Close.
var ErrClosed = errors.New("watcher closed")

// gitDirInteresting names the git-dir entries whose mutation implies the
// index or an operation state changed. Everything else under the git dir
// (objects, packed refs, logs) is noise for refresh purposes.
var gitDirInteresting = []string{
	"index",
	"HEAD",
	"MERGE_HEAD",
	"CHERRY_PICK_HEAD",
	"REVERT_HEAD",
	"rebase-merge",
	"rebase-apply",
}

// Watcher delivers debounced change notifications for a repository.
type Watcher struct {
	root     string
	gitDir   string
	debounce time.Duration
	log      zerolog.Logger

	fsw     *fsnotify.Watcher
	changes chan struct{}
	done    chan struct{}
	closed  bool
}

// New builds a watcher for the given worktree root and git dir. A
// non-positive debounce falls back to DefaultDebounce.
func New(root, gitDir string, debounce time.Duration, log zerolog.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		root:     root,
		gitDir:   gitDir,
		debounce: debounce,
		log:      log.With().Str("component", "watcher").Logger(),
		fsw:      fsw,
		changes:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}, nil
}

// Changes returns the coalesced notification channel. The channel has a
// one-slot buffer: a pending signal absorbs later ones, which is exactly
// the coalescing the refresh scheduler wants.
func (w *Watcher) Changes() <-chan struct{} { return w.changes }

// Start subscribes to the worktree (recursively, minus the git dir) and
// to the git dir itself, then runs the debounce loop until Close.
func (w *Watcher) Start() error {
	if w.closed {
		return ErrClosed
	}

	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable subtree, skip
		}
		if !d.IsDir() {
			return nil
		}
		if w.insideGitDir(path) {
			return filepath.SkipDir
		}
		if addErr := w.fsw.Add(path); addErr != nil {
			w.log.Debug().Err(addErr).Str("path", path).Msg("watch add failed")
		}
		return nil
	})
	if err != nil {
		return err
	}

	if addErr := w.fsw.Add(w.gitDir); addErr != nil {
		w.log.Debug().Err(addErr).Str("path", w.gitDir).Msg("git dir watch failed")
	}

	go w.loop()
	return nil
}

// Close stops the watcher. Safe to call twice.
func (w *Watcher) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	close(w.done)
	return w.fsw.Close()
}

func (w *Watcher) loop() {
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			w.log.Trace().Str("path", ev.Name).Str("op", ev.Op.String()).Msg("fs event")

			// New directories join the watch set so nested creates are seen.
			if ev.Op.Has(fsnotify.Create) && !w.insideGitDir(ev.Name) {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					_ = w.fsw.Add(ev.Name)
				}
			}

			if timer == nil {
				timer = time.NewTimer(w.debounce)
				fire = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case <-fire:
			timer = nil
			fire = nil
			select {
			case w.changes <- struct{}{}:
			default:
				// A signal is already pending; this one coalesces into it.
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Debug().Err(err).Msg("watch error")
		}
	}
}

// relevant filters out git-dir noise and transient lock files.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	name := filepath.Base(ev.Name)
	if strings.HasSuffix(name, ".lock") || strings.HasSuffix(name, "~") {
		return false
	}
	if !w.insideGitDir(ev.Name) {
		return true
	}
	rel, err := filepath.Rel(w.gitDir, ev.Name)
	if err != nil {
		return false
	}
	top := strings.SplitN(filepath.ToSlash(rel), "/", 2)[0]
	for _, interesting := range gitDirInteresting {
		if top == interesting {
			return true
		}
	}
	return false
}

func (w *Watcher) insideGitDir(path string) bool {
	rel, err := filepath.Rel(w.gitDir, path)
	if err != nil {
		return false
	}
	return rel == "." || !strings.HasPrefix(rel, "..")
}

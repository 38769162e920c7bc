// Package git wraps the underlying version-control machinery: read-only
// projections come from go-git, everything that mutates the index or the
// worktree shells out to the git binary the way porcelain tools do. The
// package exposes raw per-file diffs, patch application, and the
// merge/rebase/cherry-pick/revert/stash primitives the engine sequences.
package git

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/rs/zerolog"
)

// readRetries is how often read-only calls retry on index.lock contention.
const readRetries = 3

// readRetryDelay is the base backoff between read retries.
const readRetryDelay = 50 * time.Millisecond

// Repository is a handle on a single git repository. Mutating calls shell
// out to git; read-only ref and history queries go through a go-git handle
// so they never contend with the write path.
type Repository struct {
	root   string
	gitDir string
	repo   *gogit.Repository
	log    zerolog.Logger
}

// Open discovers the repository containing path and opens it.
func Open(path string, log zerolog.Logger) (*Repository, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, libErr("open", err)
	}

	repo, err := gogit.PlainOpenWithOptions(abs, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if err == gogit.ErrRepositoryNotExists {
			return nil, ErrNotRepository
		}
		return nil, libErr("open", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, libErr("open", err)
	}
	root := wt.Filesystem.Root()

	gitDir := filepath.Join(root, ".git")
	if info, statErr := os.Stat(gitDir); statErr == nil && !info.IsDir() {
		// Linked worktree: .git is a file pointing at the real git dir.
		content, readErr := os.ReadFile(gitDir)
		if readErr == nil && bytes.HasPrefix(content, []byte("gitdir:")) {
			gitDir = strings.TrimSpace(strings.TrimPrefix(string(content), "gitdir:"))
		}
	}

	return &Repository{
		root:   root,
		gitDir: gitDir,
		repo:   repo,
		log:    log.With().Str("component", "git").Logger(),
	}, nil
}

// Root returns the worktree root path.
func (r *Repository) Root() string { return r.root }

// GitDir returns the resolved .git directory path.
func (r *Repository) GitDir() string { return r.gitDir }

// run executes git with the given args in the repository root.
func (r *Repository) run(args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = r.root

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return stdout.String(), fmt.Errorf("git %s: %s", strings.Join(args, " "), msg)
	}
	return stdout.String(), nil
}

// runRead executes a read-only git command, retrying a fixed number of
// times with backoff when the index lock is held by another process.
// Writes never retry: a timed-out write may still have landed, and
// re-running it could apply a patch twice.
func (r *Repository) runRead(args ...string) (string, error) {
	var out string
	var err error
	for attempt := 0; attempt < readRetries; attempt++ {
		out, err = r.run(args...)
		if err == nil || !isLockContention(err) {
			return out, err
		}
		delay := readRetryDelay << attempt
		r.log.Debug().Err(err).Dur("backoff", delay).Msg("index lock contention, retrying read")
		time.Sleep(delay)
	}
	return out, err
}

// runStdin executes a git command feeding input on stdin.
func (r *Repository) runStdin(input string, args ...string) error {
	cmd := exec.Command("git", args...)
	cmd.Dir = r.root
	cmd.Stdin = strings.NewReader(input)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return fmt.Errorf("git %s: %s", strings.Join(args, " "), msg)
	}
	return nil
}

// lines splits command output into trimmed lines, dropping a trailing
// empty line.
func lines(out string) []string {
	if out == "" {
		return nil
	}
	var result []string
	scanner := bufio.NewScanner(strings.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		result = append(result, scanner.Text())
	}
	return result
}

func isLockContention(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "index.lock") || strings.Contains(msg, "Unable to create") && strings.Contains(msg, ".lock")
}

// ReadWorktreeFile returns the current worktree content of a tracked or
// untracked file, relative to the repository root.
func (r *Repository) ReadWorktreeFile(path string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(r.root, path))
	if err != nil {
		return nil, libErr("read worktree file", err)
	}
	return data, nil
}

// WriteWorktreeFile replaces the worktree content of a file, preserving
// its mode when the file already exists.
func (r *Repository) WriteWorktreeFile(path string, content []byte) error {
	full := filepath.Join(r.root, path)
	mode := os.FileMode(0o644)
	if info, err := os.Stat(full); err == nil {
		mode = info.Mode()
	}
	if err := os.WriteFile(full, content, mode); err != nil {
		return libErr("write worktree file", err)
	}
	return nil
}

package main

import (
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"

	"github.com/cj3636/gstage/internal/config"
	"github.com/cj3636/gstage/internal/engine"
	"github.com/cj3636/gstage/internal/export"
	"github.com/cj3636/gstage/internal/git"
	"github.com/cj3636/gstage/internal/tui"
	"github.com/cj3636/gstage/internal/watcher"
)

var (
	showVersion  bool
	help         bool
	repoPath     string
	configPath   string
	logFile      string
	themeName    string
	noConfirm    bool
	exportPath   string
	exportFormat string
	exportCopy   bool
)

func init() {
	flag.BoolVarP(&showVersion, "version", "v", false, "Show version information")
	flag.BoolVarP(&help, "help", "h", false, "Show help information")
	flag.StringVarP(&repoPath, "path", "p", ".", "Repository path (any directory inside the worktree)")
	flag.StringVar(&configPath, "config", "", "Config file path (default: $XDG_CONFIG_HOME/gstage/config.json)")
	flag.StringVar(&logFile, "log-file", "", "Write structured logs to this file")
	flag.StringVar(&themeName, "theme", "", "Theme preset: default, solarized, or dracula")
	flag.BoolVar(&noConfirm, "no-confirm-discard", false, "Skip the confirmation before discarding changes")
	flag.StringVar(&exportPath, "export", "", "Print the unstaged patch for the given file and exit")
	flag.StringVar(&exportFormat, "export-format", "patch", "Export format: patch or markdown")
	flag.BoolVar(&exportCopy, "export-copy", false, "Copy the exported patch to the clipboard")
	flag.Usage = usage
}

func usage() {
	fmt.Println("gstage - an interactive staging TUI for git working trees")
	fmt.Println("")
	fmt.Println("Usage:")
	fmt.Println("  gstage [options]")
	fmt.Println("  gstage --export <file>            # print a file's unstaged patch")
	fmt.Println("")
	fmt.Println("Options:")
	flag.PrintDefaults()
	fmt.Println("")
	fmt.Println("Keyboard shortcuts:")
	fmt.Println("  j/k    Move cursor")
	fmt.Println("  tab    Expand/collapse node")
	fmt.Println("  s      Stage file/hunk/selected lines")
	fmt.Println("  u      Unstage file/hunk/selected lines")
	fmt.Println("  x      Discard file/hunk/selected lines (irreversible)")
	fmt.Println("  V      Extend line selection")
	fmt.Println("  o/t    Resolve conflict keeping ours/theirs")
	fmt.Println("  M/R    Merge/rebase a picked branch or tag")
	fmt.Println("  P      Cherry-pick a recent commit")
	fmt.Println("  c/a    Continue/abort the current operation")
	fmt.Println("  z/Z    Stash push/pop (pop opens a stash picker)")
	fmt.Println("  C      Commit staged changes")
	fmt.Println("  r      Refresh")
	fmt.Println("  q      Quit")
}

func newLogger(path string) (zerolog.Logger, io.Closer) {
	if path == "" {
		return zerolog.Nop(), nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: cannot open log file: %v\n", err)
		return zerolog.Nop(), nil
	}
	return zerolog.New(f).With().Timestamp().Logger(), f
}

func runExport(repo *git.Repository) error {
	diff, err := repo.Diff(git.Scope{Kind: git.WorktreeVsIndex})
	if err != nil {
		return err
	}
	file := diff.File(exportPath)
	if file == nil {
		return fmt.Errorf("no unstaged changes for %s", exportPath)
	}

	rendered, err := export.Render(file, export.Format(exportFormat))
	if err != nil {
		return err
	}
	if exportCopy {
		return export.CopyToClipboard(rendered, os.Stdout)
	}
	fmt.Print(rendered)
	return nil
}

func main() {
	flag.Parse()

	if help {
		usage()
		os.Exit(0)
	}
	if showVersion {
		fmt.Println("gstage version 0.1.0")
		os.Exit(0)
	}

	if configPath == "" {
		configPath = config.DefaultPath()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading config: %v\n", err)
		os.Exit(1)
	}
	if themeName != "" {
		cfg.ThemePreset = config.ThemePreset(themeName)
		cfg.Theme = config.ThemeForPreset(cfg.ThemePreset)
	}
	if noConfirm {
		cfg.ConfirmDiscard = false
	}
	if logFile != "" {
		cfg.LogFile = logFile
	}

	log, logCloser := newLogger(cfg.LogFile)
	if logCloser != nil {
		defer logCloser.Close()
	}

	repo, err := git.Open(repoPath, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening repository: %v\n", err)
		os.Exit(1)
	}

	if exportPath != "" {
		if err := runExport(repo); err != nil {
			fmt.Fprintf(os.Stderr, "Error exporting patch: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	w, err := watcher.New(repo.Root(), repo.GitDir(), cfg.DebounceDelay, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating watcher: %v\n", err)
		os.Exit(1)
	}
	if err := w.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Error starting watcher: %v\n", err)
		os.Exit(1)
	}
	defer w.Close()

	eng := engine.New(repo, log)
	eng.Start(w.Changes())
	defer eng.Stop()

	// Block on a synchronous refresh so the first frame has content.
	if err := eng.Refresh(); err != nil {
		log.Warn().Err(err).Msg("initial refresh failed")
	}

	model := tui.NewModel(eng, cfg)
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}
}

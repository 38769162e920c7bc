package config

import (
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Config holds the application configuration
type Config struct {
	Theme       Theme
	ThemePreset ThemePreset
	// DebounceDelay is the window in which filesystem events coalesce
	// into one refresh.
	DebounceDelay time.Duration
	// LogFile receives structured logs; empty disables logging. Logs
	// never go to stdout because the TUI owns the terminal.
	LogFile string
	// ConfirmDiscard makes the UI ask before a destructive discard.
	ConfirmDiscard bool
	Keybindings    Keybindings
}

// ThemePreset describes a named theme configuration.
type ThemePreset string

const (
	PresetDefault  ThemePreset = "default"
	PresetSolarize ThemePreset = "solarized"
	PresetDracula  ThemePreset = "dracula"
)

// Keybindings maps semantic actions to one or more key sequences.
type Keybindings map[string][]string

// Theme defines the color scheme for the application
type Theme struct {
	SectionFg  lipgloss.Color
	SectionBg  lipgloss.Color
	FileFg     lipgloss.Color
	HunkFg     lipgloss.Color
	AddedFg    lipgloss.Color
	RemovedFg  lipgloss.Color
	ContextFg  lipgloss.Color
	ConflictFg lipgloss.Color
	CursorBg   lipgloss.Color
	SelectedBg lipgloss.Color
	StatusFg   lipgloss.Color
	StatusBg   lipgloss.Color
	ErrorFg    lipgloss.Color
	HelpFg     lipgloss.Color
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		ThemePreset:    PresetDefault,
		Theme:          ThemeForPreset(PresetDefault),
		DebounceDelay:  150 * time.Millisecond,
		ConfirmDiscard: true,
		Keybindings:    DefaultKeybindings(),
	}
}

// DefaultTheme returns the default color theme
func DefaultTheme() Theme {
	return Theme{
		SectionFg:  lipgloss.Color("#FFFFFF"),
		SectionBg:  lipgloss.Color("#5F5FAF"),
		FileFg:     lipgloss.Color("#D0D0D0"),
		HunkFg:     lipgloss.Color("#8FBCBB"),
		AddedFg:    lipgloss.Color("#A8E6A3"),
		RemovedFg:  lipgloss.Color("#E6A3A3"),
		ContextFg:  lipgloss.Color("#B0B0B0"),
		ConflictFg: lipgloss.Color("#E6C07B"),
		CursorBg:   lipgloss.Color("#3A3A5F"),
		SelectedBg: lipgloss.Color("#2D4A2B"),
		StatusFg:   lipgloss.Color("#FFFFFF"),
		StatusBg:   lipgloss.Color("#5F5FAF"),
		ErrorFg:    lipgloss.Color("#FF5F5F"),
		HelpFg:     lipgloss.Color("#888888"),
	}
}

// ThemeForPreset resolves a preset name to a concrete Theme.
func ThemeForPreset(preset ThemePreset) Theme {
	switch preset {
	case PresetSolarize:
		return Theme{
			SectionFg:  lipgloss.Color("#EEE8D5"),
			SectionBg:  lipgloss.Color("#586E75"),
			FileFg:     lipgloss.Color("#93A1A1"),
			HunkFg:     lipgloss.Color("#2AA198"),
			AddedFg:    lipgloss.Color("#859900"),
			RemovedFg:  lipgloss.Color("#DC322F"),
			ContextFg:  lipgloss.Color("#93A1A1"),
			ConflictFg: lipgloss.Color("#B58900"),
			CursorBg:   lipgloss.Color("#073642"),
			SelectedBg: lipgloss.Color("#094050"),
			StatusFg:   lipgloss.Color("#EEE8D5"),
			StatusBg:   lipgloss.Color("#586E75"),
			ErrorFg:    lipgloss.Color("#DC322F"),
			HelpFg:     lipgloss.Color("#93A1A1"),
		}
	case PresetDracula:
		return Theme{
			SectionFg:  lipgloss.Color("#F8F8F2"),
			SectionBg:  lipgloss.Color("#6272A4"),
			FileFg:     lipgloss.Color("#F8F8F2"),
			HunkFg:     lipgloss.Color("#8BE9FD"),
			AddedFg:    lipgloss.Color("#50FA7B"),
			RemovedFg:  lipgloss.Color("#FF79C6"),
			ContextFg:  lipgloss.Color("#F8F8F2"),
			ConflictFg: lipgloss.Color("#FFB86C"),
			CursorBg:   lipgloss.Color("#44475A"),
			SelectedBg: lipgloss.Color("#2D4A2B"),
			StatusFg:   lipgloss.Color("#F8F8F2"),
			StatusBg:   lipgloss.Color("#6272A4"),
			ErrorFg:    lipgloss.Color("#FF5555"),
			HelpFg:     lipgloss.Color("#BD93F9"),
		}
	default:
		return DefaultTheme()
	}
}

// DefaultKeybindings returns the built-in keybinding map.
func DefaultKeybindings() Keybindings {
	return Keybindings{
		"quit":             {"ctrl+c", "q"},
		"toggle_help":      {"?"},
		"cursor_down":      {"j", "down"},
		"cursor_up":        {"k", "up"},
		"toggle_expand":    {"tab", "enter"},
		"stage":            {"s"},
		"unstage":          {"u"},
		"discard":          {"x"},
		"extend_selection": {"V"},
		"resolve_ours":     {"o"},
		"resolve_theirs":   {"t"},
		"continue_op":      {"c"},
		"abort_op":         {"a"},
		"merge":            {"M"},
		"rebase":           {"R"},
		"cherry_pick":      {"P"},
		"refresh":          {"r"},
		"yank":             {"y"},
		"stash_push":       {"z"},
		"stash_pop":        {"Z"},
		"commit":           {"C"},
	}
}

// MergeKeybindings overlays user overrides onto defaults.
func MergeKeybindings(overrides Keybindings) Keybindings {
	defaults := DefaultKeybindings()
	for action, keys := range overrides {
		if len(keys) == 0 {
			continue
		}
		defaults[action] = keys
	}
	return defaults
}

package tui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cj3636/gstage/internal/config"
	"github.com/cj3636/gstage/internal/conflict"
	"github.com/cj3636/gstage/internal/engine"
	"github.com/cj3636/gstage/internal/export"
	"github.com/cj3636/gstage/internal/git"
	"github.com/cj3636/gstage/internal/tree"
)

// Model represents the application state
type Model struct {
	eng      *engine.Engine
	config   *config.Config
	styles   *Styles
	actions  map[string]string
	viewport viewport.Model

	snap    engine.Snapshot
	visible []*tree.Node
	cursor  int

	width  int
	height int
	ready  bool

	showHelp       bool
	pendingDiscard bool
	picker         *picker
	input          textinput.Model
	inputAction    string // "commit" or "stash" while the prompt is open
	status         string
	err            error
}

// Styles holds all the lipgloss styles
type Styles struct {
	section   lipgloss.Style
	file      lipgloss.Style
	hunk      lipgloss.Style
	added     lipgloss.Style
	removed   lipgloss.Style
	context   lipgloss.Style
	conflict  lipgloss.Style
	cursor    lipgloss.Style
	selected  lipgloss.Style
	statusBar lipgloss.Style
	errBar    lipgloss.Style
	help      lipgloss.Style
}

// snapshotMsg carries a fresh engine snapshot into the update loop.
type snapshotMsg engine.Snapshot

// resultMsg carries the outcome of an engine command.
type resultMsg struct {
	action string
	err    error
}

// NewModel creates a new TUI model
func NewModel(eng *engine.Engine, cfg *config.Config) Model {
	input := textinput.New()
	input.CharLimit = 200

	return Model{
		eng:     eng,
		config:  cfg,
		styles:  createStyles(cfg.Theme),
		actions: invertKeybindings(cfg.Keybindings),
		input:   input,
		snap:    eng.Snapshot(),
	}
}

// createStyles initializes all lipgloss styles based on theme
func createStyles(theme config.Theme) *Styles {
	return &Styles{
		section: lipgloss.NewStyle().
			Foreground(theme.SectionFg).
			Background(theme.SectionBg).
			Bold(true).
			Padding(0, 1),
		file:     lipgloss.NewStyle().Foreground(theme.FileFg),
		hunk:     lipgloss.NewStyle().Foreground(theme.HunkFg),
		added:    lipgloss.NewStyle().Foreground(theme.AddedFg),
		removed:  lipgloss.NewStyle().Foreground(theme.RemovedFg),
		context:  lipgloss.NewStyle().Foreground(theme.ContextFg),
		conflict: lipgloss.NewStyle().Foreground(theme.ConflictFg),
		cursor:   lipgloss.NewStyle().Background(theme.CursorBg),
		selected: lipgloss.NewStyle().Background(theme.SelectedBg),
		statusBar: lipgloss.NewStyle().
			Foreground(theme.StatusFg).
			Background(theme.StatusBg).
			Padding(0, 1),
		errBar: lipgloss.NewStyle().Foreground(theme.ErrorFg).Bold(true),
		help:   lipgloss.NewStyle().Foreground(theme.HelpFg).Italic(true),
	}
}

func invertKeybindings(kb config.Keybindings) map[string]string {
	actions := make(map[string]string)
	for action, keys := range kb {
		for _, key := range keys {
			actions[key] = action
		}
	}
	return actions
}

// Init subscribes to engine updates.
func (m Model) Init() tea.Cmd {
	return m.waitForUpdate()
}

func (m Model) waitForUpdate() tea.Cmd {
	ch := m.eng.Updates()
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return nil
		}
		return snapshotMsg(snap)
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-2)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 2
		}
		m.refreshContent()
		return m, nil

	case snapshotMsg:
		m.snap = engine.Snapshot(msg)
		m.err = m.snap.Err
		m.visible = nil
		if m.snap.Tree != nil {
			m.visible = m.snap.Tree.Visible()
		}
		m.cursor = m.findCursor()
		m.refreshContent()
		return m, m.waitForUpdate()

	case resultMsg:
		m.err = msg.err
		if msg.err == nil {
			m.status = msg.action
		} else {
			m.status = ""
		}
		m.refreshContent()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.inputAction != "" {
		return m.handlePromptKey(msg)
	}
	if m.picker != nil {
		return m.handlePickerKey(msg)
	}

	action := m.actions[msg.String()]

	// A pending discard confirmation consumes the next key.
	if m.pendingDiscard {
		m.pendingDiscard = false
		if msg.String() == "y" || action == "discard" {
			return m, m.runEngine("discarded", m.eng.Discard)
		}
		m.status = "discard cancelled"
		return m, nil
	}

	switch action {
	case "quit":
		return m, tea.Quit
	case "toggle_help":
		m.showHelp = !m.showHelp
		m.refreshContent()
		return m, nil
	case "cursor_down":
		return m.moveCursor(1)
	case "cursor_up":
		return m.moveCursor(-1)
	case "toggle_expand":
		if node := m.currentNode(); node != nil {
			key := node.Key
			return m, m.runEngine("", func() error { return m.eng.ToggleExpand(key) })
		}
	case "stage":
		return m, m.runEngine("staged", m.eng.Stage)
	case "unstage":
		return m, m.runEngine("unstaged", m.eng.Unstage)
	case "discard":
		if m.config.ConfirmDiscard {
			m.pendingDiscard = true
			m.status = "discard is irreversible; press y to confirm"
			return m, nil
		}
		return m, m.runEngine("discarded", m.eng.Discard)
	case "extend_selection":
		return m.extendSelection()
	case "resolve_ours":
		return m.resolve(conflict.SideOurs)
	case "resolve_theirs":
		return m.resolve(conflict.SideTheirs)
	case "continue_op":
		return m, m.runEngine("operation continued", m.eng.ContinueOperation)
	case "abort_op":
		return m, m.runEngine("operation aborted", m.eng.AbortOperation)
	case "refresh":
		return m, m.runEngine("refreshed", m.eng.Refresh)
	case "yank":
		return m.yankPatch()
	case "stash_push":
		m.inputAction = "stash"
		m.input.Placeholder = "stash message"
		m.input.SetValue("")
		m.input.Focus()
		return m, textinput.Blink
	case "stash_pop":
		return m.openStashPicker()
	case "merge":
		return m.openRevPicker("merge", "merge branch or tag")
	case "rebase":
		return m.openRevPicker("rebase", "rebase onto")
	case "cherry_pick":
		return m.openCommitPicker()
	case "commit":
		m.inputAction = "commit"
		m.input.Placeholder = "commit message"
		m.input.SetValue("")
		m.input.Focus()
		return m, textinput.Blink
	}
	return m, nil
}

func (m Model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.inputAction = ""
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		action := m.inputAction
		message := m.input.Value()
		m.inputAction = ""
		m.input.Blur()
		if action == "commit" {
			return m, m.runEngine("committed", func() error { return m.eng.Commit(message) })
		}
		return m, m.runEngine("stashed", func() error { return m.eng.StashPush(message, true) })
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// runEngine executes a blocking engine command off the update loop.
func (m Model) runEngine(okStatus string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		return resultMsg{action: okStatus, err: fn()}
	}
}

func (m Model) moveCursor(delta int) (tea.Model, tea.Cmd) {
	if len(m.visible) == 0 {
		return m, nil
	}
	next := m.cursor + delta
	if next < 0 || next >= len(m.visible) {
		return m, nil
	}
	key := m.visible[next].Key
	return m, m.runEngine("", func() error { return m.eng.SetCursor(key) })
}

// extendSelection pulls the next sibling line into the multi-selection.
func (m Model) extendSelection() (tea.Model, tea.Cmd) {
	node := m.currentNode()
	if node == nil || node.Kind != tree.KindLine {
		m.status = "select lines within a hunk"
		return m, nil
	}
	// Find the furthest already-selected sibling below the cursor, then
	// take the one after it.
	next := m.cursor + 1
	for next < len(m.visible) && m.snap.Selected[m.visible[next].Key] {
		next++
	}
	if next >= len(m.visible) || m.visible[next].Parent != node.Parent {
		return m, nil
	}
	key := m.visible[next].Key
	return m, m.runEngine("", func() error { return m.eng.ExtendSelection(key) })
}

func (m Model) resolve(side conflict.Side) (tea.Model, tea.Cmd) {
	node := m.currentNode()
	if node == nil || node.Conflict == nil {
		m.status = "cursor is not on a conflict"
		return m, nil
	}
	key := node.Key
	return m, m.runEngine("resolved "+side.String(), func() error {
		return m.eng.ResolveConflict(key, side)
	})
}

// yankPatch copies the patch for the file or hunk under the cursor to
// the terminal clipboard.
func (m Model) yankPatch() (tea.Model, tea.Cmd) {
	node := m.currentNode()
	if node == nil || node.File == nil {
		m.status = "nothing to yank here"
		return m, nil
	}

	var rendered string
	var err error
	if node.Kind == tree.KindHunk || node.Kind == tree.KindLine {
		rendered, err = export.RenderHunk(node.File, node.HunkIndex, export.FormatPatch)
	} else {
		rendered, err = export.Render(node.File, export.FormatPatch)
	}
	if err != nil {
		m.err = err
		return m, nil
	}
	if err := export.CopyToClipboard(rendered, os.Stdout); err != nil {
		m.err = err
		return m, nil
	}
	m.status = "patch copied"
	return m, nil
}

func (m Model) currentNode() *tree.Node {
	if m.cursor < 0 || m.cursor >= len(m.visible) {
		return nil
	}
	return m.visible[m.cursor]
}

func (m Model) findCursor() int {
	for i, n := range m.visible {
		if n.Key == m.snap.Cursor {
			return i
		}
	}
	return 0
}

func (m *Model) refreshContent() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderTree())
	// Keep the cursor line in view.
	if m.cursor < m.viewport.YOffset {
		m.viewport.SetYOffset(m.cursor)
	} else if m.cursor >= m.viewport.YOffset+m.viewport.Height {
		m.viewport.SetYOffset(m.cursor - m.viewport.Height + 1)
	}
}

func (m Model) renderTree() string {
	if len(m.visible) == 0 {
		return m.styles.help.Render("working tree clean")
	}

	var lines []string
	for i, node := range m.visible {
		lines = append(lines, m.renderNode(node, i == m.cursor))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderNode(node *tree.Node, underCursor bool) string {
	var style lipgloss.Style
	indent := ""

	switch node.Kind {
	case tree.KindSection:
		style = m.styles.section
	case tree.KindFile:
		style = m.styles.file
		if node.Status == git.StatusConflicted {
			style = m.styles.conflict
		}
		indent = "  "
	case tree.KindHunk:
		style = m.styles.hunk
		indent = "    "
	case tree.KindConflict:
		style = m.styles.conflict
		indent = "    "
	case tree.KindLine:
		indent = "      "
		switch {
		case strings.HasPrefix(node.Display, "+"):
			style = m.styles.added
		case strings.HasPrefix(node.Display, "-"):
			style = m.styles.removed
		default:
			style = m.styles.context
		}
	}

	text := indent + node.Display
	if expandable(node) {
		marker := "+ "
		if node.Expanded {
			marker = "- "
		}
		text = indent + marker + node.Display
	}

	rendered := style.Render(text)
	if underCursor {
		rendered = m.styles.cursor.Render(text)
	} else if m.snap.Selected[node.Key] {
		rendered = m.styles.selected.Render(text)
	}
	return rendered
}

func expandable(node *tree.Node) bool {
	return len(node.Children) > 0 && node.Kind != tree.KindSection
}

// View renders the UI
func (m Model) View() string {
	if !m.ready {
		return "loading..."
	}

	var b strings.Builder
	b.WriteString(m.viewport.View())
	b.WriteByte('\n')

	if m.showHelp {
		b.WriteString(m.renderHelp())
		b.WriteByte('\n')
	}
	if m.picker != nil {
		b.WriteString(m.renderPicker())
		b.WriteByte('\n')
	}
	if m.inputAction != "" {
		b.WriteString(m.input.View())
		b.WriteByte('\n')
	}
	b.WriteString(m.renderStatusBar())
	return b.String()
}

func (m Model) renderStatusBar() string {
	state := m.snap.State

	var parts []string
	if state.Head.Branch != "" {
		parts = append(parts, state.Head.Branch)
	} else if state.Head.Hash != "" {
		parts = append(parts, "detached "+shortHash(state.Head.Hash))
	}
	if state.Ahead > 0 || state.Behind > 0 {
		parts = append(parts, fmt.Sprintf("+%d -%d", state.Ahead, state.Behind))
	}
	if op := state.Operation; op.Active() {
		text := fmt.Sprintf("%s %s", op.Kind, op.State)
		if op.Kind == git.OpRebase && op.Total > 0 {
			text = fmt.Sprintf("%s (%d/%d)", text, op.Step, op.Total)
		}
		parts = append(parts, text)
	}
	if m.status != "" {
		parts = append(parts, m.status)
	}

	bar := m.styles.statusBar.Render(strings.Join(parts, " | "))
	if m.err != nil {
		bar += " " + m.styles.errBar.Render(m.err.Error())
	}
	return bar
}

func (m Model) renderHelp() string {
	return m.styles.help.Render(
		"j/k move  tab expand  s stage  u unstage  x discard  V select lines  " +
			"o/t resolve ours/theirs  M merge  R rebase  P cherry-pick  c continue  a abort  " +
			"z/Z stash  C commit  r refresh  q quit")
}

func shortHash(hash string) string {
	if len(hash) > 7 {
		return hash[:7]
	}
	return hash
}

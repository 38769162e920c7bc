package tui

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cj3636/gstage/internal/git"
)

const commitPickerLimit = 20

// pickerItem is one selectable row: a display label plus the value handed
// to the engine on selection.
type pickerItem struct {
	label string
	value string
}

// picker is a modal list overlay. action names the command the selected
// value feeds once the user confirms.
type picker struct {
	title  string
	action string
	items  []pickerItem
	index  int
}

func (m Model) openStashPicker() (tea.Model, tea.Cmd) {
	entries, err := m.eng.Stashes()
	if err != nil {
		m.err = err
		return m, nil
	}
	if len(entries) == 0 {
		m.status = "no stash entries"
		return m, nil
	}

	items := make([]pickerItem, 0, len(entries))
	for _, s := range entries {
		items = append(items, pickerItem{
			label: fmt.Sprintf("stash@{%d} %s", s.Index, s.Message),
			value: strconv.Itoa(s.Index),
		})
	}
	m.picker = &picker{title: "pop stash", action: "stash_pop", items: items}
	return m, nil
}

// openRevPicker lists local branches (minus the current one) and tags as
// operation targets.
func (m Model) openRevPicker(action, title string) (tea.Model, tea.Cmd) {
	branches, err := m.eng.Branches()
	if err != nil {
		m.err = err
		return m, nil
	}
	tags, err := m.eng.Tags()
	if err != nil {
		m.err = err
		return m, nil
	}

	var items []pickerItem
	for _, b := range branches {
		if b.Current {
			continue
		}
		items = append(items, pickerItem{
			label: fmt.Sprintf("%s %s", b.Name, shortHash(b.Hash)),
			value: b.Name,
		})
	}
	for _, tg := range tags {
		items = append(items, pickerItem{
			label: fmt.Sprintf("%s %s (tag)", tg.Name, shortHash(tg.Hash)),
			value: tg.Name,
		})
	}
	if len(items) == 0 {
		m.status = "no branches or tags to pick"
		return m, nil
	}
	m.picker = &picker{title: title, action: action, items: items}
	return m, nil
}

func (m Model) openCommitPicker() (tea.Model, tea.Cmd) {
	commits, err := m.eng.RecentCommits(commitPickerLimit)
	if err != nil {
		m.err = err
		return m, nil
	}
	if len(commits) == 0 {
		m.status = "no commits to pick"
		return m, nil
	}

	items := make([]pickerItem, 0, len(commits))
	for _, c := range commits {
		items = append(items, pickerItem{
			label: fmt.Sprintf("%s %s", shortHash(c.Hash), c.Summary),
			value: c.Hash,
		})
	}
	m.picker = &picker{title: "cherry-pick commit", action: "cherry_pick", items: items}
	return m, nil
}

func (m Model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	p := m.picker
	switch m.actions[msg.String()] {
	case "cursor_down":
		if p.index < len(p.items)-1 {
			p.index++
		}
		return m, nil
	case "cursor_up":
		if p.index > 0 {
			p.index--
		}
		return m, nil
	case "quit":
		m.picker = nil
		return m, nil
	}

	switch msg.Type {
	case tea.KeyEsc:
		m.picker = nil
		return m, nil
	case tea.KeyEnter:
		item := p.items[p.index]
		m.picker = nil
		return m.dispatchPick(p.action, item)
	}
	return m, nil
}

func (m Model) dispatchPick(action string, item pickerItem) (tea.Model, tea.Cmd) {
	switch action {
	case "stash_pop":
		index, err := strconv.Atoi(item.value)
		if err != nil {
			m.err = err
			return m, nil
		}
		return m, m.runEngine("stash popped", func() error { return m.eng.StashPop(index) })
	case "merge":
		return m.startPickedOperation(git.OpMerge, item.value, "merge started")
	case "rebase":
		return m.startPickedOperation(git.OpRebase, item.value, "rebase started")
	case "cherry_pick":
		return m.startPickedOperation(git.OpCherryPick, item.value, "cherry-pick started")
	}
	return m, nil
}

// startPickedOperation validates the target before handing it to the
// orchestrator, so a ref deleted since the picker opened fails here
// instead of mid-operation.
func (m Model) startPickedOperation(kind git.OpKind, rev, okStatus string) (tea.Model, tea.Cmd) {
	if _, err := m.eng.ResolveRev(rev); err != nil {
		m.err = err
		return m, nil
	}
	return m, m.runEngine(okStatus, func() error { return m.eng.StartOperation(kind, rev) })
}

func (m Model) renderPicker() string {
	var b strings.Builder
	b.WriteString(m.styles.section.Render(m.picker.title))
	b.WriteByte('\n')
	for i, item := range m.picker.items {
		if i == m.picker.index {
			b.WriteString(m.styles.cursor.Render("> " + item.label))
		} else {
			b.WriteString("  " + item.label)
		}
		b.WriteByte('\n')
	}
	b.WriteString(m.styles.help.Render("enter select  esc cancel"))
	return b.String()
}
